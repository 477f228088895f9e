//go:build linux && cgo && !noffi

// Package cident provides C functions with known results for exercising the
// native call path without depending on system libraries.
package cident

/*
#include <stdint.h>

static int64_t cident_i64(int64_t x) { return x; }
static double cident_f64(double x) { return x; }
static int64_t cident_add_trunc(int64_t a, double b) { return a + (int64_t)b; }
static double cident_mix(double a, int64_t b, double c, int64_t d) {
	return a * 1000 + (double)b * 100 + c * 10 + (double)d;
}
*/
import "C"

import "unsafe"

// IdentityI64 returns the address of int64_t f(int64_t x) { return x; }.
func IdentityI64() unsafe.Pointer { return unsafe.Pointer(C.cident_i64) }

// IdentityF64 returns the address of double f(double x) { return x; }.
func IdentityF64() unsafe.Pointer { return unsafe.Pointer(C.cident_f64) }

// AddTrunc returns the address of int64_t f(int64_t a, double b) { return a + (int64_t)b; }.
func AddTrunc() unsafe.Pointer { return unsafe.Pointer(C.cident_add_trunc) }

// Mix returns the address of double f(double a, int64_t b, double c, int64_t d),
// which computes a*1000 + b*100 + c*10 + d so argument order is observable.
func Mix() unsafe.Pointer { return unsafe.Pointer(C.cident_mix) }
