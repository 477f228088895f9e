package dyncall

import (
	"math"
	"strconv"
)

// Tag identifies the scalar type of an argument or result.
type Tag uint8

const (
	TagInvalid Tag = iota
	// TagInteger is a 64-bit signed integer, code 'i'.
	TagInteger
	// TagDouble is an IEEE-754 binary64, code 'd'.
	TagDouble
)

type tagInfo struct {
	name string
	code byte
	size int
}

var tagTable = [...]tagInfo{
	TagInvalid: {name: "invalid"},
	TagInteger: {name: "integer", code: 'i', size: 8},
	TagDouble:  {name: "double", code: 'd', size: 8},
}

var codeTable [256]Tag

func init() {
	for tag, info := range tagTable {
		if info.code != 0 {
			codeTable[info.code] = Tag(tag)
		}
	}
}

// TagForCode returns the tag for a signature code.
func TagForCode(c byte) (Tag, bool) {
	t := codeTable[c]
	return t, t != TagInvalid
}

// Valid reports whether t is a known scalar tag.
func (t Tag) Valid() bool {
	return t > TagInvalid && int(t) < len(tagTable)
}

// Code returns the signature character for t, or 0 for an unknown tag.
func (t Tag) Code() byte {
	if !t.Valid() {
		return 0
	}
	return tagTable[t].code
}

// Size returns the number of bytes the native representation of t occupies
// on a call stack.
func (t Tag) Size() int {
	if !t.Valid() {
		return 0
	}
	return tagTable[t].size
}

func (t Tag) String() string {
	if int(t) < len(tagTable) {
		return tagTable[t].name
	}
	return "tag(" + strconv.Itoa(int(t)) + ")"
}

// Value is a typed scalar crossing the call boundary.
// The set of implementations is closed: Integer and Double.
type Value interface {
	Tag() Tag
	// Bits returns the 64-bit native representation.
	Bits() uint64
	String() string
	sealed()
}

// Integer is a 64-bit signed integer value.
type Integer int64

func (Integer) Tag() Tag { return TagInteger }
func (v Integer) Bits() uint64 { return uint64(v) }
func (v Integer) String() string { return strconv.FormatInt(int64(v), 10) }
func (Integer) sealed() {}

// Double is a double-precision floating point value.
type Double float64

func (Double) Tag() Tag { return TagDouble }
func (v Double) Bits() uint64 { return math.Float64bits(float64(v)) }
func (v Double) String() string {
	f := float64(v)
	if f == 0 && math.Signbit(f) {
		return "-0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
func (Double) sealed() {}

// FromBits decodes a 64-bit native representation as a value of tag t.
// It returns nil for an unknown tag.
func FromBits(t Tag, bits uint64) Value {
	switch t {
	case TagInteger:
		return Integer(int64(bits))
	case TagDouble:
		return Double(math.Float64frombits(bits))
	default:
		return nil
	}
}
