// Package dispatch runs one foreign call end to end: load the library,
// resolve the symbol, parse the signature, marshal the arguments, invoke
// and tear everything down.
package dispatch

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/dyncall"
	"github.com/wippyai/dyncall/callvm"
	"github.com/wippyai/dyncall/errors"
	"github.com/wippyai/dyncall/host"
	"github.com/wippyai/dyncall/library"
	"github.com/wippyai/dyncall/signature"
)

// Request describes a single call.
type Request struct {
	Args       host.Args
	Library    string
	Convention string
	Symbol     string
	Spec       string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for dispatch events.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithSessionBytes sets the argument stack capacity of each call session.
// Values <= 0 select callvm.DefaultSessionBytes.
func WithSessionBytes(n int) Option {
	return func(d *Dispatcher) {
		d.sessionBytes = n
	}
}

// WithDefaultConvention sets the convention used when a request leaves it
// empty.
func WithDefaultConvention(c callvm.Convention) Option {
	return func(d *Dispatcher) {
		d.defaultConvention = c
	}
}

// Dispatcher performs calls. It holds no per-call state and is safe for
// concurrent use.
type Dispatcher struct {
	loader            library.Loader
	logger            *zap.Logger
	sessionBytes      int
	defaultConvention callvm.Convention
	newSession        func(maxBytes int) *callvm.Session
}

// New creates a dispatcher that opens libraries through loader.
func New(loader library.Loader, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		loader:     loader,
		logger:     Logger(),
		newSession: callvm.NewSession,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchValues is Dispatch with the arguments given inline.
func (d *Dispatcher) DispatchValues(ctx context.Context, lib, conv, symbol, spec string, args ...dyncall.Value) (dyncall.Value, error) {
	return d.Dispatch(ctx, Request{
		Library:    lib,
		Convention: conv,
		Symbol:     symbol,
		Spec:       spec,
		Args:       host.Values(args),
	})
}

// Dispatch performs the call described by req. The library handle and the
// call session are released before Dispatch returns, whatever the outcome;
// release failures are appended to the returned error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (result dyncall.Value, err error) {
	log := d.logger.With(
		zap.String("call_id", uuid.NewString()),
		zap.String("library", req.Library),
		zap.String("symbol", req.Symbol),
		zap.String("spec", req.Spec),
	)
	log.Debug("dispatch")

	defer func() {
		if err != nil {
			result = nil
			log.Debug("dispatch failed", zap.String("phase", string(errors.PhaseOf(err))), zap.Error(err))
		}
	}()

	if d.loader == nil {
		return nil, errors.LibraryLoadFailed(req.Library, errors.InvalidState("dispatcher", "no loader"))
	}
	h, err := d.loader.Open(ctx, req.Library)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			err = multierr.Append(err, cerr)
		}
	}()

	fn, err := h.Lookup(req.Symbol)
	if err != nil {
		return nil, err
	}

	plan, err := signature.Parse(req.Spec)
	if err != nil {
		return nil, err
	}

	args := req.Args
	if args == nil {
		args = host.Values(nil)
	}
	if err := plan.CheckArity(args.Len()); err != nil {
		return nil, err
	}

	conv := d.defaultConvention
	if req.Convention != "" {
		if conv, err = callvm.ParseConvention(req.Convention); err != nil {
			return nil, err
		}
	}

	s := d.newSession(d.sessionBytes)
	defer s.Free()

	if err := s.SetConvention(conv); err != nil {
		return nil, err
	}
	for i, tag := range plan.Args {
		v, err := args.At(i)
		if err != nil {
			return nil, err
		}
		if err := s.Push(v, tag); err != nil {
			return nil, err
		}
	}

	log.Debug("invoke", zap.Stringer("convention", conv), zap.Int("stack_bytes", s.Used()))
	return s.Invoke(ctx, fn, plan.Return)
}
