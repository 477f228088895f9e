// Package callvm builds native call frames.
//
// A Session is a short-lived argument stack with a fixed byte capacity. It is
// configured with one calling convention, receives arguments in call order,
// is invoked once against a Function and is then freed:
//
//	s := callvm.NewSession(callvm.DefaultSessionBytes)
//	defer s.Free()
//	if err := s.SetConvention(callvm.ConventionDefault); err != nil {
//	    return err
//	}
//	if err := s.Push(dyncall.Double(2.7), dyncall.TagDouble); err != nil {
//	    return err
//	}
//	v, err := s.Invoke(ctx, fn, dyncall.TagDouble)
//
// Each argument occupies one 8-byte slot holding its native representation in
// host byte order: two's complement for integers, IEEE-754 bits for doubles.
// Backends (libffi, wazero) read the Frame and perform the actual call.
package callvm
