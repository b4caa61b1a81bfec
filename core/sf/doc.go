// Package sf provides a generic single-flight mechanism for deduplicating
// concurrent function calls with the same key.
//
// Only one execution of a function is in flight for a given key at a time.
// Callers that arrive while it runs block and receive the same result.
//
// The client uses it so that many invocations racing towards a member that
// has no connection yet open exactly one connection:
//
//	dials := sf.New[wire.Conn]()
//
//	conn, err := dials.Do(addr, func() (*wire.Conn, error) {
//	    return wire.Dial(ctx, addr, opts)
//	})
package sf
