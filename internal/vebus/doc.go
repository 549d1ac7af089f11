// Package vebus owns the live side of the protocol.
//
// Ownership boundary:
// - Connection: one serialized command/reply exchange at a time over a byte
//   stream, with timeout and resend
// - Session: exclusive, scaled, name-level operations on top of a Connection
//
// The protocol is half-duplex request/reply with no request identifiers;
// correlation is purely by expected reply shape, which is only sound while
// a single command is outstanding. The Session's lock and the Connection's
// single waiter slot enforce that by construction.
package vebus
