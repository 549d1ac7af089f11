// Package frames owns the closed set of command and reply shapes.
//
// Ownership boundary:
// - command serialization to framing.Frame
// - reply parsing from decoded frames
// - command -> accepted-reply matching
//
// Adding a frame shape means adding a variant here, never subclassing
// anything at a call site.
package frames
