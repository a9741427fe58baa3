// Package vision provides the client side of the line protocol spoken by
// the vision coprocessor.
package vision

// The protocol is communicated between the arm controller and the vision
// coprocessor over a peer-to-peer byte stream (e.g. serial port).
//
// Exactly one request is outstanding at a time. A request is one ASCII
// line terminated by the delimiter ('\n'). The reply is one line: either
// an error line starting with the sentinel ("ERROR"), or comma separated
// decimal integers. There is no checksum and no sequence number; stale
// input is discarded before every request instead.
//
// Client never blocks: the host calls Update (or registers the Client
// with a framework.Loop) at a cadence much smaller than the timeout.
// Request wraps it for callers which prefer to block.
//
// Producer: vision coprocessor
// Consumer: arm controller
