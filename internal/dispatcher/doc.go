// Package dispatcher fans frame processing out across a fixed pool of
// isolated workers.
//
// Each worker owns its own store connection and its own processor instances;
// no mutable state crosses worker boundaries except through the store. One
// frame is one unit of work (decode, validate, process) producing exactly one
// ProcessingResult, delivered in completion order on a single channel.
//
// The submit queue is bounded: Submit blocks when the queue is full, so a
// slow store backpressures the controller instead of growing memory without
// bound. Stop drains queued and in-flight work to completion before the
// results channel closes.
package dispatcher
