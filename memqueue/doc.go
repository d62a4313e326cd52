// Package memqueue provides the in-memory queue transport for the partition
// fabric.
//
// A Storage is a process-wide registry of named unbounded FIFO queues,
// created lazily by the first enqueue; draining a topic that has never been
// written creates nothing and yields no messages. Producer and Consumer are thin
// handles over the registry implementing the transport-agnostic contracts in
// the types package, so code written against them also runs over a
// distributed transport.
//
// The registry offers no durability: messages live only as long as the
// process, and a topic's queue holds whatever message type its producers
// enqueue. Pair one message type per topic.
package memqueue
