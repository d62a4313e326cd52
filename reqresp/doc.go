// Package reqresp provides the request/response correlation template layered
// on a producer/consumer pair.
//
// The template stamps every outgoing request with a generated UUID, tracks it
// in a bounded pending map, and completes the caller's future when the
// correlated response arrives on the response channel, when the per-call
// deadline passes, or when the template shuts down - whichever happens first.
package reqresp
