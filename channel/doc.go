// Package channel turns the fanout of persisted messages into cancellable,
// per-view message streams.
//
// A Subscription is registered as an event sink for one conversation. It
// de-duplicates by message id, so redelivered or replayed messages reach the
// reader once, and it catches up from the message store when its buffer
// overflowed.
package channel
