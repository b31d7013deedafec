// Package events implements the delivery event processor.
//
// Provider callbacks arrive in no particular order and are correlated after
// the fact via the provider message id. Every event with a correlation id is
// appended to the immutable event log first; recipient and campaign state
// transitions apply only when the correlation resolves. Orphan events are
// kept for audit and mutate nothing.
package events
