// Package dispatch implements campaign batch dispatch.
//
// The orchestrator turns a campaign into one send task per confirmed
// recipient, submits them as a single cancelable batch with
// allow-partial-failure semantics, and finalizes the campaign once every
// task has terminated. The executor sends one message, tags it with the
// provider correlation id, and maintains the campaign's aggregate counters
// via atomic storage increments.
//
// Repository implementations live in repository/postgres.
package dispatch
