// Package backend provides the reference operations a toolproxy pipeline
// wraps: a payment, a report and an image operation.
//
// Each one sleeps for a random latency and then succeeds or fails, so the
// layers in front of it have something to react to. Arguments are read by
// keyword first, then by position.
package backend
