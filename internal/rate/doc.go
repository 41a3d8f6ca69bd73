// Package rate throttles requests per client key.
//
// [Buckets] is an in-process token bucket per key built on
// golang.org/x/time/rate. [Window] is a Redis fixed-window counter for
// limits shared across instances. [Chain] combines them.
package rate
