// Package async provides safe concurrent execution primitives for
// background work: fire-and-forget goroutines with panic recovery and
// timeout enforcement, and a bounded worker pool used by the notification
// dispatcher.
package async
