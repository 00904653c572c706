// Package task manages background job queuing, processing, and lifecycle.
// It drives persisted tasks through the queued -> running -> terminal state
// machine, enforces one active task per target resource, and repairs state
// left inconsistent by a prior crash before the processor accepts new work.
package task
