// Package events provides a lightweight in-process event system that
// decouples the HTTP layer from task creation.
package events
