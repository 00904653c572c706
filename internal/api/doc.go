// Package api contains the HTTP handlers for the task and synchronization
// endpoints. Handlers depend on small interfaces so tests can substitute
// the runner and stores without a database.
package api
