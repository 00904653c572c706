// Package domain contains the core business entities and domain logic of
// the application: the durable Task record, its status state machine, and
// the invariants the rest of the system relies on. It is independent of any
// specific infrastructure or delivery mechanism.
package domain
