// Package ratelimit enforces per-shop, per-provider request and token
// budgets for outbound AI provider calls. Each (shop, provider) pair has an
// in-memory 60-second window that resets wholesale at the boundary; callers
// that exceed the budget wait cooperatively for the next window instead of
// being rejected.
package ratelimit
