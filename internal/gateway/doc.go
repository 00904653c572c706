// Package gateway is the single funnel for all calls to the external
// storefront GraphQL API. It serializes requests through one FIFO drain
// loop, shapes outbound rate per second, and retries throttled responses
// with linear backoff, re-inserting retries at the front of the queue so
// in-flight work is never starved by fresh submissions.
//
// The storefront API enforces a cost-based budget that replenishes
// continuously; naive parallel calling causes cascading 429s. A single
// serialized, self-throttling funnel keeps steady-state throughput near
// the budget ceiling without per-caller tuning.
package gateway
