// Package syncer bulk-synchronizes a shop's catalog and content through a
// fixed sequence of phases, streaming progress events to the caller. It
// paginates every resource listing with cursors, memoizes translation
// fetches per resource for the duration of one run, and treats a phase
// failure as partial: remaining phases still execute and the final stats
// report the errors.
package syncer
