// Package flagcore is the evaluation and sync core of a server-side
// feature-flag and experimentation SDK. It fetches rule definitions
// ("config specs") and ID lists from a remote configuration service,
// keeps them fresh with two independent polling loops, and evaluates a
// user context against a spec to decide whether a gate passes, which
// dynamic config or layer variant applies, and which rule produced the
// decision.
//
// The top-level public façade, event-logging transport, and custom
// Data Adapter implementations beyond the reference ones in the
// adapter subpackage are treated as external collaborators reached
// through the Fetcher, DataAdapter, Diagnostics, and Logger interfaces.
package flagcore
