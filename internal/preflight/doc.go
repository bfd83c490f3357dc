// Package preflight provides readiness checks for the storage encore writes to.
//
// The daemon runs them at startup and reports them through /api/status; the
// CLI "encore status" command renders the same results.
package preflight
