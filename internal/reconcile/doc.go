// Package reconcile implements the I/O reconciler (spec.md 4.G): the six
// ordered steps that fold one command's sandboxed write/read observations
// back into the store. A bork aborts that command's contribution to the
// transaction without aborting the transaction itself.
package reconcile
