// Package reconcile counts every discovered file into exactly one outcome
// bucket and checks the two bookkeeping identities at the end of a pass:
//
//	success + metadata_only + failure == attempted
//	attempted + skipped == discovered
//
// A Counter is a plain value owned by the run that creates it. It moves from
// Idle to Accumulating on the first recorded file and to Reconciled once the
// identities have been checked; totals and file lists are only readable after
// that.
package reconcile
