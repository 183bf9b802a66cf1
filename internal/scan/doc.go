// Package scan runs full-ring reads as many parallel token range scans.
//
// # Overview
//
// A Scanner splits each input range into sub-ranges with
// token.Range.SplitEvenly, unwraps the pieces that cross the minimum token so
// that each one maps to a single
//
//	token > start AND token <= end
//
// predicate, and calls a function for every piece with bounded concurrency.
//
// # Planning
//
// Plan returns the pieces in the order Scan visits them:
//
//	input:  ]s, e]                 (wrapped, 2 splits)
//	split:  ]s, m]  ]m, e]
//	plan:   ]s, max-side] ]min, m]  ]m, e]
//
// Empty ranges are skipped. A range whose partitioner cannot split is kept
// whole. Ranges narrower than the split count produce repeated bounds, and
// the zero-width pieces are dropped so that no piece reads as the whole ring.
//
// # Execution
//
// Scan runs the pieces on an errgroup limited to Options.Concurrency
// goroutines. The first error cancels the context passed to the remaining
// calls and is returned wrapped with the failing range. Cancelling the
// caller's context stops the scan and returns the context's error.
//
// # Usage
//
//	s := scan.New(scan.Options{SplitsPerRange: 4, Concurrency: 8})
//	err := s.Scan(ctx, ranges, func(ctx context.Context, r token.Range) error {
//	    keys := store.ScanRange(r)
//	    ...
//	    return nil
//	})
package scan
