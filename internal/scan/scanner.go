package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/torua/internal/token"
)

// Func reads one sub-range. It must return promptly once ctx is done.
type Func func(ctx context.Context, r token.Range) error

// Options configures a Scanner. Zero fields take defaults.
type Options struct {
	Logger         *slog.Logger
	SplitsPerRange int
	Concurrency    int
}

const (
	defaultSplitsPerRange = 4
	defaultConcurrency    = 8
)

// Scanner fans a scan out over sub-ranges. It holds no state between calls
// and may be shared.
type Scanner struct {
	log         *slog.Logger
	splits      int
	concurrency int
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	if opts.SplitsPerRange <= 0 {
		opts.SplitsPerRange = defaultSplitsPerRange
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scanner{
		log:         opts.Logger.With("component", "scan"),
		splits:      opts.SplitsPerRange,
		concurrency: opts.Concurrency,
	}
}

// Plan returns the sub-ranges Scan would visit, in order. Empty ranges are
// skipped. A range whose partitioner cannot split is kept whole.
func (s *Scanner) Plan(ranges []token.Range) ([]token.Range, error) {
	var plan []token.Range
	for _, r := range ranges {
		if r.IsEmpty() {
			continue
		}

		parts, err := r.SplitEvenly(s.splits)
		switch {
		case errors.Is(err, token.ErrSplitUnsupported):
			s.log.Debug("range not split", "range", r, "partitioner", r.Partitioner().Name())
			parts = []token.Range{r}
		case err != nil:
			return nil, fmt.Errorf("split %s: %w", r, err)
		}

		for _, part := range parts {
			// Ranges narrower than the split count produce repeated bounds.
			if len(parts) > 1 && part.Start().Equal(part.End()) {
				continue
			}
			plan = append(plan, part.Unwrap()...)
		}
	}
	return plan, nil
}

// Scan calls fn for every sub-range of ranges, at most Concurrency at a
// time. The first error cancels the remaining calls and is returned.
func (s *Scanner) Scan(ctx context.Context, ranges []token.Range, fn Func) error {
	plan, err := s.Plan(ranges)
	if err != nil {
		return err
	}

	s.log.Debug("scan started", "ranges", len(ranges), "tasks", len(plan), "concurrency", s.concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, r := range plan {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(gctx, r); err != nil {
				return fmt.Errorf("scan %s: %w", r, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.log.Warn("scan failed", "err", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Debug("scan finished", "tasks", len(plan))
	return nil
}
