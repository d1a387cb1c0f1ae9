package viewer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Removal counts the posts one keyword removed during a pass.
type Removal struct {
	Keyword string
	Count   int
}

// Pass summarizes one iteration of the poll loop.
type Pass struct {
	Expanded int
	Removed  []Removal
}

// TotalRemoved returns the number of posts removed across all keywords.
func (p Pass) TotalRemoved() int {
	total := 0
	for _, r := range p.Removed {
		total += r.Count
	}
	return total
}

// Loop alternates expanding and filtering forever.
type Loop struct {
	expander *Expander
	filter   *Filter
	interval time.Duration
	logger   *zap.Logger
}

// NewLoop creates a Loop that waits interval between passes.
func NewLoop(expander *Expander, filter *Filter, interval time.Duration, logger *zap.Logger) *Loop {
	return &Loop{expander: expander, filter: filter, interval: interval, logger: logger}
}

// Iterate runs one pass: expand everything, then remove matches for each
// keyword in order.
func (l *Loop) Iterate(ctx context.Context, keywords []string) (Pass, error) {
	var pass Pass

	expanded, err := l.expander.ExpandAll(ctx)
	pass.Expanded = expanded
	if err != nil {
		return pass, err
	}

	for _, kw := range keywords {
		n, err := l.filter.RemoveMatching(ctx, kw)
		pass.Removed = append(pass.Removed, Removal{Keyword: kw, Count: n})
		if err != nil {
			return pass, err
		}
	}
	return pass, nil
}

// Run repeats Iterate with the configured interval between passes. It has no
// exit condition of its own and returns only on a fatal error or when ctx is
// cancelled.
func (l *Loop) Run(ctx context.Context, keywords []string) error {
	for {
		pass, err := l.Iterate(ctx, keywords)
		if err != nil {
			return err
		}
		if pass.Expanded > 0 || pass.TotalRemoved() > 0 {
			l.logger.Debug("Pass complete",
				zap.Int("expanded", pass.Expanded),
				zap.Int("removed", pass.TotalRemoved()),
			)
		}
		if err := settle(ctx, l.interval); err != nil {
			return err
		}
	}
}
