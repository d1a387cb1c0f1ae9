package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xkilldash9x/feedfilter/api/schemas"
	"go.uber.org/zap"
)

// Filter deletes posts that mention an excluded keyword.
type Filter struct {
	driver schemas.Driver
	logger *zap.Logger
	source string
}

// NewFilter creates a Filter.
func NewFilter(driver schemas.Driver, logger *zap.Logger) *Filter {
	return &Filter{driver: driver, logger: logger}
}

// SetSource names the page the filtered posts come from, for logging.
func (f *Filter) SetSource(source string) {
	f.source = source
}

// RemoveMatching deletes, one at a time, every post whose message contains
// keyword and does not contain "#"+keyword, until none is left. It returns
// the number of posts removed.
func (f *Filter) RemoveMatching(ctx context.Context, keyword string) (int, error) {
	selector := postXPath(keyword)
	removed := 0
	for {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		el, err := f.driver.FindElement(ctx, selector)
		if errors.Is(err, schemas.ErrElementNotFound) {
			return removed, nil
		}
		if err != nil {
			return removed, fmt.Errorf("failed to look up posts matching %q: %w", keyword, err)
		}

		text, err := f.driver.Text(ctx, el)
		if err != nil {
			f.logger.Debug("Could not read post text.", zap.Error(err))
		}
		f.logger.Debug("match", zap.String("keyword", keyword))
		f.logger.Debug("remove", zap.Stringer("post", Post{Source: f.source, Content: strings.TrimSpace(text)}))

		if err := f.driver.Remove(ctx, el); err != nil {
			if errors.Is(err, schemas.ErrElementNotFound) {
				continue
			}
			return removed, fmt.Errorf("failed to remove post matching %q: %w", keyword, err)
		}
		removed++
	}
}
