package viewer

import (
	"context"
	"errors"
	"fmt"

	"github.com/xkilldash9x/feedfilter/api/schemas"
	"go.uber.org/zap"
)

// Expander opens every truncated post on the page by triggering its
// "show more" control.
type Expander struct {
	driver   schemas.Driver
	selector string
	logger   *zap.Logger
}

// NewExpander creates an Expander for controls labelled label.
func NewExpander(driver schemas.Driver, label string, logger *zap.Logger) *Expander {
	return &Expander{driver: driver, selector: showMoreXPath(label), logger: logger}
}

// ExpandAll triggers show-more controls until none is left and returns how
// many it triggered. The controls are often covered by other elements, so they
// are activated at the DOM level. Each activation is assumed to consume its
// control; a page that keeps regenerating them keeps this loop going.
func (e *Expander) ExpandAll(ctx context.Context) (int, error) {
	expanded := 0
	for {
		if err := ctx.Err(); err != nil {
			return expanded, err
		}

		el, err := e.driver.FindElement(ctx, e.selector)
		if errors.Is(err, schemas.ErrElementNotFound) {
			return expanded, nil
		}
		if err != nil {
			return expanded, fmt.Errorf("failed to look up show-more control: %w", err)
		}

		e.logger.Debug("click [read more]")
		if err := e.driver.ForceActivate(ctx, el); err != nil {
			if errors.Is(err, schemas.ErrElementNotFound) {
				// Re-rendered between lookup and click; look again.
				continue
			}
			return expanded, fmt.Errorf("failed to activate show-more control: %w", err)
		}
		expanded++
	}
}
