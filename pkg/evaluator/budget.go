package evaluator

import (
	"fmt"
	"time"

	"github.com/thomasrohde/aether/pkg/ast"
	"github.com/thomasrohde/aether/pkg/diagnostics"
)

// Budget holds the resource limits for a program execution.
// A nil limit is unlimited.
type Budget struct {
	TimeMs        *int64
	MaxIterations *int64
}

// NewBudget builds a Budget from plain limits where zero or less means unlimited.
func NewBudget(maxIterations, timeMs int64) Budget {
	var b Budget
	if maxIterations > 0 {
		b.MaxIterations = &maxIterations
	}
	if timeMs > 0 {
		b.TimeMs = &timeMs
	}
	return b
}

// BudgetTracker tracks resource consumption during execution.
type BudgetTracker struct {
	Iterations int64
	Start      time.Time
}

// ElapsedMs returns the milliseconds since the run started, read from the
// monotonic clock.
func (t *BudgetTracker) ElapsedMs() int64 {
	return time.Since(t.Start).Milliseconds()
}

func (b Budget) checkTime(t *BudgetTracker, span *ast.Span) error {
	if b.TimeMs == nil {
		return nil
	}
	if t.ElapsedMs() >= *b.TimeMs {
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("time budget exceeded (%dms)", *b.TimeMs),
			Span:    span,
		}
	}
	return nil
}

// checkIteration is called before each loop iteration starts.
func (b Budget) checkIteration(t *BudgetTracker, span *ast.Span) error {
	if b.MaxIterations == nil {
		return nil
	}
	if t.Iterations >= *b.MaxIterations {
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("iteration budget exceeded (max %d)", *b.MaxIterations),
			Span:    span,
		}
	}
	return nil
}
