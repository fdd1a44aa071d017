package summarize

import (
	"fmt"
	"sync"

	"github.com/kagari/newsdigest/internal/logger"
)

// Budget caps the number of model requests in one run. Unlike transport-level
// rate limiting this is a hard spend ceiling: once exhausted, remaining items
// keep their placeholder summaries instead of waiting.
type Budget struct {
	mu   sync.Mutex
	used int
	max  int
}

// NewBudget returns a budget allowing max requests; max <= 0 means unlimited.
func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

var ErrBudgetExhausted = fmt.Errorf("summarization request budget exhausted")

func (b *Budget) Take() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max > 0 && b.used >= b.max {
		return ErrBudgetExhausted
	}
	b.used++
	if b.max > 0 {
		logger.Debug("summarize budget", "used", b.used, "max", b.max)
	}
	return nil
}

func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}
