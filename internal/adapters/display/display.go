// Package display renders enriched punches for the speaker crew.
package display

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klasvik/prewarn/internal/domain/model"
)

// Sink receives enriched punches for presentation, newest first from the
// caller's point of view.
type Sink interface {
	AddRow(ctx context.Context, w model.PreWarning)
}

// Console writes one line per pre-warning to an io.Writer.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a console sink. A nil writer defaults to stdout.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

// AddRow writes the pre-warning as a tab-separated line.
func (c *Console) AddRow(_ context.Context, w model.PreWarning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s\t%s\t%s\n",
		model.Display(w.TimeOfDay), model.Display(w.Bib), model.Display(w.Leg))
}
