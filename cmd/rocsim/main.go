// rocsim serves a synthetic punch feed with the same line format as the
// online punch relay, for rehearsing the pipeline without a live event.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/klasvik/prewarn/pkg/logger"
)

const (
	defaultAddr     = ":9180"
	defaultInterval = 5 * time.Second
	defaultControls = "101 102"
	defaultCards    = 64
)

// feed generates punches with sequential ids at a steady rate.
type feed struct {
	mu       sync.Mutex
	punches  []string
	nextID   int
	controls []string
	cards    int
}

func newFeed(controls []string, cards int) *feed {
	return &feed{nextID: 1, controls: controls, cards: cards}
}

// tick appends one synthetic punch.
func (f *feed) tick() {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	line := fmt.Sprintf("%d;%s;%d;%s",
		f.nextID,
		f.controls[rand.Intn(len(f.controls))],
		500000+rand.Intn(f.cards),
		now.Format("2006-01-02 15:04:05"))
	f.punches = append(f.punches, line)
	f.nextID++
}

// after returns all punches with an id greater than lastID, mirroring the
// relay's getpunches behavior.
func (f *feed) after(lastID int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, line := range f.punches {
		id, _, _ := strings.Cut(line, ";")
		if n, err := strconv.Atoi(id); err == nil && n > lastID {
			out = append(out, line)
		}
	}
	return out
}

func main() {
	var (
		addr     = flag.String("addr", defaultAddr, "Listen address")
		interval = flag.Duration("interval", defaultInterval, "Time between synthetic punches")
		controls = flag.String("controls", defaultControls, "Space-separated control codes to emit")
		cards    = flag.Int("cards", defaultCards, "Number of distinct card numbers")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Named("rocsim")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f := newFeed(strings.Fields(*controls), *cards)

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f.tick()
			case <-ctx.Done():
				return
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		lastID, _ := strconv.Atoi(r.URL.Query().Get("lastId"))
		lines := f.after(lastID)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
		log.Debug(r.Context(), "served punches",
			logger.Int("last_id", lastID),
			logger.Int("count", len(lines)))
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info(ctx, "serving synthetic punches", logger.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
