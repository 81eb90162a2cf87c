// Package loadtest exercises the sync stack under concurrent load: many
// writers creating notes through the serialized executor while pollers pull
// deltas, with latency percentiles for both sides.
package loadtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pragma-notes/pragma/internal/data"
	"github.com/pragma-notes/pragma/internal/repo"
	"github.com/pragma-notes/pragma/internal/store"
)

// Options configures a load test run.
type Options struct {
	// Writers is the number of concurrent goroutines creating notes.
	Writers int

	// NotesPerWriter is how many notes each writer creates.
	NotesPerWriter int

	// Pollers is the number of concurrent goroutines polling for deltas.
	Pollers int

	// PollsPerPoller is how many deltas each poller pulls.
	PollsPerPoller int
}

// LatencyStats summarizes operation latencies.
type LatencyStats struct {
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Total  int
	Errors int
}

// Result holds the outcome of a run.
type Result struct {
	Writes   LatencyStats
	Polls    LatencyStats
	Duration time.Duration
}

// Run opens a throwaway database at dbPath, pushes the configured load
// through a repo, and reports latency statistics.
func Run(ctx context.Context, dbPath string, opts Options) (*Result, error) {
	if opts.Writers <= 0 {
		opts.Writers = 10
	}
	if opts.NotesPerWriter <= 0 {
		opts.NotesPerWriter = 50
	}
	if opts.Pollers <= 0 {
		opts.Pollers = 5
	}
	if opts.PollsPerPoller <= 0 {
		opts.PollsPerPoller = 20
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	r := repo.New(db, repo.Options{})
	defer r.Close()

	now := time.Now().UTC()
	notebook, err := r.CreateNotebook(ctx, data.NewNotebook{
		Title:     "loadtest",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create notebook: %w", err)
	}

	start := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var writeDurations, pollDurations []time.Duration
	var writeErrors, pollErrors int

	for w := 0; w < opts.Writers; w++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()

			durations := make([]time.Duration, 0, opts.NotesPerWriter)
			errs := 0
			for i := 0; i < opts.NotesPerWriter; i++ {
				ts := time.Now().UTC()
				began := time.Now()
				_, err := r.CreateNote(ctx, data.NewNote{
					Title:      fmt.Sprintf("writer %d note %d", writer, i),
					Tags:       []string{"loadtest"},
					NotebookID: notebook.ID,
					CreatedAt:  ts,
					UpdatedAt:  ts,
				})
				durations = append(durations, time.Since(began))
				if err != nil {
					errs++
				}
			}

			mu.Lock()
			writeDurations = append(writeDurations, durations...)
			writeErrors += errs
			mu.Unlock()
		}(w)
	}

	for p := 0; p < opts.Pollers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			durations := make([]time.Duration, 0, opts.PollsPerPoller)
			errs := 0
			var cursor *time.Time
			for i := 0; i < opts.PollsPerPoller; i++ {
				began := time.Now()
				response, err := r.GetChanges(ctx, cursor)
				durations = append(durations, time.Since(began))
				if err != nil {
					errs++
					continue
				}
				cursor = &response.Revision
			}

			mu.Lock()
			pollDurations = append(pollDurations, durations...)
			pollErrors += errs
			mu.Unlock()
		}()
	}

	wg.Wait()

	result := &Result{
		Writes:   computeStats(writeDurations),
		Polls:    computeStats(pollDurations),
		Duration: time.Since(start),
	}
	result.Writes.Errors = writeErrors
	result.Polls.Errors = pollErrors

	return result, nil
}

func computeStats(durations []time.Duration) LatencyStats {
	if len(durations) == 0 {
		return LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	percentile := func(p float64) time.Duration {
		idx := int(float64(len(sorted)-1) * p)
		return sorted[idx]
	}

	return LatencyStats{
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  sum / time.Duration(len(sorted)),
		P50:   percentile(0.50),
		P95:   percentile(0.95),
		P99:   percentile(0.99),
		Total: len(sorted),
	}
}

// String renders the stats for CLI output.
func (s LatencyStats) String() string {
	return fmt.Sprintf("n=%d errors=%d min=%v p50=%v p95=%v p99=%v max=%v mean=%v",
		s.Total, s.Errors, s.Min, s.P50, s.P95, s.P99, s.Max, s.Mean)
}
