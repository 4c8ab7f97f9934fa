package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/docextract/pkg/models"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxConcurrent = 4
	maxErrorBytes        = 2000
	defaultFailure       = "document analysis failed"
	resultSuffix         = "_processed.json"
)

// RunnerConfig controls how submitted documents are processed.
type RunnerConfig struct {
	MaxConcurrent int64
	Timeout       time.Duration
	IncludeText   bool
}

// Runner creates jobs and processes their documents in background goroutines.
type Runner struct {
	store    Store
	analyzer models.DocumentAnalyzer
	sem      *semaphore.Weighted
	timeout  time.Duration
	text     bool
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewRunner creates a new Runner. A nil logger falls back to slog.Default().
func NewRunner(st Store, analyzer models.DocumentAnalyzer, cfg RunnerConfig, logger *slog.Logger) *Runner {
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = defaultMaxConcurrent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    st,
		analyzer: analyzer,
		sem:      semaphore.NewWeighted(limit),
		timeout:  cfg.Timeout,
		text:     cfg.IncludeText,
		logger:   logger,
	}
}

// Submit registers a processing job for the document and starts analysis in
// the background. It returns as soon as the job exists; it never waits for
// the analyzer.
func (r *Runner) Submit(filename string, document []byte) (models.Job, error) {
	id := uuid.NewString()
	if err := r.store.Create(id, filename); err != nil {
		return models.Job{}, fmt.Errorf("creating job: %w", err)
	}
	job, err := r.store.Get(id)
	if err != nil {
		return models.Job{}, fmt.Errorf("reading new job: %w", err)
	}

	r.wg.Add(1)
	go r.run(id, filename, document)

	return job, nil
}

// Wait blocks until every started run has written its terminal state or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run processes one document. It recovers from panics and always leaves the
// job completed or failed.
func (r *Runner) run(id, filename string, document []byte) {
	defer r.wg.Done()

	log := r.logger.With("job_id", id)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic in document run", "error", rec)
			r.fail(log, id, fmt.Sprintf("panic: %v", rec))
		}
	}()

	ctx := context.Background()
	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.fail(log, id, fmt.Sprintf("acquiring run slot: %v", err))
		return
	}
	defer r.sem.Release(1)

	start := time.Now()
	log.Info("document analysis started", "filename", filename, "bytes", len(document), "analyzer", r.analyzer.Name())

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	result, err := r.analyzer.Analyze(ctx, document)
	if err != nil {
		r.fail(log, id, err.Error())
		return
	}
	if result == nil {
		r.fail(log, id, "analyzer returned no result")
		return
	}

	payload, err := json.MarshalIndent(models.NewPayload(result, r.text), "", "  ")
	if err != nil {
		r.fail(log, id, fmt.Sprintf("encoding result: %v", err))
		return
	}

	err = r.store.Set(id, models.Job{
		Status: models.JobStatusCompleted,
		Result: &models.JobResult{
			Filename: ResultFilename(filename),
			Payload:  payload,
		},
	})
	if err != nil {
		log.Error("storing completed job", "error", err)
		r.fail(log, id, fmt.Sprintf("storing result: %v", err))
		return
	}

	log.Info("document analysis completed",
		"tables", len(result.Tables),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// fail records the terminal failed state. A failed job always carries a
// description, so an empty msg is replaced with a generic one.
func (r *Runner) fail(log *slog.Logger, id, msg string) {
	if strings.TrimSpace(msg) == "" {
		msg = defaultFailure
	}
	msg = truncateString(msg, maxErrorBytes)
	log.Error("document analysis failed", "error", msg)
	if err := r.store.Set(id, models.Job{Status: models.JobStatusFailed, Error: msg}); err != nil {
		log.Error("storing failed job", "error", err)
	}
}

// ResultFilename derives the download name from the uploaded filename:
// the base name up to its first dot, followed by "_processed.json".
func ResultFilename(uploaded string) string {
	base := path.Base(strings.ReplaceAll(uploaded, `\`, "/"))
	stem, _, _ := strings.Cut(base, ".")
	stem = strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, stem)
	if stem == "" || stem == "/" {
		stem = "document"
	}
	return stem + resultSuffix
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
