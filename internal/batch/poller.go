// Package batch drives the ingestor from a watched directory or from S3 events.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/diewo77/go-sales-loader/internal/apperrors"
	"github.com/diewo77/go-sales-loader/internal/config"
	"github.com/diewo77/go-sales-loader/internal/ingest"
	"github.com/diewo77/go-sales-loader/internal/metrics"
)

// FileIngestor loads one file. *ingest.Ingestor implements it.
type FileIngestor interface {
	Ingest(ctx context.Context, name string, content []byte) (ingest.Result, error)
}

// File states reported in a TickSummary.
const (
	StatusArchived      = "archived"
	StatusFailed        = "failed"
	StatusDeadLettered  = "dead_lettered"
	StatusArchiveFailed = "archive_failed"
)

// FileOutcome is what happened to one file during a tick.
type FileOutcome struct {
	File     string `json:"file"`
	Status   string `json:"status"`
	LoadID   string `json:"load_id,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Error    string `json:"error,omitempty"`
}

// TickSummary describes the most recent poll.
type TickSummary struct {
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration_ns"`
	Discovered   int           `json:"discovered"`
	Archived     int           `json:"archived"`
	Failed       int           `json:"failed"`
	DeadLettered int           `json:"dead_lettered"`
	ListError    string        `json:"list_error,omitempty"`
	Files        []FileOutcome `json:"files"`
}

// Poller lists the watch directory on every tick and ingests each CSV file in name
// order. Loaded files move to the processed directory. Failed files stay in place
// and are retried on the next tick; with MaxAttempts > 0 a file that fails that many
// consecutive ticks moves to the failed directory instead.
type Poller struct {
	ingestor FileIngestor
	cfg      config.WatchConfig
	log      *zap.Logger
	metrics  *metrics.Registry

	attempts map[string]int // only touched by Tick

	mu   sync.Mutex
	last *TickSummary
}

// NewPoller creates a poller. m may be nil.
func NewPoller(ingestor FileIngestor, cfg config.WatchConfig, log *zap.Logger, m *metrics.Registry) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		ingestor: ingestor,
		cfg:      cfg,
		log:      log,
		metrics:  m,
		attempts: make(map[string]int),
	}
}

// Prepare creates the watch, processed and failed directories.
func (p *Poller) Prepare() error {
	dirs := []string{p.cfg.Dir, p.cfg.ProcessedDir()}
	if p.cfg.MaxAttempts > 0 {
		dirs = append(dirs, p.cfg.FailedDir())
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// Run ticks until ctx is cancelled, sleeping PollInterval between ticks.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("Watching directory",
		zap.String("dir", p.cfg.Dir),
		zap.String("processed", p.cfg.ProcessedDir()),
		zap.Duration("interval", p.cfg.PollInterval),
		zap.Int("max_attempts", p.cfg.MaxAttempts))
	for {
		p.Tick(ctx)
		select {
		case <-ctx.Done():
			p.log.Info("Poller stopped")
			return nil
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

// LastTick returns a copy of the most recent summary, or nil before the first tick.
func (p *Poller) LastTick() *TickSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	s := *p.last
	s.Files = append([]FileOutcome(nil), p.last.Files...)
	return &s
}

// Tick processes the files currently in the watch directory once.
// A failing file never stops its siblings.
func (p *Poller) Tick(ctx context.Context) (sum TickSummary) {
	sum.StartedAt = time.Now()
	defer func() {
		sum.Duration = time.Since(sum.StartedAt)
		p.mu.Lock()
		p.last = &sum
		p.mu.Unlock()
	}()

	names, err := p.list()
	if err != nil {
		p.log.Error("Failed to list watch directory", zap.String("dir", p.cfg.Dir), zap.Error(err))
		sum.ListError = err.Error()
		return sum
	}
	sum.Discovered = len(names)
	p.prune(names)

	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		out := p.process(ctx, name)
		switch out.Status {
		case StatusArchived:
			sum.Archived++
		case StatusDeadLettered:
			sum.DeadLettered++
		default:
			sum.Failed++
		}
		sum.Files = append(sum.Files, out)
	}
	p.metrics.SetPending(sum.Failed)
	if sum.Discovered > 0 {
		p.log.Info("Tick finished",
			zap.Int("discovered", sum.Discovered),
			zap.Int("archived", sum.Archived),
			zap.Int("failed", sum.Failed),
			zap.Int("dead_lettered", sum.DeadLettered))
	}
	return sum
}

func (p *Poller) process(ctx context.Context, name string) FileOutcome {
	src := filepath.Join(p.cfg.Dir, name)
	out := FileOutcome{File: name}

	content, err := os.ReadFile(src)
	var res ingest.Result
	if err == nil {
		res, err = p.ingestor.Ingest(ctx, name, content)
		out.LoadID = res.LoadID
	}
	if err != nil {
		return p.fail(ctx, out, err)
	}
	delete(p.attempts, name)

	if err := moveFile(src, filepath.Join(p.cfg.ProcessedDir(), name)); err != nil {
		// The rows are committed; leaving the file means the next tick loads it again.
		p.log.Error("Loaded file could not be archived",
			zap.String("file", name), zap.String("load_id", res.LoadID), zap.Error(err))
		out.Status = StatusArchiveFailed
		out.Error = err.Error()
		return out
	}
	out.Status = StatusArchived
	return out
}

// fail records a failed load. A load cut short by shutdown is not an attempt.
func (p *Poller) fail(ctx context.Context, out FileOutcome, err error) FileOutcome {
	out.Kind = apperrors.Kind(err)
	out.Error = err.Error()
	out.Status = StatusFailed
	if ctx.Err() != nil {
		out.Attempts = p.attempts[out.File]
		p.log.Warn("Load interrupted by shutdown",
			zap.String("file", out.File),
			zap.String("load_id", out.LoadID),
			zap.Error(err))
		return out
	}

	p.attempts[out.File]++
	out.Attempts = p.attempts[out.File]

	p.log.Error("Failed to load file",
		zap.String("file", out.File),
		zap.String("load_id", out.LoadID),
		zap.Int("attempt", out.Attempts),
		zap.String("kind", out.Kind),
		zap.Error(err))

	if p.cfg.MaxAttempts <= 0 || out.Attempts < p.cfg.MaxAttempts {
		return out
	}
	dst := filepath.Join(p.cfg.FailedDir(), out.File)
	if mvErr := moveFile(filepath.Join(p.cfg.Dir, out.File), dst); mvErr != nil {
		p.log.Error("Failed to dead-letter file", zap.String("file", out.File), zap.Error(mvErr))
		return out
	}
	delete(p.attempts, out.File)
	p.metrics.ObserveDeadLetter()
	p.log.Warn("File moved to failed directory",
		zap.String("file", out.File), zap.String("dest", dst), zap.Int("attempts", out.Attempts))
	out.Status = StatusDeadLettered
	return out
}

// list returns the regular files carrying the configured suffix, sorted by name.
func (p *Poller) list() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.Dir)
	if err != nil {
		return nil, err
	}
	suffix := strings.ToLower(p.cfg.Suffix)
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(strings.ToLower(e.Name()), suffix) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// prune forgets attempt counts of files that left the directory.
func (p *Poller) prune(present []string) {
	seen := make(map[string]struct{}, len(present))
	for _, n := range present {
		seen[n] = struct{}{}
	}
	for n := range p.attempts {
		if _, ok := seen[n]; !ok {
			delete(p.attempts, n)
		}
	}
}

// moveFile renames src to dst, replacing dst. A missing src that already sits at
// dst counts as moved.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	err := os.Rename(src, dst)
	if errors.Is(err, os.ErrNotExist) {
		if _, statErr := os.Stat(dst); statErr == nil {
			return nil
		}
	}
	return err
}
