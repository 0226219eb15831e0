package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/bcinsights/bcinsights/internal/metrics"
	"github.com/bcinsights/bcinsights/internal/utils"
)

// ErrDataUnavailable is returned when a dataset file is missing or malformed.
var ErrDataUnavailable = utils.ErrDataUnavailable

// Loader reads named CSV datasets from a directory and memoizes them.
type Loader struct {
	dir    string
	logger *slog.Logger

	mu     sync.RWMutex
	tables map[string]*Table
	group  singleflight.Group
}

// NewLoader constructs a Loader rooted at dir.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		dir:    dir,
		logger: logger.With("component", "dataset_loader"),
		tables: make(map[string]*Table),
	}
}

// Load returns the named dataset, reading it on first use. Failed loads are
// not cached so a later call can pick up a repaired file.
func (l *Loader) Load(ctx context.Context, name string) (*Table, error) {
	if !Known(name) {
		return nil, utils.NewAppError("dataset.load", fmt.Sprintf("unknown dataset %q", name), utils.ErrNotFound)
	}

	l.mu.RLock()
	t, ok := l.tables[name]
	l.mu.RUnlock()
	if ok {
		return t, nil
	}

	ch := l.group.DoChan(name, func() (any, error) {
		return l.read(name)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Table), nil
	}
}

func (l *Loader) read(name string) (*Table, error) {
	l.mu.RLock()
	t, ok := l.tables[name]
	l.mu.RUnlock()
	if ok {
		return t, nil
	}

	path := filepath.Join(l.dir, name+".csv")
	f, err := os.Open(path)
	if err != nil {
		metrics.ObserveDatasetLoad(metrics.OutcomeError)
		l.logger.Warn("dataset file unavailable", "dataset", name, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, name, err)
	}
	defer f.Close()

	t, err = ReadCSV(name, f)
	if err != nil {
		metrics.ObserveDatasetLoad(metrics.OutcomeError)
		l.logger.Warn("dataset file malformed", "dataset", name, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	l.mu.Lock()
	l.tables[name] = t
	l.mu.Unlock()

	metrics.ObserveDatasetLoad(metrics.OutcomeSuccess)
	l.logger.Debug("dataset loaded", "dataset", name, "rows", t.Len(), "columns", t.Schema().Len())
	return t, nil
}

// Preload warms the cache and returns how many datasets loaded. Failures are
// logged and skipped.
func (l *Loader) Preload(ctx context.Context, names ...string) int {
	loaded := 0
	for _, name := range names {
		if _, err := l.Load(ctx, name); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return loaded
			}
			l.logger.Warn("dataset preload failed", "dataset", name, "error", err)
			continue
		}
		loaded++
	}
	return loaded
}

// Cached reports whether name is already in memory.
func (l *Loader) Cached(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.tables[name]
	return ok
}
