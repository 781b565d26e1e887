package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/abceng/pressline/pkg/dataset"
	"github.com/abceng/pressline/pkg/pipeline"
	"github.com/abceng/pressline/pkg/types"
	"github.com/abceng/pressline/server/internal/store"
)

// ErrNoSource is returned when a log is submitted without a source name.
var ErrNoSource = errors.New("ingest: source is required")

// Compute returns a store.ComputeFunc that decodes a production log with
// opts and runs the cleaning pipeline over it.
func Compute(opts dataset.Options) store.ComputeFunc {
	return func(data []byte) ([]string, types.Result, error) {
		tbl, err := dataset.Read(bytes.NewReader(data), opts)
		if err != nil {
			return nil, types.Result{}, err
		}
		return tbl.Header, pipeline.Run(tbl.Records), nil
	}
}

// Hook is called after every successful ingest with the report now current
// for source.
type Hook func(source string, e *store.Entry)

// Service feeds production logs into the report store.
type Service struct {
	store *store.Store

	mu    sync.RWMutex
	hooks []Hook
}

// New creates a Service that writes reports to st.
func New(st *store.Store) *Service {
	return &Service{store: st}
}

// OnReport registers h to run after each successful ingest.
func (s *Service) OnReport(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Ingest analyses data under the given source name. cached reports whether
// the result came from the memo without recomputation.
func (s *Service) Ingest(ctx context.Context, source string, data []byte) (*store.Entry, bool, error) {
	if source == "" {
		return nil, false, ErrNoSource
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	e, cached, err := s.store.Analyze(source, data)
	if err != nil {
		return nil, false, fmt.Errorf("ingest: %s: %w", source, err)
	}

	st := e.Result.Stats
	slog.Info("ingest: report ready",
		"source", source,
		"id", e.ID,
		"cached", cached,
		"input_rows", st.InputRows,
		"kept_rows", st.KeptRows,
		"unparsed_loss_codes", st.UnparsedLossCodes,
	)

	s.mu.RLock()
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.RUnlock()
	for _, h := range hooks {
		h(source, e)
	}
	return e, cached, nil
}

// IngestFile reads path and ingests it with the path as the source name.
func (s *Service) IngestFile(ctx context.Context, path string) (*store.Entry, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("ingest: read %q: %w", path, err)
	}
	return s.Ingest(ctx, path, data)
}
