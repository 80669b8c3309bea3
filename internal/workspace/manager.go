package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/starford/noteflow/internal/ai"
	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/docstore"
	"github.com/starford/noteflow/internal/export"
	"github.com/starford/noteflow/internal/remote"
	"github.com/starford/noteflow/internal/sse"
)

// Manager opens one workspace per user on first use and keeps it until
// Close.
type Manager struct {
	ctx      context.Context
	db       *docstore.DB
	broker   *sse.Broker
	gen      ai.Generator
	exporter *export.Exporter
	timing   Timing
	logger   *slog.Logger

	mu     sync.Mutex
	spaces map[string]*Workspace
	closed bool
}

// NewManager creates a manager. Workspaces live under ctx.
func NewManager(ctx context.Context, db *docstore.DB, broker *sse.Broker, gen ai.Generator, exporter *export.Exporter, timing Timing, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		ctx:      ctx,
		db:       db,
		broker:   broker,
		gen:      gen,
		exporter: exporter,
		timing:   timing,
		logger:   logger,
		spaces:   make(map[string]*Workspace),
	}
}

// Get returns the workspace of user, opening it if needed.
func (m *Manager) Get(user string) (*Workspace, error) {
	if user == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("workspace: manager closed")
	}
	if w, ok := m.spaces[user]; ok {
		return w, nil
	}
	rs := remote.NewLocal(m.db, m.broker, user, m.logger)
	w, err := Open(m.ctx, rs, m.gen, m.exporter, m.timing, m.logger)
	if err != nil {
		return nil, err
	}
	m.spaces[user] = w
	return w, nil
}

// Close flushes and closes every open workspace.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	spaces := m.spaces
	m.spaces = make(map[string]*Workspace)
	m.closed = true
	m.mu.Unlock()

	var errs []error
	for user, w := range spaces {
		if err := w.Close(ctx); err != nil {
			m.logger.Warn("workspace: close failed",
				slog.String("user_id", user),
				slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
