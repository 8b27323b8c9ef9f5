// Package session keeps one cart store per browsing session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Davidgwa1996/unidigitalcom/internal/cartstore"
	"github.com/Davidgwa1996/unidigitalcom/internal/storage"
)

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "storefront_cart_sessions_active",
	Help: "Cart stores currently held in memory",
})

// Hook is called once for every store the manager creates, before the store
// is handed out. It is the place to attach listeners.
type Hook func(sessionID string, store *cartstore.Store)

type entry struct {
	store    *cartstore.Store
	lastSeen time.Time
}

// Manager creates cart stores on first use and hands the same store to every
// caller of a session.
type Manager struct {
	provider storage.Provider
	opts     cartstore.Options
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	hooks    []Hook
}

// NewManager creates a manager whose stores persist through provider.
func NewManager(provider storage.Provider, opts cartstore.Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		provider: provider,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// OnCreate registers a hook for stores created after this call.
func (m *Manager) OnCreate(h Hook) {
	m.mu.Lock()
	m.hooks = append(m.hooks, h)
	m.mu.Unlock()
}

// Get returns the store of sessionID, restoring it from storage the first
// time the session is seen by this process. When the restore fails nothing
// is cached and the next call tries again.
func (m *Manager) Get(ctx context.Context, sessionID string) (*cartstore.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[sessionID]; ok {
		e.lastSeen = m.now()
		return e.store, nil
	}

	opts := m.opts
	opts.Logger = m.logger.With(slog.String("session_id", sessionID))
	store, err := cartstore.New(ctx, m.provider.ForSession(sessionID), opts)
	if err != nil {
		return nil, fmt.Errorf("restore cart of session %s: %w", sessionID, err)
	}
	for _, h := range m.hooks {
		h(sessionID, store)
	}

	m.sessions[sessionID] = &entry{store: store, lastSeen: m.now()}
	activeSessions.Inc()
	return store, nil
}

// Len returns the number of stores held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle drops stores not accessed since now-maxIdle and returns how many
// were dropped. Their persisted state is untouched and restored on next use.
func (m *Manager) EvictIdle(now time.Time, maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-maxIdle)
	evicted := 0
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	activeSessions.Sub(float64(evicted))
	return evicted
}

// RunJanitor evicts idle stores every interval until ctx is cancelled.
func (m *Manager) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.EvictIdle(m.now(), maxIdle); n > 0 {
				m.logger.Debug("evicted idle cart sessions", slog.Int("count", n))
			}
		}
	}
}
