// Package snapshot watches project workspaces for file changes and
// triggers a code analysis once edits settle. Polling with a content
// hash keeps the watcher independent of how files are persisted.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/google/uuid"
)

// Analyzer runs a code review over project files
type Analyzer interface {
	AnalyzeCode(ctx context.Context, files []domain.ProjectFile) (*domain.CodeAnalysis, error)
}

// ResultFunc receives completed analyses
type ResultFunc func(projectID uuid.UUID, analysis *domain.CodeAnalysis)

// Config tunes the poller
type Config struct {
	Interval time.Duration // how often to poll, default 10s
	Debounce time.Duration // quiet period before analyzing, default 30s
}

// Poller periodically snapshots watched projects and analyzes them
// after their files stop changing
type Poller struct {
	projects domain.ProjectRepository
	analyzer Analyzer
	onResult ResultFunc
	interval time.Duration
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	watched map[uuid.UUID]*watchState

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type watchState struct {
	hash      string
	changedAt time.Time
	dirty     bool
}

// NewPoller creates a snapshot poller
func NewPoller(projects domain.ProjectRepository, analyzer Analyzer, onResult ResultFunc, cfg Config, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		projects: projects,
		analyzer: analyzer,
		onResult: onResult,
		interval: cfg.Interval,
		debounce: cfg.Debounce,
		logger:   logger,
		watched:  make(map[uuid.UUID]*watchState),
	}
}

// Watch adds a project to the polling set
func (p *Poller) Watch(projectID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.watched[projectID]; !ok {
		p.watched[projectID] = &watchState{}
	}
}

// Unwatch removes a project from the polling set
func (p *Poller) Unwatch(projectID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.watched, projectID)
}

// Start begins polling until the context is cancelled or Stop is called
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.poll(ctx)
			}
		}
	}()
}

// Stop halts polling and waits for in-flight work
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// poll takes one snapshot pass over all watched projects
func (p *Poller) poll(ctx context.Context) {
	p.mu.Lock()
	ids := make([]uuid.UUID, 0, len(p.watched))
	for id := range p.watched {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.pollProject(ctx, id)
	}
}

func (p *Poller) pollProject(ctx context.Context, id uuid.UUID) {
	project, err := p.projects.GetByID(ctx, id)
	if err != nil {
		p.logger.Warn("snapshot poll failed", "project_id", id, "error", err)
		return
	}

	hash := hashFiles(project.Files)
	now := time.Now()

	p.mu.Lock()
	state, ok := p.watched[id]
	if !ok {
		p.mu.Unlock()
		return
	}

	switch {
	case state.hash == "":
		// First observation establishes the baseline
		state.hash = hash
		p.mu.Unlock()
		return
	case hash != state.hash:
		state.hash = hash
		state.changedAt = now
		state.dirty = true
		p.mu.Unlock()
		return
	case !state.dirty || now.Sub(state.changedAt) < p.debounce:
		p.mu.Unlock()
		return
	}
	state.dirty = false
	p.mu.Unlock()

	analysis, err := p.analyzer.AnalyzeCode(ctx, project.Files)
	if err != nil {
		p.logger.Warn("snapshot analysis failed", "project_id", id, "error", err)
		// Retry on the next settled snapshot
		p.mu.Lock()
		if state, ok := p.watched[id]; ok {
			state.dirty = true
		}
		p.mu.Unlock()
		return
	}

	p.logger.Info("snapshot analyzed", "project_id", id, "issues", len(analysis.Issues))
	if p.onResult != nil {
		p.onResult(id, analysis)
	}
}

func hashFiles(files []domain.ProjectFile) string {
	h := sha256.New()
	for _, f := range files {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write([]byte(f.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
