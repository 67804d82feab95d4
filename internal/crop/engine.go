package crop

import (
	"context"
	"image"
	"log/slog"
	"sync"
)

// ImageLoader resolves a source reference into a decoded image.
type ImageLoader interface {
	Load(ctx context.Context, source string) (image.Image, error)
}

// Engine runs the asynchronous image loads of crop sessions and abandons
// them when a session is cancelled or re-opened.
type Engine struct {
	loader ImageLoader

	mu      sync.Mutex
	pending map[*Session]context.CancelFunc
}

func NewEngine(loader ImageLoader) *Engine {
	return &Engine{
		loader:  loader,
		pending: make(map[*Session]context.CancelFunc),
	}
}

// Open (re)initializes s with source and loads it in the background. The
// returned channel is closed once the load has finished or was abandoned.
func (e *Engine) Open(ctx context.Context, s *Session, source string) <-chan struct{} {
	loadCtx, cancel := context.WithCancel(ctx)

	// e.mu covers both the ticket bump and the pending swap, so the entry
	// left in pending always belongs to the newest ticket.
	e.mu.Lock()
	ticket := s.Open(source)
	if prev, ok := e.pending[s]; ok {
		prev()
	}
	e.pending[s] = cancel
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer e.release(s, ticket)

		img, err := e.loader.Load(loadCtx, source)
		if loadCtx.Err() != nil {
			slog.Debug("Crop image load abandoned", "session_id", s.ID())
			return
		}
		if !s.Loaded(ticket, img, err) {
			return
		}
		if err != nil {
			slog.Warn("Crop image load failed", "session_id", s.ID(), "err", err)
			return
		}
		slog.Info("Crop image ready", "session_id", s.ID(), "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	}()
	return done
}

// Cancel cancels s and any load still running for it.
func (e *Engine) Cancel(s *Session) bool {
	e.mu.Lock()
	cancelled := s.Cancel()
	if cancel, ok := e.pending[s]; ok {
		cancel()
		delete(e.pending, s)
	}
	e.mu.Unlock()

	return cancelled
}

func (e *Engine) release(s *Session, ticket uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// A newer Open may have replaced the entry; only drop our own.
	s.mu.Lock()
	current := s.ticket == ticket
	s.mu.Unlock()
	if cancel, ok := e.pending[s]; ok && current {
		cancel()
		delete(e.pending, s)
	}
}
