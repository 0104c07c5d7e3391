package render

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Pool caps the number of concurrently open sessions of the wrapped driver.
// Callers beyond the cap block until a session is closed or their context
// is done.
type Pool struct {
	driver Driver
	slots  chan struct{}
	active atomic.Int64
	logger *slog.Logger
}

// NewPool creates a new bounded session pool
func NewPool(driver Driver, size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		driver: driver,
		slots:  make(chan struct{}, size),
		logger: logger,
	}
}

// NewSession waits for a free slot and opens a session on the wrapped driver
func (p *Pool) NewSession(ctx context.Context, identity Identity) (Session, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	session, err := p.driver.NewSession(ctx, identity)
	if err != nil {
		<-p.slots
		return nil, err
	}

	active := p.active.Add(1)
	p.logger.Debug("Render session opened", "active", active, "capacity", cap(p.slots))

	return &pooledSession{Session: session, pool: p}, nil
}

// Active returns the number of sessions currently open
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Capacity returns the maximum number of concurrent sessions
func (p *Pool) Capacity() int {
	return cap(p.slots)
}

// Close closes the wrapped driver
func (p *Pool) Close() error {
	return p.driver.Close()
}

func (p *Pool) release() {
	active := p.active.Add(-1)
	<-p.slots
	p.logger.Debug("Render session released", "active", active)
}

type pooledSession struct {
	Session
	pool *Pool
	once sync.Once
}

// Close closes the underlying session and frees its slot exactly once
func (s *pooledSession) Close() error {
	err := s.Session.Close()
	s.once.Do(s.pool.release)
	return err
}
