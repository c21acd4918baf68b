package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/koustreak/deckbuilder/internal/errs"
	"github.com/koustreak/deckbuilder/internal/logger"
)

// closeTimeout bounds how long a destructor waits for a connection to
// terminate gracefully.
const closeTimeout = 5 * time.Second

// Pool is the process-wide set of database connections. It is created once
// at startup, shared by reference with every handler, and closed at
// shutdown. It is safe for concurrent use by multiple goroutines.
//
// Admission is bounded by Config.MaxSize: leased plus idle connections
// never exceed it. Idle connections are recycled by a background sweep,
// never by request traffic.
type Pool struct {
	cfg     Config
	res     *puddle.Pool[Conn]
	log     *logger.Logger
	connect Connector

	wake      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	timeouts  atomic.Int64
	recycled  atomic.Int64
	discarded atomic.Int64
}

// NewPool builds the pool and establishes cfg.MinIdle connections before
// returning. If any of them cannot be opened the pool is torn down and a
// connection_failed error is returned; callers must treat it as fatal.
func NewPool(ctx context.Context, cfg *Config, connect Connector, log *logger.Logger) (*Pool, error) {
	if cfg == nil {
		return nil, errs.New(errs.ErrKindConfig, "pool config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if connect == nil {
		return nil, errs.New(errs.ErrKindConfig, "pool connector is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	p := &Pool{
		cfg:     *cfg,
		log:     log.With().Str("component", "pool").Logger(),
		connect: connect,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	res, err := puddle.NewPool(&puddle.Config[Conn]{
		Constructor: p.construct,
		Destructor:  destroy,
		MaxSize:     cfg.MaxSize,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfig, "invalid pool configuration", err)
	}
	p.res = res

	for i := int32(0); i < cfg.MinIdle; i++ {
		if err := res.CreateResource(ctx); err != nil {
			res.Close()
			return nil, errs.Wrap(errs.ErrKindConnectionFailed,
				fmt.Sprintf("established %d of %d idle connections", i, cfg.MinIdle), err)
		}
	}

	p.wg.Add(1)
	go p.maintain()

	p.log.InfoWith("connection pool ready", map[string]any{
		"min_idle":           cfg.MinIdle,
		"max_size":           cfg.MaxSize,
		"idle_timeout":       cfg.IdleTimeout.String(),
		"connection_timeout": cfg.ConnectionTimeout.String(),
	})
	return p, nil
}

// construct is the puddle constructor. Establishing a connection is bounded
// by ConnectionTimeout regardless of what the caller's context allows.
func (p *Pool) construct(ctx context.Context) (Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectionTimeout)
	defer cancel()

	conn, err := p.connect(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to open database connection", err)
	}
	return conn, nil
}

func destroy(c Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	_ = c.Close(ctx)
}

// discard removes an acquired resource from the pool and closes its
// connection. Hijack frees the slot synchronously, unlike Destroy, so a
// replenish that runs right after sees the reduced total.
func discard(res *puddle.Resource[Conn]) {
	conn := res.Value()
	res.Hijack()
	destroy(conn)
}

// Config returns a copy of the pool configuration.
func (p *Pool) Config() Config {
	return p.cfg
}

// Acquire leases a connection, waiting at most ConnectionTimeout (or less
// if ctx expires first).
//
// Errors:
//   - unavailable: no connection freed up in time (pool exhausted) or the
//     pool is closed. Transient; clients may retry.
//   - timeout: ctx was cancelled or hit its own deadline before
//     ConnectionTimeout, e.g. the client went away.
//   - connection_failed: a new connection could not be opened.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	actx, cancel := context.WithTimeout(ctx, p.cfg.ConnectionTimeout)
	defer cancel()

	res, err := p.res.Acquire(actx)
	if err != nil {
		return nil, p.acquireError(ctx, actx, err)
	}
	return &Lease{pool: p, res: res}, nil
}

func (p *Pool) acquireError(parent, actx context.Context, err error) error {
	var e *errs.Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, puddle.ErrClosedPool):
		return errs.Wrap(errs.ErrKindUnavailable, "connection pool is closed", err)
	case parent.Err() != nil:
		// The caller gave up first, either cancelled or on its own earlier
		// deadline. The pool was not necessarily exhausted.
		return errs.Wrap(errs.ErrKindTimeout, "caller stopped waiting for a connection", err)
	case actx.Err() != nil:
		p.timeouts.Add(1)
		return errs.Wrap(errs.ErrKindUnavailable,
			fmt.Sprintf("no database connection available within %s", p.cfg.ConnectionTimeout), err)
	default:
		return errs.Wrap(errs.ErrKindConnectionFailed, "failed to acquire connection", err)
	}
}

// WithConn leases a connection for the duration of fn and returns it on
// every exit path: normal return, error, and panic. If fn panics or fails
// with a connection or timeout error the connection is discarded instead
// of being reused.
func (p *Pool) WithConn(ctx context.Context, fn func(Conn) error) (err error) {
	lease, err := p.Acquire(ctx)
	if err != nil {
		return err
	}

	completed := false
	defer func() {
		if !completed || errs.IsConnectionFailed(err) || errs.IsTimeout(err) {
			lease.MarkBroken()
		}
		lease.Release()
	}()

	err = fn(lease.Conn())
	completed = true
	return err
}

// Ping leases a connection and performs a trivial round-trip on it.
func (p *Pool) Ping(ctx context.Context) error {
	return p.WithConn(ctx, func(c Conn) error {
		return c.Ping(ctx)
	})
}

func (p *Pool) release(res *puddle.Resource[Conn], broken bool) {
	if broken || res.Value().IsClosed() {
		discard(res)
		p.discarded.Add(1)
		p.log.Warn("discarded broken database connection")
		p.signal()
		return
	}
	res.Release()
}

// signal wakes the maintenance loop without blocking.
func (p *Pool) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// maintain runs the idle sweep on a timer and replaces discarded
// connections when woken by release.
func (p *Pool) maintain() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.sweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.sweep()
		case <-p.wake:
			p.replenish()
		}
	}
}

// sweep closes idle connections unused for longer than IdleTimeout, then
// tops the idle set back up to MinIdle. Leased connections are not idle
// and therefore never visited here.
func (p *Pool) sweep() {
	var expired int64
	if p.cfg.IdleTimeout > 0 {
		for _, res := range p.res.AcquireAllIdle() {
			if res.IdleDuration() > p.cfg.IdleTimeout {
				discard(res)
				expired++
				continue
			}
			res.ReleaseUnused()
		}
	}
	if expired > 0 {
		p.recycled.Add(expired)
		p.log.Debugf("recycled %d idle connections", expired)
	}
	p.replenish()
}

// replenish opens connections until MinIdle are idle, without ever
// exceeding MaxSize in total.
func (p *Pool) replenish() {
	for {
		select {
		case <-p.done:
			return
		default:
		}

		st := p.res.Stat()
		if st.IdleResources() >= p.cfg.MinIdle || st.TotalResources() >= p.cfg.MaxSize {
			return
		}

		err := p.res.CreateResource(context.Background())
		if err != nil {
			if !errors.Is(err, puddle.ErrNotAvailable) && !errors.Is(err, puddle.ErrClosedPool) {
				p.log.WarnWith("failed to replace idle connection", err, map[string]any{
					"idle":  st.IdleResources(),
					"total": st.TotalResources(),
				})
			}
			return
		}
	}
}

// Stat is a point-in-time snapshot of pool usage.
type Stat struct {
	Total        int32
	Idle         int32
	Leased       int32
	Constructing int32
	MaxSize      int32

	AcquireCount         int64
	EmptyAcquireCount    int64 // acquires that had to wait or open a connection
	CanceledAcquireCount int64
	AcquireDuration      time.Duration

	Timeouts  int64 // acquires that gave up after ConnectionTimeout
	Recycled  int64 // idle connections closed by the sweep
	Discarded int64 // broken connections destroyed on release
}

// Stat returns current pool statistics.
func (p *Pool) Stat() Stat {
	st := p.res.Stat()
	return Stat{
		Total:                st.TotalResources(),
		Idle:                 st.IdleResources(),
		Leased:               st.AcquiredResources(),
		Constructing:         st.ConstructingResources(),
		MaxSize:              st.MaxResources(),
		AcquireCount:         st.AcquireCount(),
		EmptyAcquireCount:    st.EmptyAcquireCount(),
		CanceledAcquireCount: st.CanceledAcquireCount(),
		AcquireDuration:      st.AcquireDuration(),
		Timeouts:             p.timeouts.Load(),
		Recycled:             p.recycled.Load(),
		Discarded:            p.discarded.Load(),
	}
}

// Close stops the maintenance loop, waits for every outstanding lease to be
// released and closes all connections. Safe to call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
		p.res.Close()
		p.log.Info("connection pool closed")
	})
}

// --- Lease ---

// Lease is a connection checked out of the pool for one request. It is
// owned exclusively by the holder until Release.
type Lease struct {
	pool   *Pool
	res    *puddle.Resource[Conn]
	once   sync.Once
	broken atomic.Bool
}

// Conn returns the leased connection. It must not be used after Release.
func (l *Lease) Conn() Conn {
	return l.res.Value()
}

// MarkBroken flags the connection so Release discards it instead of
// returning it to the idle set.
func (l *Lease) MarkBroken() {
	l.broken.Store(true)
}

// Release returns the connection to the pool. Only the first call has any
// effect, so deferring Release alongside an explicit call is safe.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.pool.release(l.res, l.broken.Load())
	})
}
