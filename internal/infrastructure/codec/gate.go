package codec

import (
	"context"
	"fmt"
	"sync"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	"golang.org/x/sync/singleflight"
)

// InitFunc prepares a codec runtime (WASM compile, warm-up encode, ...).
type InitFunc func(ctx context.Context) error

// Gate makes sure each format's codec is initialized once before it is used.
// Concurrent first callers share a single initialization attempt. A failed
// attempt is reported to everyone who waited on it and is not remembered, so
// a later call tries again.
type Gate struct {
	group singleflight.Group

	mu    sync.RWMutex
	ready map[domain.Format]bool
}

func NewGate() *Gate {
	return &Gate{ready: make(map[domain.Format]bool)}
}

func (g *Gate) Ready(format domain.Format) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ready[format]
}

// Ensure runs init for format unless it already succeeded. Waiting respects
// ctx; the initialization itself is detached from the caller's cancellation
// so other waiters are not failed by it.
func (g *Gate) Ensure(ctx context.Context, format domain.Format, init InitFunc) error {
	if g.Ready(format) {
		return nil
	}

	initCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(string(format), func() (any, error) {
		if g.Ready(format) {
			return nil, nil
		}
		if err := runInit(initCtx, format, init); err != nil {
			return nil, err
		}
		g.mu.Lock()
		g.ready[format] = true
		g.mu.Unlock()
		zlog.Logger.Info().Str("format", string(format)).Msg("codec initialized")
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runInit(ctx context.Context, format domain.Format, init InitFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("init %s codec: panic: %v", format, r)
		}
	}()
	if init == nil {
		return nil
	}
	if err := init(ctx); err != nil {
		return fmt.Errorf("init %s codec: %w", format, err)
	}
	return nil
}
