package serializer

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/CageChen/assethub/internal/logging"
)

const lockRetryDelay = 50 * time.Millisecond

// maxJoinRetries bounds how often a caller whose own context is live
// retries after joining a run that was cancelled under it.
const maxJoinRetries = 3

// Locked serializes runs per asset path. Within the process, concurrent
// requests for the same path share a single run; when lockDir is set, a
// file lock additionally keeps other processes off the same path.
//
// A shared run is cancelled only once every caller waiting on it has given
// up, so one caller's cancellation does not fail the others.
type Locked struct {
	next    Serializer
	lockDir string
	logger  *zap.Logger
	group   singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context shared by the callers of one path.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewLocked wraps next. An empty lockDir disables cross-process locking.
func NewLocked(next Serializer, lockDir string, logger *zap.Logger) *Locked {
	return &Locked{
		next:    next,
		lockDir: lockDir,
		logger:  logging.OrNop(logger),
		flights: make(map[string]*flight),
	}
}

// Serialize runs next for assetPath unless a run for the same path is
// already in flight, in which case it waits for and shares that outcome.
// It returns ctx.Err() as soon as ctx is done.
func (l *Locked) Serialize(ctx context.Context, assetPath string) error {
	for attempt := 0; ; attempt++ {
		err := l.wait(ctx, assetPath)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.Canceled) && attempt < maxJoinRetries {
			l.logger.Debug("joined serializer run was cancelled, retrying", zap.String("asset", assetPath))
			continue
		}
		return err
	}
}

func (l *Locked) wait(ctx context.Context, assetPath string) error {
	fl := l.join(ctx, assetPath)
	defer l.leave(assetPath, fl)

	ch := l.group.DoChan(assetPath, func() (any, error) {
		return nil, l.run(fl.ctx, assetPath)
	})
	select {
	case res := <-ch:
		if res.Shared {
			l.logger.Debug("shared serializer run", zap.String("asset", assetPath))
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// join registers a waiter on the flight for assetPath, starting one
// detached from ctx's cancellation when none exists.
func (l *Locked) join(ctx context.Context, assetPath string) *flight {
	l.mu.Lock()
	defer l.mu.Unlock()
	fl, ok := l.flights[assetPath]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fl = &flight{ctx: fctx, cancel: cancel}
		l.flights[assetPath] = fl
	}
	fl.waiters++
	return fl
}

// leave drops a waiter and cancels the flight once nobody waits on it.
func (l *Locked) leave(assetPath string, fl *flight) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fl.waiters--
	if fl.waiters > 0 {
		return
	}
	fl.cancel()
	if l.flights[assetPath] == fl {
		delete(l.flights, assetPath)
	}
}

// waiters reports how many callers wait on assetPath.
func (l *Locked) waiters(assetPath string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if fl, ok := l.flights[assetPath]; ok {
		return fl.waiters
	}
	return 0
}

func (l *Locked) run(ctx context.Context, assetPath string) error {
	if l.lockDir == "" {
		return l.next.Serialize(ctx, assetPath)
	}

	if err := os.MkdirAll(l.lockDir, 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(filepath.Join(l.lockDir, lockName(assetPath)))
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire serializer lock: %w", err)
	}
	if !ok {
		return ctx.Err()
	}
	defer func() { _ = fl.Unlock() }()

	return l.next.Serialize(ctx, assetPath)
}

// lockName maps an asset path to a flat lock file name.
func lockName(assetPath string) string {
	sum := sha1.Sum([]byte(assetPath))
	return hex.EncodeToString(sum[:]) + ".lock"
}
