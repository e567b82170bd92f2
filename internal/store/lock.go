package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/internal/errs"
)

// lockRetryInterval is how often the lock is re-attempted while waiting
const lockRetryInterval = 100 * time.Millisecond

type fileLock struct {
	fl *flock.Flock
}

// acquireLock takes the cross-process advisory lock at path, waiting up to
// wait. A timeout surfaces as a LOCK_TIMEOUT error; the caller must abandon
// the operation rather than proceed unlocked.
func acquireLock(ctx context.Context, path string, wait time.Duration) (*fileLock, error) {
	fl := flock.New(path)
	started := time.Now()

	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ok, err := fl.TryLockContext(lockCtx, lockRetryInterval)
	if !ok {
		if err == nil || lockCtx.Err() != nil {
			err = lockCtx.Err()
		}
		return nil, errs.LockTimeout(
			fmt.Sprintf("store lock %s not acquired within %s", path, wait), err)
	}

	if waited := time.Since(started); waited > lockRetryInterval {
		log.Debug().Dur("waited", waited).Str("path", path).Msg("Store lock acquired after wait")
	}
	return &fileLock{fl: fl}, nil
}

func (l *fileLock) release() {
	if err := l.fl.Unlock(); err != nil {
		log.Warn().Err(err).Msg("Store lock release failed")
	}
}
