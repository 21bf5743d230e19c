package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockTimeout occurs when lock acquisition times out
	ErrLockTimeout = errors.New("timeout acquiring lock")
	// ErrLockNotHeld occurs when trying to release a lock not held by this instance
	ErrLockNotHeld = errors.New("lock not held by this instance")
	// ErrLockAlreadyHeld occurs when lock is already held by another instance
	ErrLockAlreadyHeld = errors.New("lock already held by another instance")
)

const (
	DefaultLockTTL        = 30 * time.Second
	DefaultAcquireTimeout = 5 * time.Second
	DefaultRetryAttempts  = 3
	DefaultBaseBackoff    = 500 * time.Millisecond
	maxBackoff            = 2 * time.Second

	// EngineLockKey is the lease that makes one process the only engine
	// writing to a database.
	EngineLockKey = "casino-engine"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// LockManager hands out Redis leases tagged with this process's instance id.
type LockManager struct {
	redis      redis.UniversalClient
	instanceID string
	logger     *log.Logger

	retryAttempts  int
	baseBackoff    time.Duration
	acquireTimeout time.Duration
}

type Option func(*LockManager)

func WithRetry(attempts int, baseBackoff time.Duration) Option {
	return func(lm *LockManager) {
		lm.retryAttempts = attempts
		lm.baseBackoff = baseBackoff
	}
}

func WithAcquireTimeout(d time.Duration) Option {
	return func(lm *LockManager) { lm.acquireTimeout = d }
}

func WithLogger(logger *log.Logger) Option {
	return func(lm *LockManager) { lm.logger = logger }
}

func NewLockManager(client redis.UniversalClient, opts ...Option) *LockManager {
	lm := &LockManager{
		redis:          client,
		instanceID:     uuid.New().String(),
		logger:         log.Default().WithPrefix("locks"),
		retryAttempts:  DefaultRetryAttempts,
		baseBackoff:    DefaultBaseBackoff,
		acquireTimeout: DefaultAcquireTimeout,
	}
	for _, opt := range opts {
		opt(lm)
	}
	if lm.retryAttempts < 1 {
		lm.retryAttempts = 1
	}
	return lm
}

func (lm *LockManager) InstanceID() string { return lm.instanceID }

func lockKey(key string) string { return "lock:" + key }

// Lock is a held lease.
type Lock struct {
	key        string
	value      string
	manager    *LockManager
	ttl        time.Duration
	acquiredAt time.Time
}

// AcquireLock takes key with SET NX PX, retrying with exponential backoff
// while another instance holds it.
func (lm *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	acquireCtx, cancel := context.WithTimeout(ctx, lm.acquireTimeout)
	defer cancel()

	k := lockKey(key)
	value := fmt.Sprintf("%s:%s", lm.instanceID, uuid.New().String())

	var lastErr error
	for attempt := 0; attempt < lm.retryAttempts; attempt++ {
		acquired, err := lm.redis.SetNX(acquireCtx, k, value, ttl).Result()
		switch {
		case err != nil:
			lastErr = fmt.Errorf("redis error: %w", err)
			lm.logger.Warn("lock attempt failed", "key", k, "attempt", attempt+1, "err", err)
		case acquired:
			lm.logger.Info("acquired lock", "key", k, "ttl", ttl, "instance", lm.instanceID)
			return &Lock{key: k, value: value, manager: lm, ttl: ttl, acquiredAt: time.Now()}, nil
		default:
			lastErr = ErrLockAlreadyHeld
			lm.logger.Warn("lock held by another instance", "key", k, "attempt", attempt+1)
		}

		if attempt == lm.retryAttempts-1 {
			break
		}
		select {
		case <-acquireCtx.Done():
			return nil, ErrLockTimeout
		case <-time.After(lm.backoff(attempt)):
		}
	}

	if lastErr == nil {
		lastErr = ErrLockTimeout
	}
	return nil, lastErr
}

// backoff doubles from the base each attempt, capped at two seconds.
func (lm *LockManager) backoff(attempt int) time.Duration {
	d := lm.baseBackoff << attempt
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	return d
}

// Holder reports who holds key and for how much longer.
func (lm *LockManager) Holder(ctx context.Context, key string) (holder string, ttl time.Duration, err error) {
	k := lockKey(key)
	holder, err = lm.redis.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to get lock: %w", err)
	}
	ttl, err = lm.redis.PTTL(ctx, k).Result()
	if err != nil {
		return holder, 0, fmt.Errorf("failed to get lock ttl: %w", err)
	}
	return holder, ttl, nil
}

// Release deletes the lock only if this instance still owns it.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return ErrLockNotHeld
	}

	result, err := releaseScript.Run(ctx, l.manager.redis, []string{l.key}, l.value).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if result == 0 {
		l.manager.logger.Warn("lock expired before release", "key", l.key)
		return ErrLockNotHeld
	}

	l.manager.logger.Info("released lock", "key", l.key, "held", time.Since(l.acquiredAt).Round(time.Millisecond))
	return nil
}

// Extend resets the lock's expiry to ttl from now.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	if l == nil {
		return ErrLockNotHeld
	}

	result, err := extendScript.Run(ctx, l.manager.redis, []string{l.key}, l.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to extend lock: %w", err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Hold keeps the lease alive until ctx is done, extending it every third of
// its TTL. It returns nil on cancellation and an error once the lease is lost.
func (l *Lock) Hold(ctx context.Context, clock quartz.Clock) error {
	if l == nil {
		return ErrLockNotHeld
	}
	interval := l.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}

	err := clock.TickerFunc(ctx, interval, func() error {
		if err := l.Extend(ctx, l.ttl); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.manager.logger.Error("lost engine lease", "key", l.key, "err", err)
			return fmt.Errorf("lease %s lost: %w", l.key, err)
		}
		return nil
	}, "lease", l.key).Wait()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
