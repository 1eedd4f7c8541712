package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/redis/go-redis/v9"
)

// ConnectOptions configures the history store connection and its startup retries.
type ConnectOptions struct {
	Addr           string        // ex: "localhost:6379"
	User           string        // optional
	Password       string        // optional
	RedisDB        int           // DB number
	DialTimeout    time.Duration // per-dial timeout
	ReadTimeout    time.Duration // per-command read timeout
	WriteTimeout   time.Duration // per-command write timeout
	PoolSize       int           // connection pool size
	ConnectTimeout time.Duration // total budget for startup attempts (ex: 30s)
	RetryInterval  time.Duration // first wait between attempts, doubled each time (ex: 2s)
	MaxWait        time.Duration // cap for the wait between attempts (ex: 10s)
	PingTimeout    time.Duration // timeout for each ping (ex: 2s)
	WarnThreshold  int           // attempts logged at warn level before switching to error
}

// Validate reports every invalid retry setting at once.
func (o ConnectOptions) Validate() error {
	var errs []error
	if o.Addr == "" {
		errs = append(errs, errors.New("Addr is required"))
	}
	for name, d := range map[string]time.Duration{
		"ConnectTimeout": o.ConnectTimeout,
		"RetryInterval":  o.RetryInterval,
		"MaxWait":        o.MaxWait,
		"PingTimeout":    o.PingTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", name, d))
		}
	}
	if o.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold))
	}
	return errors.Join(errs...)
}

// backoff doubles the wait after every attempt, capped at max.
type backoff struct {
	wait time.Duration
	max  time.Duration
}

func (b *backoff) next() time.Duration {
	w := b.wait
	b.wait *= 2
	if b.wait > b.max {
		b.wait = b.max
	}
	return w
}

// New creates a client for the run history store and waits until it answers
// a ping or ConnectTimeout elapses. The client is closed on failure.
func New(opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	return Connect(ctx, opts, log)
}

// Connect is New bounded by ctx instead of ConnectTimeout.
func Connect(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.Validate(); err != nil {
		log.Error("invalid redis options", logger.Error(err))
		return nil, fmt.Errorf("redis options: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.RedisDB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	if err := waitReady(ctx, client, opts, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func waitReady(ctx context.Context, client *redis.Client, opts ConnectOptions, log logger.Logger) error {
	log = log.With(logger.String("addr", opts.Addr))
	log.Info("connecting to history store", logger.Duration("timeout", opts.ConnectTimeout))

	start := time.Now()
	b := &backoff{wait: opts.RetryInterval, max: opts.MaxWait}

	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			if attempt > 1 {
				log.Warn("history store reachable after retries",
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				log.Info("history store reachable")
			}
			return nil
		}

		wait := b.next()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("history store unavailable, giving up",
				logger.Int("attempts", attempt),
				logger.Duration("elapsed", time.Since(start)),
				logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts: %w", opts.Addr, attempt, err)
		case <-timer.C:
		}

		fields := []logger.Field{
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", b.wait),
			logger.Error(err),
		}
		if attempt <= opts.WarnThreshold {
			log.Warn("history store not reachable, retrying", fields...)
		} else {
			log.Error("history store still not reachable", fields...)
		}
	}
}
