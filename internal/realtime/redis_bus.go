package realtime

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/felixvaughn/themachine-backend/internal/logger"
)

type redisBus struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedisBus connects to the Redis instance named by REDIS_ADDR. Each
// session gets its own Redis channel, so fan-out across server instances
// comes for free.
func NewRedisBus(log *logger.Logger) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log: log.With("service", "RedisBus"),
		rdb: rdb,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bus not initialized")
	}
	return b.rdb.Publish(ctx, channel, payload).Err()
}

type redisSubscription struct {
	pubsub *goredis.PubSub
	cancel context.CancelFunc
}

func (s *redisSubscription) Close() error {
	s.cancel()
	return s.pubsub.Close()
}

func (b *redisBus) Subscribe(ctx context.Context, channel string, onMsg func([]byte), onDrop func(error)) (Subscription, error) {
	if b == nil || b.rdb == nil {
		return nil, fmt.Errorf("redis bus not initialized")
	}
	if onMsg == nil {
		return nil, fmt.Errorf("onMsg callback required")
	}

	subCtx, cancel := context.WithCancel(ctx)
	pubsub := b.rdb.Subscribe(subCtx, channel)

	// ensures subscription actually started
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					// Channel closed underneath us: the transport
					// dropped the subscription.
					if subCtx.Err() == nil && onDrop != nil {
						onDrop(fmt.Errorf("redis subscription closed"))
					}
					return
				}
				onMsg([]byte(m.Payload))
			}
		}
	}()

	return &redisSubscription{pubsub: pubsub, cancel: cancel}, nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
