package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

var (
	ErrQueueFull   = errors.New("mail queue is full")
	ErrQueueClosed = errors.New("mail queue is closed")
)

// Queue buffers messages between the request path and delivery workers.
// Pop blocks until a message is available or ctx is done.
type Queue interface {
	Push(ctx context.Context, msg Message) error
	Pop(ctx context.Context) (Message, error)
	Close() error
}

// MemoryQueue is an in-process bounded queue.
type MemoryQueue struct {
	ch     chan Message
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue creates an in-process queue with the given capacity.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 100
	}
	return &MemoryQueue{ch: make(chan Message, size)}
}

func (q *MemoryQueue) Push(ctx context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Pop(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case msg, ok := <-q.ch:
		if !ok {
			return Message{}, ErrQueueClosed
		}
		return msg, nil
	}
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}

// Len returns the number of buffered messages.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// RedisQueue stores messages as JSON in a Redis list (LPUSH / BRPOP), so
// pending mail survives a restart and can be shared between instances.
type RedisQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
}

// RedisQueueOptions configures the Redis queue.
type RedisQueueOptions struct {
	URL            string
	Key            string
	PollTimeout    time.Duration
	ConnectTimeout time.Duration
}

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(opts RedisQueueOptions) (*RedisQueue, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("redis URL is required")
	}
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}
	if opts.Key == "" {
		opts.Key = "yamdb:mail"
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisQueue{client: client, key: opts.Key, pollTimeout: opts.PollTimeout}, nil
}

func (q *RedisQueue) Push(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

func (q *RedisQueue) Pop(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Message{}, ctxErr
			}
			return Message{}, err
		}
		// BRPOP 返回 [key, value]
		if len(res) != 2 {
			return Message{}, fmt.Errorf("unexpected BRPOP reply length %d", len(res))
		}
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			return Message{}, fmt.Errorf("decode queued mail: %w", err)
		}
		return msg, nil
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
