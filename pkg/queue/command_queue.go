// Package queue carries reminder commands from pages to the worker over a
// Redis stream consumed by a single consumer group.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"biblepace/pkg/domain"
)

const (
	StatusQueued    = "queued"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Delivery is one command read from the stream together with its tracking
// state.
type Delivery struct {
	ID           string                 `json:"id"`
	Command      domain.ReminderCommand `json:"command"`
	Status       string                 `json:"status"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
	Attempts     int                    `json:"attempts"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// Handler applies a delivered command. A returned error schedules a retry
// until the attempt budget is spent.
type Handler func(context.Context, Delivery) error

type RedisCommandQueue struct {
	client       redis.UniversalClient
	stream       string
	group        string
	consumerBase string
	statusTTL    time.Duration
	maxRetries   int
	block        time.Duration
	claimIdle    time.Duration
	retryDelay   time.Duration
	maxLen       int64
	once         sync.Once
}

type Config struct {
	Client     redis.UniversalClient
	Stream     string
	Group      string
	Consumer   string
	StatusTTL  time.Duration
	MaxRetries int
	Block      time.Duration
	ClaimIdle  time.Duration
	RetryDelay time.Duration
	MaxLen     int64
}

func NewRedisCommandQueue(cfg Config) (*RedisCommandQueue, error) {
	if cfg.Client == nil {
		return nil, errors.New("redis client required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = "biblepace:reminders"
	}
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		group = "worker"
	}
	consumer := strings.TrimSpace(cfg.Consumer)
	if consumer == "" {
		consumer = uuid.NewString()
	}
	statusTTL := cfg.StatusTTL
	if statusTTL <= 0 {
		statusTTL = 24 * time.Hour
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	block := cfg.Block
	if block <= 0 {
		block = 5 * time.Second
	}
	claimIdle := cfg.ClaimIdle
	if claimIdle <= 0 {
		claimIdle = 30 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &RedisCommandQueue{
		client:       cfg.Client,
		stream:       stream,
		group:        group,
		consumerBase: consumer,
		statusTTL:    statusTTL,
		maxRetries:   maxRetries,
		block:        block,
		claimIdle:    claimIdle,
		retryDelay:   retryDelay,
		maxLen:       maxLen,
	}, nil
}

// Publish appends a command to the stream and records it as queued.
func (q *RedisCommandQueue) Publish(ctx context.Context, cmd domain.ReminderCommand) (Delivery, error) {
	if cmd.Type == "" {
		return Delivery{}, errors.New("command type required")
	}
	now := time.Now().UTC()
	d := Delivery{
		ID:        uuid.NewString(),
		Command:   cmd,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := q.writeStatus(ctx, d); err != nil {
		return Delivery{}, err
	}
	if err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: streamValues(d.ID, cmd),
	}).Err(); err != nil {
		return Delivery{}, fmt.Errorf("publish command: %w", err)
	}
	return d, nil
}

// Get returns the tracking state of a published command.
func (q *RedisCommandQueue) Get(ctx context.Context, id string) (Delivery, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Delivery{}, false, nil
	}
	data, err := q.client.HGetAll(ctx, q.statusKey(id)).Result()
	if err != nil {
		return Delivery{}, false, err
	}
	if len(data) == 0 {
		return Delivery{}, false, nil
	}
	return decodeDelivery(id, data), true, nil
}

// Start consumes the stream in a single goroutine until ctx is done.
// Commands are applied one at a time, in stream order.
func (q *RedisCommandQueue) Start(ctx context.Context, handler Handler) {
	q.ensureGroup(ctx)
	go q.consumeLoop(ctx, q.consumerBase, handler)
}

func (q *RedisCommandQueue) ensureGroup(ctx context.Context) {
	q.once.Do(func() {
		// BUSYGROUP means another worker created it first.
		_ = q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "$").Err()
	})
}

func (q *RedisCommandQueue) consumeLoop(ctx context.Context, consumer string, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if msgs, err := q.claimPending(ctx, consumer); err == nil {
			for _, msg := range msgs {
				q.handleMessage(ctx, msg, handler)
			}
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    10,
			Block:    q.block,
		}).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				select {
				case <-ctx.Done():
					return
				case <-time.After(q.retryDelay):
				}
			}
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handleMessage(ctx, msg, handler)
			}
		}
	}
}

func (q *RedisCommandQueue) claimPending(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	res, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (q *RedisCommandQueue) handleMessage(ctx context.Context, msg redis.XMessage, handler Handler) {
	id, _ := msg.Values["command_id"].(string)
	typ, _ := msg.Values["type"].(string)
	at, _ := msg.Values["time"].(string)
	if id == "" || typ == "" {
		q.ackAndDel(ctx, msg.ID)
		return
	}
	cmd := domain.ReminderCommand{Type: domain.CommandType(typ), Time: at}
	d, err := q.markAttempt(ctx, id, cmd)
	if err != nil {
		q.ackAndDel(ctx, msg.ID)
		return
	}
	herr := handler(ctx, d)
	if herr == nil {
		_ = q.mark(ctx, d, StatusDelivered, "")
		q.ackAndDel(ctx, msg.ID)
		return
	}
	if d.Attempts >= q.maxRetries {
		_ = q.mark(ctx, d, StatusFailed, herr.Error())
		q.ackAndDel(ctx, msg.ID)
		return
	}
	_ = q.mark(ctx, d, StatusQueued, herr.Error())
	select {
	case <-ctx.Done():
		return
	case <-time.After(q.retryDelay):
	}
	_ = q.requeueAndAck(ctx, msg.ID, id, cmd)
}

func (q *RedisCommandQueue) ackAndDel(ctx context.Context, msgID string) {
	_, _ = q.client.XAck(ctx, q.stream, q.group, msgID).Result()
	_, _ = q.client.XDel(ctx, q.stream, msgID).Result()
}

// requeueAndAck re-appends the command and acknowledges the original message
// in one transaction, so a failure leaves the original pending for a later claim.
func (q *RedisCommandQueue) requeueAndAck(ctx context.Context, msgID, id string, cmd domain.ReminderCommand) error {
	pipe := q.client.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: streamValues(id, cmd),
	})
	pipe.XAck(ctx, q.stream, q.group, msgID)
	pipe.XDel(ctx, q.stream, msgID)
	_, err := pipe.Exec(ctx)
	return err
}

func (q *RedisCommandQueue) markAttempt(ctx context.Context, id string, cmd domain.ReminderCommand) (Delivery, error) {
	d, ok, err := q.Get(ctx, id)
	if err != nil {
		return Delivery{}, err
	}
	if !ok {
		d = Delivery{ID: id}
	}
	d.Command = cmd
	d.Attempts++
	d.UpdatedAt = time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = d.UpdatedAt
	}
	if err := q.writeStatus(ctx, d); err != nil {
		return Delivery{}, err
	}
	return d, nil
}

func (q *RedisCommandQueue) mark(ctx context.Context, d Delivery, status, errMsg string) error {
	d.Status = status
	d.ErrorMessage = errMsg
	d.UpdatedAt = time.Now().UTC()
	return q.writeStatus(ctx, d)
}

func (q *RedisCommandQueue) writeStatus(ctx context.Context, d Delivery) error {
	key := q.statusKey(d.ID)
	payload := map[string]any{
		"type":      string(d.Command.Type),
		"time":      d.Command.Time,
		"status":    d.Status,
		"error":     d.ErrorMessage,
		"attempts":  strconv.Itoa(d.Attempts),
		"createdAt": d.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt": d.UpdatedAt.Format(time.RFC3339Nano),
	}
	if err := q.client.HSet(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("write command status: %w", err)
	}
	_ = q.client.Expire(ctx, key, q.statusTTL).Err()
	return nil
}

func (q *RedisCommandQueue) statusKey(id string) string {
	return fmt.Sprintf("command:%s:%s", q.stream, id)
}

func streamValues(id string, cmd domain.ReminderCommand) map[string]any {
	return map[string]any{
		"command_id": id,
		"type":       string(cmd.Type),
		"time":       cmd.Time,
	}
}

func decodeDelivery(id string, data map[string]string) Delivery {
	d := Delivery{
		ID: id,
		Command: domain.ReminderCommand{
			Type: domain.CommandType(data["type"]),
			Time: data["time"],
		},
		Status:       data["status"],
		ErrorMessage: data["error"],
	}
	if n, err := strconv.Atoi(data["attempts"]); err == nil {
		d.Attempts = n
	}
	if t, err := time.Parse(time.RFC3339Nano, data["createdAt"]); err == nil {
		d.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, data["updatedAt"]); err == nil {
		d.UpdatedAt = t
	}
	return d
}
