package app

import (
	"context"

	"biblepace/pkg/domain"
	"biblepace/pkg/queue"
)

// QueuePublisher sends commands through the Redis command stream the worker
// consumes.
type QueuePublisher struct {
	Queue *queue.RedisCommandQueue
}

func (p QueuePublisher) Publish(ctx context.Context, cmd domain.ReminderCommand) error {
	_, err := p.Queue.Publish(ctx, cmd)
	return err
}
