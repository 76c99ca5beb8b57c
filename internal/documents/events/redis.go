package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

const (
	DefaultChannelPrefix = "docgen:events:"
	stateKeyPrefix       = "docgen:progress:"
	stateTTL             = time.Hour
)

// RedisPublisher mirrors progress events to Redis so other processes (the
// watch command, a web front-end) can follow long-running operations. Each
// project has a pub/sub channel and a hash holding the latest event per
// operation.
type RedisPublisher struct {
	client        *redis.Client
	channelPrefix string
}

func NewRedisPublisher(client *redis.Client, channelPrefix string) *RedisPublisher {
	if channelPrefix == "" {
		channelPrefix = DefaultChannelPrefix
	}
	return &RedisPublisher{client: client, channelPrefix: channelPrefix}
}

// Publish stores the event as the latest state of its operation and
// broadcasts it on the project's channel.
func (p *RedisPublisher) Publish(ctx context.Context, event domain.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}

	stateKey := p.stateKey(event.ProjectID)
	pipe := p.client.Pipeline()
	pipe.HSet(ctx, stateKey, operationField(event), data)
	pipe.Expire(ctx, stateKey, stateTTL)
	pipe.Publish(ctx, p.channel(event.ProjectID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish progress event: %w", err)
	}
	return nil
}

// Latest returns the most recent event of every operation of a project.
func (p *RedisPublisher) Latest(ctx context.Context, projectID int64) ([]domain.ProgressEvent, error) {
	fields, err := p.client.HGetAll(ctx, p.stateKey(projectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read progress state: %w", err)
	}
	out := make([]domain.ProgressEvent, 0, len(fields))
	for field, raw := range fields {
		var ev domain.ProgressEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			klog.Warningf("skipping malformed progress state %s/%s: %v", p.stateKey(projectID), field, err)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Subscribe streams a project's events until ctx is done. The returned
// channel is closed when the subscription ends.
func (p *RedisPublisher) Subscribe(ctx context.Context, projectID int64) (<-chan domain.ProgressEvent, error) {
	sub := p.client.Subscribe(ctx, p.channel(projectID))
	// Wait for the subscription to be confirmed so no event is missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to progress events: %w", err)
	}

	out := make(chan domain.ProgressEvent)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.ProgressEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					klog.Warningf("dropping malformed progress event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (p *RedisPublisher) channel(projectID int64) string {
	return fmt.Sprintf("%s%d", p.channelPrefix, projectID)
}

func (p *RedisPublisher) stateKey(projectID int64) string {
	return fmt.Sprintf("%s%d", stateKeyPrefix, projectID)
}

func operationField(ev domain.ProgressEvent) string {
	return fmt.Sprintf("%s:%d", ev.Kind, ev.TargetID)
}
