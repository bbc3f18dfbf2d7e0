package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrQueueFull is returned by Inline.Enqueue when a message of the same type
// is already pending.
var ErrQueueFull = errors.New("queue: message already pending")

// Job handles one message type. payload is the enqueued value for inline
// dispatch and a json.RawMessage after a Redis round trip; ParsePayload
// reads either.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload interface{}) error
}

// Dispatcher runs registered jobs for enqueued messages.
type Dispatcher interface {
	RegisterJob(job Job)
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
	Start() error
	Stop(ctx context.Context) error
}

// QueueConfig contains the configuration for the queue
type QueueConfig struct {
	Workers    int           // number of workers
	RetryLimit int           // number of maximum retries
	RetryDelay time.Duration // time delay between retries
}

// Message represents a message in the queue
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// ParsePayload decodes a job payload into T.
func ParsePayload[T any](payload interface{}) (*T, error) {
	var result T

	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case nil:
		return &result, nil
	case json.RawMessage:
		if len(p) == 0 || string(p) == "null" {
			return &result, nil
		}
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		return &result, nil
	case []byte:
		return ParsePayload[T](json.RawMessage(p))
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}
