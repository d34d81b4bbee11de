// Package queue moves long-running generation work off the request path.
// App generation can take the better part of a minute, so the API can
// enqueue a job and let the worker publish the result when it's done.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue names
const (
	GenerationQueueName = "kiln.generations"
	ResultQueueName     = "kiln.results"
)

// JobKind selects which generation the worker runs
type JobKind string

const (
	KindApp       JobKind = "app"
	KindChallenge JobKind = "challenge"
	KindModify    JobKind = "modify"
	KindAnalyze   JobKind = "analyze"
)

// GenerationJob is a unit of generation work
type GenerationJob struct {
	ID        uuid.UUID `json:"id"`
	Kind      JobKind   `json:"kind"`
	UserID    uuid.UUID `json:"user_id"`
	ProjectID uuid.UUID `json:"project_id,omitempty"` // unset for app generation
	Input     string    `json:"input"`                // idea, topic or instruction
	Timeout   int       `json:"timeout"`              // seconds, 0 for default
	CreatedAt time.Time `json:"created_at"`
}

// GenerationResult reports how a job finished
type GenerationResult struct {
	JobID       uuid.UUID     `json:"job_id"`
	Status      string        `json:"status"` // completed, failed, timeout
	ProjectID   uuid.UUID     `json:"project_id,omitempty"`
	ChallengeID uuid.UUID     `json:"challenge_id,omitempty"`
	Summary     string        `json:"summary,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Connection manages the RabbitMQ connection with automatic reconnection
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// NewConnection creates a new RabbitMQ connection
func NewConnection(url string) (*Connection, error) {
	c := &Connection{url: url}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.conn, err = amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := c.declareQueues(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return err
	}

	go c.handleReconnect()

	slog.Info("connected to RabbitMQ", "url", sanitizeURL(c.url))
	return nil
}

func (c *Connection) declareQueues() error {
	// Generation jobs are durable; a restarted worker picks them up
	_, err := c.channel.QueueDeclare(
		GenerationQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl": int32(600000), // 10 minute TTL
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare generation queue: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		ResultQueueName,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-message-ttl": int32(60000), // 1 minute TTL for results
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare results queue: %w", err)
	}

	return nil
}

// handleReconnect listens for connection close and attempts to reconnect
func (c *Connection) handleReconnect() {
	notifyClose := c.conn.NotifyClose(make(chan *amqp.Error, 1))

	err := <-notifyClose
	if err == nil {
		return // normal close
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	slog.Warn("RabbitMQ connection closed, attempting to reconnect",
		"error", err,
		"reconnects", c.reconnects,
	)

	// Exponential backoff, capped at 30s
	for i := 0; i < 10; i++ {
		c.reconnects++
		backoff := time.Duration(1<<i) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
		time.Sleep(backoff)

		if err := c.connect(); err != nil {
			slog.Error("reconnection failed", "error", err, "attempt", i+1)
			continue
		}

		slog.Info("reconnected to RabbitMQ", "attempts", i+1)
		return
	}

	slog.Error("failed to reconnect to RabbitMQ after 10 attempts")
}

// Channel returns the current channel (thread-safe)
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes a JSON message to a queue
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	return ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// sanitizeURL removes credentials from URL for logging
func sanitizeURL(url string) string {
	if len(url) > 20 {
		return url[:20] + "..."
	}
	return url
}
