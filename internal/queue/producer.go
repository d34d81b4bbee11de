package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Producer publishes generation jobs to the queue
type Producer struct {
	conn *Connection
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// PublishJob publishes a generation job to the queue
func (p *Producer) PublishJob(ctx context.Context, job *GenerationJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, GenerationQueueName, job); err != nil {
		return fmt.Errorf("failed to publish generation job: %w", err)
	}

	slog.Info("published generation job",
		"job_id", job.ID,
		"kind", job.Kind,
		"user_id", job.UserID,
		"project_id", job.ProjectID,
	)

	return nil
}

// PublishResult publishes a generation result to the results queue
func (p *Producer) PublishResult(ctx context.Context, result *GenerationResult) error {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, ResultQueueName, result); err != nil {
		return fmt.Errorf("failed to publish generation result: %w", err)
	}

	slog.Info("published generation result",
		"job_id", result.JobID,
		"status", result.Status,
		"duration", result.Duration,
	)

	return nil
}

// NewJob creates a generation job with the given parameters
func NewJob(kind JobKind, userID, projectID uuid.UUID, input string) *GenerationJob {
	return &GenerationJob{
		ID:        uuid.New(),
		Kind:      kind,
		UserID:    userID,
		ProjectID: projectID,
		Input:     input,
		CreatedAt: time.Now(),
	}
}
