package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OFFIS-RIT/parversion/pkg/analysis"
)

// ErrInvalidJob marks messages that can never succeed. They skip the retry
// queue and go straight to the dead-letter queue.
var ErrInvalidJob = errors.New("invalid job")

// Job asks a worker to analyze one document. Exactly one of Content and
// Location should be set; Location is a path, s3://bucket/key or URL.
type Job struct {
	ID        string    `json:"id"`
	Content   string    `json:"content,omitempty"`
	Location  string    `json:"location,omitempty"`
	URL       string    `json:"url,omitempty"`
	Format    string    `json:"format,omitempty"`
	Output    string    `json:"output,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

// JobResult is published to the results queue once per job.
type JobResult struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	ResultKey  string          `json:"result_key,omitempty"`
	Document   map[string]any  `json:"document,omitempty"`
	Stats      *analysis.Stats `json:"stats,omitempty"`
	Error      string          `json:"error,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
}

// NewJob assigns a fresh id to job.
func NewJob(job Job) Job {
	job.ID = uuid.NewString()
	job.CreatedAt = time.Now().UTC()
	return job
}

// DecodeJob parses and checks a job message.
func DecodeJob(body []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	if job.ID == "" {
		return Job{}, fmt.Errorf("%w: missing id", ErrInvalidJob)
	}
	if job.Content == "" && job.Location == "" && job.URL == "" {
		return Job{}, fmt.Errorf("%w: job %s has no content or location", ErrInvalidJob, job.ID)
	}
	return job, nil
}

func PublishJob(ctx context.Context, ch Channel, queueName string, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	return PublishFIFO(ctx, ch, queueName, data)
}

func PublishResult(ctx context.Context, ch Channel, queueName string, result JobResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode job result: %w", err)
	}
	return PublishFIFO(ctx, ch, queueName, data)
}
