package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/parversion/internal/app"
	"github.com/OFFIS-RIT/parversion/internal/storage"
	"github.com/OFFIS-RIT/parversion/pkg/document"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
	"github.com/OFFIS-RIT/parversion/pkg/render"
)

// Processor runs analysis jobs taken from the analyze queue and publishes
// their results.
type Processor struct {
	App          *app.App
	Channel      Channel
	AnalyzeQueue string
	ResultsQueue string
	MaxRetries   int
}

// ProcessAnalyzeMessage handles one job message. Errors wrapping
// ErrInvalidJob will never succeed on retry.
func (p *Processor) ProcessAnalyzeMessage(ctx context.Context, body []byte) error {
	job, err := DecodeJob(body)
	if err != nil {
		return err
	}

	outFormat, err := render.ParseFormat(job.Output)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	text := job.Content
	if text == "" {
		location := job.Location
		if location == "" {
			location = job.URL
		}
		text, err = p.App.Load(ctx, location)
		if err != nil {
			return err
		}
	}

	res, err := p.App.AnalyzeText(ctx, text, document.ParseFormat(job.Format), job.URL)
	if err != nil {
		return fmt.Errorf("failed to analyze job %s: %w", job.ID, err)
	}

	result := JobResult{
		ID:         job.ID,
		Status:     StatusDone,
		Document:   res.Document,
		Stats:      &res.Stats,
		FinishedAt: time.Now().UTC(),
	}

	if p.App.Results != nil {
		var buf bytes.Buffer
		if err := render.Render(&buf, res, outFormat); err != nil {
			return err
		}
		key := storage.ResultKey(job.ID, outFormat)
		if err := p.App.Results.Put(ctx, key, buf.Bytes()); err != nil {
			return err
		}
		result.ResultKey = key
	}

	if err := PublishResult(ctx, p.Channel, p.ResultsQueue, result); err != nil {
		return err
	}
	logger.Info("[Queue] Job finished", "job_id", job.ID, "nodes", res.Stats.Nodes, "subgraphs", res.Stats.Subgraphs)
	return nil
}

// Consume processes messages until ctx is done or msgs is closed. Messages
// are handled one at a time.
func (p *Processor) Consume(ctx context.Context, msgs <-chan amqp091.Delivery) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("[Queue] Stopping consumer", "queue", p.AnalyzeQueue)
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("[Queue] Message channel closed", "queue", p.AnalyzeQueue)
				return
			}
			p.handle(ctx, msg)
		}
	}
}

func (p *Processor) handle(ctx context.Context, msg amqp091.Delivery) {
	startTime := time.Now()
	logger.Info("[Queue] Received message", "queue", p.AnalyzeQueue)

	processingErr := p.ProcessAnalyzeMessage(ctx, msg.Body)
	if processingErr != nil {
		logger.Error("[Queue] Error processing message", "queue", p.AnalyzeQueue, "err", processingErr)
		permanent := errors.Is(processingErr, ErrInvalidJob)
		if HandleProcessingError(ctx, p.Channel, msg, p.AnalyzeQueue, p.MaxRetries, permanent) {
			p.publishFailure(ctx, msg.Body, processingErr)
		}
	} else {
		if err := msg.Ack(false); err != nil {
			logger.Error("[Queue] Failed to ack message", "err", err)
		}
		logger.Info("[Queue] Message processed successfully", "queue", p.AnalyzeQueue)
	}

	p.App.LogModelMetrics()
	logger.Info("[Queue] Processing time", "duration", app.FormatDuration(time.Since(startTime)))
}

// publishFailure reports a dead-lettered job. Messages without a readable id
// have nobody to report to.
func (p *Processor) publishFailure(ctx context.Context, body []byte, cause error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil || job.ID == "" {
		return
	}
	err := PublishResult(ctx, p.Channel, p.ResultsQueue, JobResult{
		ID:         job.ID,
		Status:     StatusFailed,
		Error:      cause.Error(),
		FinishedAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Error("[Queue] Failed to publish job failure", "job_id", job.ID, "err", err)
	}
}
