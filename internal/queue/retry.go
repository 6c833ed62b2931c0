package queue

import (
	"context"

	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/parversion/pkg/logger"
)

const retriesHeader = "x-retries"

// Retries reads the retry counter of msg. The broker may hand integers back
// with any width.
func Retries(headers amqp091.Table) int {
	switch v := headers[retriesHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// HandleProcessingError routes a failed message to the retry queue, or to
// the dead-letter queue once maxRetries is reached or when permanent is set.
// It reports whether the message was dead-lettered. When publishing fails
// the message is requeued.
func HandleProcessingError(ctx context.Context, ch Channel, msg amqp091.Delivery, queueName string, maxRetries int, permanent bool) bool {
	retries := Retries(msg.Headers)

	if permanent || retries >= maxRetries {
		dlqName := DeadLetterQueue(queueName)
		logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName, "retries", retries)
		err := publish(ctx, ch, dlqName, amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      msg.Headers,
			DeliveryMode: amqp091.Persistent,
		})
		if err != nil {
			logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", err)
			_ = msg.Nack(false, true)
			return false
		}
		_ = msg.Ack(false)
		return true
	}

	retryName := RetryQueue(queueName)
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retriesHeader] = int32(retries + 1)

	err := publish(ctx, ch, retryName, amqp091.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
	})
	if err != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", err)
		_ = msg.Nack(false, true)
		return false
	}
	_ = msg.Ack(false)
	return false
}
