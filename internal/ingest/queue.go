package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const queueName = "document_ingestion"

// Job is one unit of ingestion work: a document that has finished
// uploading and is ready for the OCR/extraction/validation/persistence
// pipeline.
type Job struct {
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
}

// Queue publishes and consumes ingestion jobs over a durable AMQP queue.
type Queue struct {
	conn *amqp.Connection
}

// NewQueue dials url and declares the durable ingestion queue.
func NewQueue(url string) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial queue: %w", err)
	}
	q := &Queue{conn: conn}
	if err := q.declare(); err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

func (q *Queue) declare() error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	return nil
}

// Publish enqueues a job for processing.
func (q *Queue) Publish(ctx context.Context, job Job) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	return ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Close releases the underlying connection.
func (q *Queue) Close() error {
	return q.conn.Close()
}

// Conn returns the underlying AMQP connection, for building a Worker that
// consumes from the same broker this Queue publishes to.
func (q *Queue) Conn() *amqp.Connection {
	return q.conn
}

// HealthCheck verifies the queue connection is open and the ingestion
// queue still exists, via a passive declare.
func (q *Queue) HealthCheck(_ context.Context) error {
	if q.conn.IsClosed() {
		return fmt.Errorf("queue connection closed")
	}
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclarePassive(queueName, true, false, false, false, nil)
	return err
}
