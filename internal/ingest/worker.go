package ingest

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// JobHandler runs the full ingestion pipeline for one job. A returned
// error nacks the delivery without requeue — the pipeline itself is
// responsible for recording the failure against the document, so a
// redelivery would only repeat work already marked failed.
type JobHandler func(ctx context.Context, job Job) error

// Worker consumes ingestion jobs from a durable queue with a bounded
// pool of goroutines, acking on success and nacking (without requeue) on
// failure.
type Worker struct {
	conn    *amqp.Connection
	handler JobHandler
	workers int
	log     zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker builds a Worker over conn, running workers concurrent
// goroutines, each invoking handler for one job at a time.
func NewWorker(conn *amqp.Connection, workers int, handler JobHandler, log zerolog.Logger) *Worker {
	if workers < 1 {
		workers = 1
	}
	return &Worker{conn: conn, handler: handler, workers: workers, log: log}
}

// Start declares the queue and launches the worker pool. It returns once
// consumption has begun; call Close to stop.
func (w *Worker) Start(ctx context.Context) error {
	ch, err := w.conn.Channel()
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		return err
	}
	if err := ch.Qos(w.workers, 0, false); err != nil {
		ch.Close()
		return err
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(runCtx, deliveries)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		<-runCtx.Done()
		ch.Close()
	}()

	return nil
}

func (w *Worker) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.process(ctx, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, d amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.log.Error().Err(err).Msg("ingest worker: malformed job payload")
		_ = d.Nack(false, false)
		return
	}

	if err := w.handler(ctx, job); err != nil {
		w.log.Error().Err(err).Str("document_id", job.DocumentID).Msg("ingest worker: pipeline failed")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// Close stops the worker pool and waits for in-flight jobs to finish.
func (w *Worker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
