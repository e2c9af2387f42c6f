package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"legalrecords-assistant/internal/metrics"
	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/platform/logger"
)

var errEmptyQuery = errors.New("query log without query text")

type QueryLogStore interface {
	Create(ctx context.Context, entry *model.QueryLog) error
}

// QueryLogWorker drains the audit queue into the query_logs table.
type QueryLogWorker struct {
	conn      *amqp.Connection
	store     QueryLogStore
	queueName string
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueryLogWorker(conn *amqp.Connection, store QueryLogStore, queueName string, log *logger.Logger) *QueryLogWorker {
	if log == nil {
		log = logger.NewNop()
	}
	return &QueryLogWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		log:       log,
	}
}

func (w *QueryLogWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker prefetch failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("query log deliveries closed", "queue", w.queueName)
					return
				}
				w.deliver(workerCtx, d)
			}
		}
	}()

	w.log.Info("query log worker started", "queue", w.queueName)
	return nil
}

func (w *QueryLogWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *QueryLogWorker) deliver(ctx context.Context, d amqp.Delivery) {
	err := w.handle(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, errEmptyQuery), isDecodeError(err):
		w.log.Warn("drop malformed query log", "message_id", d.MessageId, "error", err)
		_ = d.Nack(false, false)
	default:
		// One redelivery for storage hiccups, then drop.
		w.log.Error("persist query log failed", "message_id", d.MessageId, "redelivered", d.Redelivered, "error", err)
		_ = d.Nack(false, !d.Redelivered)
	}
}

func (w *QueryLogWorker) handle(ctx context.Context, body []byte) error {
	entry, err := decodeQueryLog(body)
	if err != nil {
		metrics.RecordAuditEvent("persist", "malformed")
		return err
	}
	if err := w.store.Create(ctx, entry); err != nil {
		metrics.RecordAuditEvent("persist", "error")
		return err
	}
	metrics.RecordAuditEvent("persist", "ok")
	return nil
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decode query log failed: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func isDecodeError(err error) bool {
	var de *decodeError
	return errors.As(err, &de)
}

func decodeQueryLog(body []byte) (*model.QueryLog, error) {
	var entry model.QueryLog
	if err := json.Unmarshal(body, &entry); err != nil {
		return nil, &decodeError{err: err}
	}
	if strings.TrimSpace(entry.Query) == "" {
		return nil, errEmptyQuery
	}
	// The worker owns the row identity.
	entry.ID = 0
	return &entry, nil
}
