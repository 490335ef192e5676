package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/slog"

	"photoshelf/internal/model"
	"photoshelf/internal/platform/rabbitmq"
)

var errMalformedEvent = errors.New("malformed image event")

type ImageEventStore interface {
	Create(ctx context.Context, event *model.ImageEvent) error
}

// ImageEventWorker drains the image event queue into the audit table.
type ImageEventWorker struct {
	conn      *amqp.Connection
	store     ImageEventStore
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewImageEventWorker(conn *amqp.Connection, store ImageEventStore, queueName string) *ImageEventWorker {
	return &ImageEventWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
	}
}

func (w *ImageEventWorker) Start(ctx context.Context) error {
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

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
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
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					slog.Error("image event worker dropped delivery", "message_id", d.MessageId, "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *ImageEventWorker) handle(ctx context.Context, body []byte) error {
	var event model.ImageEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.EventID == "" || event.Type == "" || event.UserID == 0 {
		return errMalformedEvent
	}
	return w.store.Create(ctx, &event)
}

func (w *ImageEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
