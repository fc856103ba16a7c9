package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/maskerade/privchat/internal/common"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher enqueues fine-tuning trigger messages so the HTTP request that
// starts a training run can return immediately.
type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// TrainingMessage is one fine-tuning trigger. RunID identifies the trigger in
// logs; the worker's job state lives in the sidecar store, not in the message.
type TrainingMessage struct {
	RunID string `json:"run_id"`
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	// match worker
	mainQ := queue
	dlqQ := queue + ".dlq"

	// DLQ
	if _, err := ch.QueueDeclare(
		dlqQ,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	// Main queue: dead-letter to DLQ on reject/nack(requeue=false)
	if _, err := ch.QueueDeclare(
		mainQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dlqQ,
		},
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// EnqueueTraining publishes a training trigger with a fresh run id.
func (p *Publisher) EnqueueTraining(ctx context.Context) error {
	runID, err := common.NewULID()
	if err != nil {
		return err
	}
	return p.PublishTraining(ctx, runID)
}

func (p *Publisher) PublishTraining(ctx context.Context, runID string) error {
	body, err := json.Marshal(TrainingMessage{RunID: runID})
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(cctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}
