package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/maskerade/privchat/internal/config"
	"github.com/maskerade/privchat/internal/store/redisstore"
	"github.com/maskerade/privchat/internal/tuning"
	amqp "github.com/rabbitmq/amqp091-go"
)

type trainingMsg struct {
	RunID string `json:"run_id"`
}

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 1
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 1
	}
	if n > 4 {
		return 4
	}
	return n
}

func main() {
	cfg := config.Load()

	jobState := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := jobState.Ping(pingCtx); err != nil {
		log.Fatalf("redis ping: %v", err)
	}
	pingCancel()

	driver := tuning.NewDriver(
		tuning.NewOpenAIClient(cfg.OpenAIAPIKey),
		jobState,
		cfg.TrainingFile,
		cfg.BaseModel,
	)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// declarations must match the publisher's exactly
	if _, err := ch.QueueDeclare(cfg.RabbitQueue+".dlq", true, false, false, false, nil); err != nil {
		log.Fatalf("dlq declare: %v", err)
	}
	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	})
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m trainingMsg
				if err := json.Unmarshal(d.Body, &m); err != nil || m.RunID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := driver.Run(ctx); err != nil {
					// terminal FAILED state is already persisted; dead-letter the trigger
					log.Printf("worker=%d training run %s failed cost=%s err=%v", workerID, m.RunID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}
				log.Printf("worker=%d training run %s succeeded cost=%s", workerID, m.RunID, time.Since(start))

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed run=%s err=%v", workerID, m.RunID, err)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}
