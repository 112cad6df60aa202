package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// QueueEmail is the Redis list feeding the email workers.
const QueueEmail = "jobs:email"

const maxAttempts = 3

// Job is the generic envelope pushed into a job queue.
type Job struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Handler processes one decoded job payload.
type Handler interface {
	Processar(ctx context.Context, payload json.RawMessage) error
}

// Handlers maps job types to their processors.
type Handlers struct {
	Email Handler
}

// Dispatcher enqueues async jobs. It is safe for concurrent use.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueEmailFechamento queues the closing report for delivery.
func (d *Dispatcher) EnqueueEmailFechamento(ctx context.Context, p EmailFechamentoPayload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	job := Job{Type: "email_fechamento", Payload: payload, EnqueuedAt: time.Now()}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueueEmail, data).Err()
}

// StartWorkerPool launches size workers consuming the email queue until the
// context is cancelled. Jobs that keep failing after maxAttempts land in the
// DLQ instead of blocking the queue.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, size int, handlers Handlers) {
	if size <= 0 {
		size = 1
	}
	for i := 0; i < size; i++ {
		go runWorker(ctx, rdb, i, handlers)
	}
	log.Info().Int("workers", size).Msg("worker pool iniciado")
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers Handlers) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := rdb.BRPop(ctx, 5*time.Second, QueueEmail).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Int("worker", id).Msg("falha lendo fila de jobs")
			time.Sleep(2 * time.Second)
			continue
		}
		// BRPop returns [key, value]
		if len(res) != 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			log.Error().Err(err).Int("worker", id).Msg("job malformado, descartando")
			_ = SendToDLQ(ctx, rdb, QueueEmail, "unknown", json.RawMessage(res[1]), err.Error(), 0)
			continue
		}

		if err := processar(ctx, job, handlers); err != nil {
			job.Attempts++
			if job.Attempts >= maxAttempts {
				_ = SendToDLQ(ctx, rdb, QueueEmail, job.Type, job.Payload, err.Error(), job.Attempts)
				continue
			}
			log.Warn().Err(err).
				Str("job_type", job.Type).
				Int("attempts", job.Attempts).
				Msg("job falhou, reenfileirando")
			if data, mErr := json.Marshal(job); mErr == nil {
				_ = rdb.LPush(ctx, QueueEmail, data).Err()
			}
		}
	}
}

func processar(ctx context.Context, job Job, handlers Handlers) error {
	switch job.Type {
	case "email_fechamento":
		if handlers.Email == nil {
			return errors.New("nenhum handler de email configurado")
		}
		return handlers.Email.Processar(ctx, job.Payload)
	default:
		return errors.New("tipo de job desconhecido: " + job.Type)
	}
}
