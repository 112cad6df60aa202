package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQKey is the Redis list holding jobs and commands that failed permanently.
// Entries are kept for manual inspection; nothing is retried automatically
// from here.
const DLQKey = "jobs:dlq"

// DLQEntry wraps a failed payload with enough context to diagnose it later.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Error         string          `json:"error"`
	Attempts      int             `json:"attempts"`
	FailedAt      time.Time       `json:"failed_at"`
}

// SendToDLQ parks a payload in the dead-letter queue.
func SendToDLQ(ctx context.Context, rdb *redis.Client, originalQueue, jobType string, payload json.RawMessage, errMsg string, attempts int) error {
	entry := DLQEntry{
		OriginalQueue: originalQueue,
		JobType:       jobType,
		Payload:       payload,
		Error:         errMsg,
		Attempts:      attempts,
		FailedAt:      time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if err := rdb.LPush(ctx, DLQKey, data).Err(); err != nil {
		return err
	}

	log.Warn().
		Str("queue", originalQueue).
		Str("job_type", jobType).
		Str("error", errMsg).
		Msg("payload enviado para a DLQ")
	return nil
}

// DLQLength returns how many entries sit in the dead-letter queue.
func DLQLength(ctx context.Context, rdb *redis.Client) (int64, error) {
	return rdb.LLen(ctx, DLQKey).Result()
}
