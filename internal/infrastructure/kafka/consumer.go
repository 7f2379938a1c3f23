package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	wbfkafka "github.com/wb-go/wbf/kafka"
	wbfretry "github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/imagecompressor/internal/config"
	"github.com/yokitheyo/imagecompressor/internal/dto"
	"github.com/yokitheyo/imagecompressor/internal/retry"
)

type MessageHandler func(ctx context.Context, task *dto.CompressImageRequest) error

type Consumer struct {
	client  *wbfkafka.Consumer
	handler MessageHandler
	topic   string
}

func NewConsumer(cfg *config.KafkaConfig, handler MessageHandler) *Consumer {
	client := wbfkafka.NewConsumer(cfg.Brokers, cfg.Topic, cfg.GroupID)

	zlog.Logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("group_id", cfg.GroupID).
		Msg("Kafka consumer initialized")

	return &Consumer{
		client:  client,
		handler: handler,
		topic:   cfg.Topic,
	}
}

// Start blocks until ctx is cancelled. Malformed messages are committed and
// dropped. A failing handler is retried with retry.HandlerStrategy and the
// message is then committed regardless: the consumer group does not
// redeliver an uncommitted offset within a session, and the job record is
// left failed or stale so it can be requeued. Only a shutdown mid-task skips
// the commit, so the task is fetched again after restart.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			zlog.Logger.Info().Msg("Kafka consumer stopped")
			return nil
		}

		msg, err := c.client.FetchWithRetry(ctx, retry.QueueStrategy)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			zlog.Logger.Error().Err(err).Msg("Failed to fetch Kafka message")
			time.Sleep(time.Second)
			continue
		}

		task, err := decodeTask(msg.Value)
		if err != nil {
			zlog.Logger.Error().
				Err(err).
				Bytes("msg", msg.Value).
				Msg("Dropping invalid compression task")
			if err := c.client.Commit(ctx, msg); err != nil {
				zlog.Logger.Error().Err(err).Msg("Failed to commit invalid message")
			}
			continue
		}

		zlog.Logger.Info().
			Str("image_id", task.ImageID).
			Str("output_type", task.OutputType).
			Msg("Received compression task")

		if err := handleWithRetry(ctx, c.handler, retry.HandlerStrategy, task); err != nil {
			if ctx.Err() != nil {
				zlog.Logger.Warn().Str("image_id", task.ImageID).Msg("Task interrupted by shutdown, leaving uncommitted")
				continue
			}
			zlog.Logger.Error().
				Err(err).
				Str("image_id", task.ImageID).
				Msg("Task processing failed after retries, committing")
		}

		if err := c.client.Commit(ctx, msg); err != nil {
			zlog.Logger.Error().
				Err(err).
				Str("image_id", task.ImageID).
				Msg("Failed to commit message")
			continue
		}

		zlog.Logger.Info().
			Str("image_id", task.ImageID).
			Msg("Task processed and committed successfully")
	}
}

func handleWithRetry(ctx context.Context, handler MessageHandler, strategy wbfretry.Strategy, task *dto.CompressImageRequest) error {
	attempts := max(strategy.Attempts, 1)
	delay := strategy.Delay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = handler(ctx, task); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		zlog.Logger.Warn().
			Err(err).
			Str("image_id", task.ImageID).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("Task processing failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if strategy.Backoff > 1 {
			delay = time.Duration(float64(delay) * strategy.Backoff)
		}
	}
	return err
}

func decodeTask(value []byte) (*dto.CompressImageRequest, error) {
	if len(value) == 0 {
		return nil, errors.New("empty message")
	}
	var task dto.CompressImageRequest
	if err := json.Unmarshal(value, &task); err != nil {
		return nil, err
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Consumer) Close() error {
	if err := c.client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka consumer")
		return err
	}
	zlog.Logger.Info().Msg("Kafka consumer closed successfully")
	return nil
}
