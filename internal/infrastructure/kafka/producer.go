package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/imagecompressor/internal/config"
	"github.com/yokitheyo/imagecompressor/internal/domain"
	"github.com/yokitheyo/imagecompressor/internal/dto"
	"github.com/yokitheyo/imagecompressor/internal/retry"
)

type Producer struct {
	client *wbfkafka.Producer
	topic  string
}

func NewProducer(cfg *config.KafkaConfig) *Producer {
	client := wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)
	zlog.Logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka producer initialized")
	return &Producer{
		client: client,
		topic:  cfg.Topic,
	}
}

// PublishCompressionTask enqueues a job keyed by image ID so retries of the
// same image stay on one partition.
func (p *Producer) PublishCompressionTask(ctx context.Context, imageID string, outputType domain.Format, quality int) error {
	task := dto.CompressImageRequest{
		ImageID:    imageID,
		OutputType: outputType.String(),
		Quality:    quality,
	}
	if err := task.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	if err := p.client.SendWithRetry(ctx, retry.QueueStrategy, []byte(imageID), data); err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("image_id", imageID).
			Str("output_type", task.OutputType).
			Msg("Failed to send Kafka message with retry")
		return fmt.Errorf("%w: %v", domain.ErrQueueFailed, err)
	}

	zlog.Logger.Info().
		Str("image_id", imageID).
		Str("output_type", task.OutputType).
		Int("quality", quality).
		Msg("Compression task published")
	return nil
}

func (p *Producer) Close() error {
	if err := p.client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka producer")
		return err
	}
	zlog.Logger.Info().Msg("Kafka producer closed successfully")
	return nil
}
