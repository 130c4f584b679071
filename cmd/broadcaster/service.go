package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/businesssadigital-oss/backendpay/pkg/config"
	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/outbox"
	"github.com/businesssadigital-oss/backendpay/pkg/redis"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	publishRetryBase      = 100 * time.Millisecond
	publishRetryCap       = 2 * time.Second
	publishRetries        = 3
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type outboxRepository interface {
	FetchUnpublished(limit int) ([]models.OutboxEvent, error)
	MarkPublished(id string) error
	MarkFailed(id string, err error) error
	MarkTerminal(id string, err error) error
}

type broadcastMetrics interface {
	IncOutboxPublished()
	IncOutboxFailure()
}

type pinger interface {
	Ping(context.Context) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         pinger
	Repository outboxRepository
	Publisher  redis.Publisher
	Metrics    broadcastMetrics
}

// Service drains the outbox table onto the realtime Redis channel. Each row
// becomes one ChangeEnvelope message; rows stay pending until a publish
// succeeds or the attempt budget runs out.
type Service struct {
	cfg            *config.Config
	logg           *logger.Logger
	db             pinger
	repo           outboxRepository
	publisher      redis.Publisher
	metrics        broadcastMetrics
	channel        string
	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	bc := params.Config.Broadcast
	channel := bc.Channel
	if channel == "" {
		channel = "backendpay.changes"
	}
	batch := bc.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := bc.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	publishTimeout := bc.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}
	maxAttempts := bc.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:            params.Config,
		logg:           params.Logger,
		db:             params.DB,
		repo:           params.Repository,
		publisher:      params.Publisher,
		metrics:        params.Metrics,
		channel:        channel,
		batchSize:      batch,
		maxAttempts:    maxAttempts,
		pollInterval:   poll,
		publishTimeout: publishTimeout,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			s.logg.Error(ctx, "database ping failed", err)
			return fmt.Errorf("database ping failed: %w", err)
		}
	}
	if p, ok := s.publisher.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			s.logg.Error(ctx, "redis ping failed", err)
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "broadcaster context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.drainOnce(ctx)
		if err != nil {
			s.logg.Error(ctx, "broadcaster batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// drainOnce claims one batch of pending events and publishes them in order.
// A publish failure marks the row and moves on so one poisoned event cannot
// stall the rest of the batch.
func (s *Service) drainOnce(ctx context.Context) (bool, error) {
	events, err := s.repo.FetchUnpublished(s.batchSize)
	if err != nil {
		return false, fmt.Errorf("fetch unpublished: %w", err)
	}
	if len(events) == 0 {
		return false, nil
	}

	var batchErr error
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return true, multierr.Append(batchErr, err)
		}

		fields := s.eventFields(event)

		if err := s.publishEvent(ctx, event); err != nil {
			if s.metrics != nil {
				s.metrics.IncOutboxFailure()
			}
			nextAttempt := event.AttemptCount + 1
			fields["attempt_count"] = nextAttempt

			if nextAttempt >= s.maxAttempts {
				fields["terminal_reason"] = "max_attempts"
				terminalErr := fmt.Errorf("max publish attempts reached: %w", err)
				logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", terminalErr.Error())
				s.logg.Warn(logCtx, "outbox event will not be retried")
				if markErr := s.repo.MarkTerminal(event.ID, terminalErr); markErr != nil {
					batchErr = multierr.Append(batchErr, fmt.Errorf("mark terminal %s: %w", event.ID, markErr))
				}
				continue
			}

			logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error())
			s.logg.Warn(logCtx, "outbox publish failed")
			if markErr := s.repo.MarkFailed(event.ID, err); markErr != nil {
				batchErr = multierr.Append(batchErr, fmt.Errorf("mark failed %s: %w", event.ID, markErr))
			}
			batchErr = multierr.Append(batchErr, err)
			continue
		}

		if markErr := s.repo.MarkPublished(event.ID); markErr != nil {
			batchErr = multierr.Append(batchErr, fmt.Errorf("mark published %s: %w", event.ID, markErr))
			continue
		}
		if s.metrics != nil {
			s.metrics.IncOutboxPublished()
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
	}
	return true, batchErr
}

func (s *Service) publishEvent(ctx context.Context, event models.OutboxEvent) error {
	envelope := outbox.ChangeEnvelope{
		EventID:     event.ID,
		Collection:  string(event.Collection),
		Operation:   string(event.Operation),
		DocumentKey: event.DocumentKey,
		OccurredAt:  event.CreatedAt,
		Data:        event.Payload,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", event.ID, err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(publishRetries,
		retry.WithCappedDuration(publishRetryCap,
			retry.WithJitter(publishRetryBase/2,
				retry.NewExponential(publishRetryBase))))

	return retry.Do(publishCtx, backoff, func(ctx context.Context) error {
		if err := s.publisher.Publish(ctx, s.channel, payload); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (s *Service) eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":     event.ID,
		"collection":    event.Collection,
		"operation":     event.Operation,
		"document_key":  event.DocumentKey,
		"channel":       s.channel,
		"batch_size":    s.batchSize,
		"attempt_count": event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
