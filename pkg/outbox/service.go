package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
)

// DomainEvent describes one collection mutation. Services emit it inside the
// same transaction as the write it reports.
type DomainEvent struct {
	Collection  enums.Collection
	Operation   enums.ChangeOperation
	DocumentKey string
	Data        interface{}
	OccurredAt  time.Time
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var payload json.RawMessage
	if event.Data != nil {
		raw, err := json.Marshal(event.Data)
		if err != nil {
			return err
		}
		payload = raw
	}
	row := models.OutboxEvent{
		ID:          uuid.NewString(),
		Collection:  event.Collection,
		Operation:   event.Operation,
		DocumentKey: event.DocumentKey,
		Payload:     payload,
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":     row.ID,
			"collection":   event.Collection,
			"operation":    event.Operation,
			"document_key": event.DocumentKey,
		})
		s.logg.Info(logCtx, "outbox event queued")
	}
	return nil
}
