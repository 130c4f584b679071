package models

import (
	"encoding/json"
	"time"

	"github.com/businesssadigital-oss/backendpay/pkg/enums"
)

// OutboxEvent is an append-only change record written in the same transaction
// as the mutation it describes. The broadcaster drains it onto the realtime
// channel.
type OutboxEvent struct {
	ID           string                `gorm:"column:id;primaryKey" json:"id"`
	Collection   enums.Collection      `gorm:"column:collection;not null;index" json:"collection"`
	Operation    enums.ChangeOperation `gorm:"column:operation;not null" json:"operation"`
	DocumentKey  string                `gorm:"column:document_key;not null" json:"documentKey"`
	Payload      json.RawMessage       `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
	PublishedAt  *time.Time            `gorm:"column:published_at" json:"publishedAt"`
	AttemptCount int                   `gorm:"column:attempt_count;not null;default:0" json:"attemptCount"`
	LastError    *string               `gorm:"column:last_error" json:"lastError"`
}
