package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cookerz-backend/pkg/enums"
)

// OutboxEvent is an append-only change record written in the mutating transaction.
// The row id doubles as the published event id.
type OutboxEvent struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Source       enums.FeedTable `gorm:"column:source_table;not null"`
	Op           enums.ChangeOp  `gorm:"column:op;not null"`
	RowID        uuid.UUID       `gorm:"column:row_id;type:uuid;not null"`
	Payload      json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	PublishedAt  *time.Time      `gorm:"column:published_at"`
	AttemptCount int             `gorm:"column:attempt_count;not null"`
	LastError    *string         `gorm:"column:last_error"`
}
