package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hooper-lee/excant-backend/config"
	"github.com/hooper-lee/excant-backend/utils"
)

// EventRecord implements the transactional outbox: it is written inside the
// caller's DB transaction but NOT published to Pub/Sub there. Publishing is
// performed asynchronously by the outbox dispatcher after commit.
type EventRecord struct {
	ID               int                `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	UserId           int                `gorm:"index;not null" json:"user_id"`
	ReferenceId      string             `gorm:"size:64;index" json:"reference_id"`
	ReferenceType    EventReferenceType `gorm:"type:enum('DOC','ORD','USR')" json:"reference_type"`
	Action           EventAction        `gorm:"type:enum('C','U','D')" json:"action"`
	Payload          []byte             `gorm:"type:blob" json:"payload"`
	PublishStatus    string             `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time         `gorm:"index" json:"published_at"`
	PubSubMessageId  *string            `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int                `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time         `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time         `gorm:"index" json:"locked_at"`
	LockedBy         *string            `gorm:"size:100" json:"locked_by"`
	LastPublishError *string            `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string             `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// EnqueueEvent records an event inside the caller's transaction.
func EnqueueEvent(ctx context.Context, db *gorm.DB, userId int, refId string, refType EventReferenceType, action EventAction, obj interface{}) error {
	var payload []byte
	if obj != nil {
		jsonStr, err := utils.MarshalToJSON(obj)
		if err != nil {
			return err
		}
		payload = []byte(jsonStr)
	}

	record := EventRecord{
		UserId:        userId,
		ReferenceId:   refId,
		ReferenceType: refType,
		Action:        action,
		Payload:       payload,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return db.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToDocumentEvent(record EventRecord) config.DocumentEvent {
	return config.DocumentEvent{
		ID:            record.ID,
		UserId:        record.UserId,
		ReferenceId:   record.ReferenceId,
		ReferenceType: string(record.ReferenceType),
		Action:        string(record.Action),
		OccurredAt:    record.CreatedAt,
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
	}
}
