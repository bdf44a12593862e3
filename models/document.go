package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hooper-lee/excant-backend/config"
	"github.com/hooper-lee/excant-backend/utils"
)

// Document is one uploaded file plus its extraction result.
type Document struct {
	ID            string         `gorm:"primary_key;size:36" json:"id"`
	UserId        int            `gorm:"index;not null" json:"user_id"`
	OriginalName  string         `gorm:"size:255;not null" json:"original_name"`
	ContentType   string         `gorm:"size:100" json:"content_type"`
	PageCount     int            `gorm:"not null;default:0" json:"page_count"`
	Status        DocumentStatus `gorm:"type:enum('PROCESSING','COMPLETED','FAILED');default:PROCESSING" json:"status"`
	ExtractedData []byte         `gorm:"type:mediumblob" json:"extracted_data"`
	ObjectKey     string         `gorm:"size:255" json:"object_key"`
	ErrorMessage  string         `gorm:"size:512" json:"error_message"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// CreateDocument persists a finished extraction and charges the page quota
// in one transaction. The quota was pre-checked under the redis lock, the
// WHERE clause re-asserts it against concurrent writers.
func CreateDocument(ctx context.Context, doc *Document) (*Document, error) {
	db := config.GetDB()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}

		res := tx.Model(&User{}).
			Where("id = ? AND pages_used + ? <= pages_limit", doc.UserId, doc.PageCount).
			Update("pages_used", gorm.Expr("pages_used + ?", doc.PageCount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrQuotaExceeded
		}

		return EnqueueEvent(ctx, tx, doc.UserId, doc.ID, EventReferenceDocument, EventActionCreate, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// MarkDocumentFailed records an extraction failure. Failed documents do not
// consume quota.
func MarkDocumentFailed(ctx context.Context, doc *Document, cause error) error {
	db := config.GetDB()
	doc.Status = DocumentStatusFailed
	if cause != nil {
		doc.ErrorMessage = cause.Error()
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		return EnqueueEvent(ctx, tx, doc.UserId, doc.ID, EventReferenceDocument, EventActionCreate, doc)
	})
}

func GetUserDocuments(ctx context.Context, userId int, limit int) ([]*Document, error) {
	db := config.GetDB()
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var results []*Document
	err := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetDocument(ctx context.Context, id string, userId int) (*Document, error) {
	if id == "" {
		return nil, errors.New("document id is required")
	}
	db := config.GetDB()
	var doc Document
	err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userId).Take(&doc).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &doc, nil
}
