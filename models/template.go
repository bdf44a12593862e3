package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hooper-lee/excant-backend/config"
	"github.com/hooper-lee/excant-backend/sheet"
	"github.com/hooper-lee/excant-backend/utils"
)

// SheetTemplate persists a reusable layout: sheet names, headers and the
// extraction prompt, never cell data.
type SheetTemplate struct {
	ID        int       `gorm:"primary_key" json:"id"`
	UserId    int       `gorm:"index;not null" json:"user_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Prompt    string    `gorm:"size:2000" json:"prompt"`
	Sheets    []byte    `gorm:"type:blob" json:"sheets"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *SheetTemplate) Shape() ([]sheet.SheetShape, error) {
	var shapes []sheet.SheetShape
	if len(t.Sheets) == 0 {
		return shapes, nil
	}
	if err := utils.UnmarshalFromJSON(t.Sheets, &shapes); err != nil {
		return nil, err
	}
	return shapes, nil
}

func CreateSheetTemplate(ctx context.Context, userId int, name string, tpl sheet.Template) (*SheetTemplate, error) {
	if name == "" {
		return nil, errors.New("template name is required")
	}
	shapes, err := json.Marshal(tpl.Sheets)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	record := SheetTemplate{
		UserId: userId,
		Name:   name,
		Prompt: tpl.Prompt,
		Sheets: shapes,
	}
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func GetUserSheetTemplates(ctx context.Context, userId int) ([]*SheetTemplate, error) {
	db := config.GetDB()
	var results []*SheetTemplate
	err := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetSheetTemplate(ctx context.Context, id int, userId int) (*SheetTemplate, error) {
	db := config.GetDB()
	var record SheetTemplate
	err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userId).Take(&record).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &record, nil
}

func DeleteSheetTemplate(ctx context.Context, id int, userId int) error {
	db := config.GetDB()
	res := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userId).Delete(&SheetTemplate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
