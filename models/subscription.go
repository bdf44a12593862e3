package models

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/hooper-lee/excant-backend/config"
	"github.com/hooper-lee/excant-backend/utils"
)

type Subscription struct {
	ID               int                `gorm:"primary_key" json:"id"`
	UserId           int                `gorm:"not null;unique" json:"user_id"`
	PlanId           string             `gorm:"size:32;not null" json:"plan_id"`
	Status           SubscriptionStatus `gorm:"type:enum('ACTIVE','EXPIRED','CANCELED');default:ACTIVE" json:"status"`
	CurrentPeriodEnd time.Time          `gorm:"not null" json:"current_period_end"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// upsertSubscription extends or replaces the user's subscription inside the
// caller's transaction. A new paid period always runs 30 days from now.
func upsertSubscription(tx *gorm.DB, userId int, planId string, now time.Time) error {
	var sub Subscription
	err := tx.Where("user_id = ?", userId).Take(&sub).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return err
		}
		sub = Subscription{
			UserId:           userId,
			PlanId:           planId,
			Status:           SubscriptionStatusActive,
			CurrentPeriodEnd: now.Add(30 * 24 * time.Hour),
		}
		return tx.Create(&sub).Error
	}

	return tx.Model(&Subscription{}).Where("user_id = ?", userId).Updates(map[string]interface{}{
		"plan_id":            planId,
		"status":             SubscriptionStatusActive,
		"current_period_end": now.Add(30 * 24 * time.Hour),
	}).Error
}

func GetSubscription(ctx context.Context, userId int) (*Subscription, error) {
	db := config.GetDB()
	var sub Subscription
	if err := db.WithContext(ctx).Where("user_id = ?", userId).Take(&sub).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &sub, nil
}
