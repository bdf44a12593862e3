package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hooper-lee/excant-backend/config"
	"github.com/hooper-lee/excant-backend/utils"
)

type Order struct {
	ID        int             `gorm:"primary_key" json:"id"`
	UserId    int             `gorm:"index;not null" json:"user_id"`
	PlanId    string          `gorm:"size:32;not null" json:"plan_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status    OrderStatus     `gorm:"type:enum('PENDING','COMPLETED','FAILED');default:PENDING" json:"status"`
	CardLast4 string          `gorm:"size:4" json:"card_last4"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// CardDetails is the simulated payment input. Card numbers are never stored,
// only the last four digits end up on the order row.
type CardDetails struct {
	Number      string `json:"number" validate:"required,numeric,min=13,max=19"`
	ExpiryMonth int    `json:"expiry_month" validate:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year" validate:"required,min=2020,max=2100"`
	CVC         string `json:"cvc" validate:"required,numeric,min=3,max=4"`
	HolderName  string `json:"holder_name" validate:"required"`
}

// Well-known test numbers that force a payment outcome.
const (
	testCardDeclined        = "4000000000000002"
	testCardProcessingError = "4000000000000119"
)

var (
	ErrCardDeclined    = errors.New("card declined")
	ErrPaymentFailed   = errors.New("payment processing error")
	ErrInvalidCard     = errors.New("invalid card details")
	ErrCardExpired     = errors.New("card expired")
	ErrFreePlanNotPaid = errors.New("free plan does not require payment")
)

var cardValidator = validator.New()

func ValidateCard(card *CardDetails, now time.Time) error {
	card.Number = strings.ReplaceAll(card.Number, " ", "")
	if err := cardValidator.Struct(card); err != nil {
		return ErrInvalidCard
	}
	endOfMonth := time.Date(card.ExpiryYear, time.Month(card.ExpiryMonth), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, 0)
	if !now.Before(endOfMonth) {
		return ErrCardExpired
	}
	return nil
}

// chargeCard simulates the payment gateway. Any number other than the test
// failure cards succeeds.
func chargeCard(card *CardDetails) error {
	switch card.Number {
	case testCardDeclined:
		return ErrCardDeclined
	case testCardProcessingError:
		return ErrPaymentFailed
	}
	return nil
}

// ProcessPayment validates the card, simulates the charge and, on success,
// upgrades the user in a single transaction: order COMPLETED, plan switched,
// pages limit reset to the plan's quota plus earned invite pages, and the
// subscription period extended 30 days.
func ProcessPayment(ctx context.Context, userId int, planId string, card *CardDetails) (*Order, *User, error) {
	db := config.GetDB()
	now := time.Now()

	plan, err := GetPlan(planId)
	if err != nil {
		return nil, nil, err
	}
	if plan.ID == FreePlanID {
		return nil, nil, ErrFreePlanNotPaid
	}

	if err := ValidateCard(card, now); err != nil {
		return nil, nil, err
	}

	last4 := card.Number[len(card.Number)-4:]

	if err := chargeCard(card); err != nil {
		// record the failed attempt, then surface the gateway error
		failed := Order{
			UserId:    userId,
			PlanId:    plan.ID,
			Amount:    plan.Amount,
			Status:    OrderStatusFailed,
			CardLast4: last4,
		}
		if dbErr := db.WithContext(ctx).Create(&failed).Error; dbErr != nil {
			config.LogError(config.GetLogger(), "order.go", "ProcessPayment", "recording failed order", userId, dbErr)
		}
		return nil, nil, err
	}

	order := Order{
		UserId:    userId,
		PlanId:    plan.ID,
		Amount:    plan.Amount,
		Status:    OrderStatusCompleted,
		CardLast4: last4,
	}

	var user User
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userId).Take(&user).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		if err := tx.Model(&User{}).Where("id = ?", userId).Updates(map[string]interface{}{
			"plan":        plan.ID,
			"pages_limit": plan.PagesLimit + user.InvitePages,
		}).Error; err != nil {
			return err
		}

		if err := upsertSubscription(tx, userId, plan.ID, now); err != nil {
			return err
		}

		if err := tx.Where("id = ?", userId).Take(&user).Error; err != nil {
			return err
		}

		return EnqueueEvent(ctx, tx, userId, fmt.Sprint(order.ID), EventReferenceOrder, EventActionCreate, order)
	})
	if err != nil {
		return nil, nil, err
	}

	user.PrepareGive()
	return &order, &user, nil
}

func GetUserOrders(ctx context.Context, userId int) ([]*Order, error) {
	db := config.GetDB()
	var results []*Order
	err := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
