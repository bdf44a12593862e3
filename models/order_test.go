package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validTestCard() *CardDetails {
	return &CardDetails{
		Number:      "4242424242424242",
		ExpiryMonth: 12,
		ExpiryYear:  2030,
		CVC:         "123",
		HolderName:  "Test User",
	}
}

func TestValidateCard(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("valid card", func(t *testing.T) {
		assert.NoError(t, ValidateCard(validTestCard(), now))
	})

	t.Run("spaces are stripped", func(t *testing.T) {
		card := validTestCard()
		card.Number = "4242 4242 4242 4242"
		assert.NoError(t, ValidateCard(card, now))
		assert.Equal(t, "4242424242424242", card.Number)
	})

	t.Run("non numeric number", func(t *testing.T) {
		card := validTestCard()
		card.Number = "4242-4242-4242-4242"
		assert.ErrorIs(t, ValidateCard(card, now), ErrInvalidCard)
	})

	t.Run("number too short", func(t *testing.T) {
		card := validTestCard()
		card.Number = "42424242"
		assert.ErrorIs(t, ValidateCard(card, now), ErrInvalidCard)
	})

	t.Run("missing holder name", func(t *testing.T) {
		card := validTestCard()
		card.HolderName = ""
		assert.ErrorIs(t, ValidateCard(card, now), ErrInvalidCard)
	})

	t.Run("expired card", func(t *testing.T) {
		card := validTestCard()
		card.ExpiryMonth = 5
		card.ExpiryYear = 2026
		assert.ErrorIs(t, ValidateCard(card, now), ErrCardExpired)
	})

	t.Run("expiry month is inclusive", func(t *testing.T) {
		card := validTestCard()
		card.ExpiryMonth = 6
		card.ExpiryYear = 2026
		assert.NoError(t, ValidateCard(card, now))
	})

	t.Run("invalid month", func(t *testing.T) {
		card := validTestCard()
		card.ExpiryMonth = 13
		assert.ErrorIs(t, ValidateCard(card, now), ErrInvalidCard)
	})
}

func TestChargeCardTestNumbers(t *testing.T) {
	declined := validTestCard()
	declined.Number = "4000000000000002"
	assert.ErrorIs(t, chargeCard(declined), ErrCardDeclined)

	processing := validTestCard()
	processing.Number = "4000000000000119"
	assert.ErrorIs(t, chargeCard(processing), ErrPaymentFailed)

	assert.NoError(t, chargeCard(validTestCard()))
}

func TestGetPlan(t *testing.T) {
	p, err := GetPlan("pro")
	assert.NoError(t, err)
	assert.Equal(t, 5000, p.PagesLimit)

	free, err := GetPlan(FreePlanID)
	assert.NoError(t, err)
	assert.Equal(t, DefaultPagesLimit, free.PagesLimit)
	assert.True(t, free.Amount.IsZero())

	_, err = GetPlan("platinum")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}
