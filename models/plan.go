package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Plan is the hard-coded subscription catalog. Limits are monthly page
// quotas; amounts are CNY.
type Plan struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	PagesLimit int             `json:"pages_limit"`
	Amount     decimal.Decimal `json:"amount"`
}

const FreePlanID = "free"

// DefaultPagesLimit is the quota a fresh signup gets on the free plan.
const DefaultPagesLimit = 300

// InvitedPagesLimit is the free plan quota when signing up with an invite code.
const InvitedPagesLimit = 400

// InviteRewardPages is added to the inviter's limit per successful referral.
const InviteRewardPages = 100

var plans = []Plan{
	{ID: FreePlanID, Name: "Free", PagesLimit: DefaultPagesLimit, Amount: decimal.Zero},
	{ID: "pro", Name: "Pro", PagesLimit: 5000, Amount: decimal.NewFromInt(99)},
	{ID: "business", Name: "Business", PagesLimit: 20000, Amount: decimal.NewFromInt(299)},
}

var ErrUnknownPlan = errors.New("unknown plan")

func GetAllPlans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

func GetPlan(id string) (Plan, error) {
	for _, p := range plans {
		if p.ID == id {
			return p, nil
		}
	}
	return Plan{}, ErrUnknownPlan
}
