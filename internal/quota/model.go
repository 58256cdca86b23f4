package quota

import (
	"encoding/json"
	"errors"
)

var (
	ErrQuotaExhausted = errors.New("daily quota exhausted")
	ErrSelfReferral   = errors.New("user cannot refer themselves")
)

// Unlimited is how an unbounded limit is rendered to clients.
const Unlimited = "∞"

// Policy is the base allowance plus the bonus earned per referral.
type Policy struct {
	BaseLimit     int
	ReferralBonus int
}

// Max is the ceiling for a non-premium user with the given referral count.
func (p Policy) Max(referrals int) int {
	return p.BaseLimit + p.ReferralBonus*referrals
}

// Account is the quota-relevant slice of a users row.
type Account struct {
	TelegramID string
	IsPremium  bool
	DailyLimit int
}

// Limits describes a submitter's allowance. DailyLimit is the remaining
// count for today and is nil when the user has no record yet or is premium.
type Limits struct {
	IsPremium  bool
	Limit      int
	Unlimited  bool
	DailyLimit *int
}

// HasRemaining reports whether a rewrite may proceed.
func (l Limits) HasRemaining() bool {
	if l.Unlimited {
		return true
	}
	if l.DailyLimit == nil {
		return l.Limit > 0
	}
	return *l.DailyLimit > 0
}

func (l Limits) MarshalJSON() ([]byte, error) {
	var limit any = l.Limit
	if l.Unlimited {
		limit = Unlimited
	}
	return json.Marshal(struct {
		IsPremium  bool `json:"isPremium"`
		Limit      any  `json:"limit"`
		DailyLimit *int `json:"dailyLimit,omitempty"`
	}{l.IsPremium, limit, l.DailyLimit})
}

type ReferralRequest struct {
	InviterID string `json:"inviterId" validate:"required,max=64"`
	InvitedID string `json:"invitedId" validate:"required,max=64"`
}

// QuotaResponse is the quota endpoint body.
type QuotaResponse struct {
	Limits       Limits `json:"limits"`
	ReferralLink string `json:"referralLink"`
}
