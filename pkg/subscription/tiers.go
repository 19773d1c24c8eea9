package subscription

type Tier string
type Status string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Stripe subscription statuses we persist verbatim.
const (
	StatusActive            Status = "active"
	StatusTrialing          Status = "trialing"
	StatusCanceled          Status = "canceled"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusPastDue           Status = "past_due"
	StatusUnpaid            Status = "unpaid"
)

type TierLimits struct {
	DailyQueries int // 0 means unlimited
}

var tierLimits = map[Tier]TierLimits{
	TierFree: {DailyQueries: 3},
	TierPro:  {DailyQueries: 0},
}

// TierForStatus derives the tier from a billing status. Pro is only valid
// while the subscription is active or trialing; every other status falls
// back to free on the next reconciliation.
func TierForStatus(status Status) Tier {
	switch status {
	case StatusActive, StatusTrialing:
		return TierPro
	default:
		return TierFree
	}
}

// IsEntitled reports whether a persisted tier/status pair grants pro access.
func IsEntitled(tier Tier, status Status) bool {
	return tier == TierPro && (status == StatusActive || status == StatusTrialing)
}

func GetTierLimits(tier Tier) TierLimits {
	limits, ok := tierLimits[tier]
	if !ok {
		return tierLimits[TierFree]
	}
	return limits
}
