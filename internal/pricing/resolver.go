// Package pricing computes the fee and eligibility of one member for
// one activity. Resolve is pure: it is called once to show a quote
// and again to freeze the fee at registration time.
package pricing

import (
	"github.com/sevasangh/portal-api/internal/core"
	"github.com/sevasangh/portal-api/internal/models"
)

// Quote is the result of resolving one (activity, member) pair.
// Fee is in paise.
type Quote struct {
	Eligible bool
	Reason   string
	Fee      int64
}

// Resolve checks tier eligibility and looks up the fee. An empty
// eligible-tier set means the activity is open to every member. The
// fee comes from the price table keyed by tier, falling back to the
// activity's base price, falling back to zero.
func Resolve(activity *models.Activity, member *models.Member) Quote {
	if len(activity.EligibleTiers) > 0 {
		found := false
		for _, tier := range activity.EligibleTiers {
			if models.TierEquals(tier, member.Tier) {
				found = true
				break
			}
		}
		if !found {
			err := &core.IneligibleError{Tier: member.Tier, AllowedTiers: activity.EligibleTiers}
			return Quote{Eligible: false, Reason: err.Error()}
		}
	}

	return Quote{Eligible: true, Fee: feeFor(activity, member.Tier)}
}

func feeFor(activity *models.Activity, tier string) int64 {
	for t, fee := range activity.PriceTable {
		if models.TierEquals(t, tier) {
			return clamp(fee)
		}
	}
	if activity.BasePrice != nil {
		return clamp(*activity.BasePrice)
	}
	return 0
}

// Fees are non-negative integers in the smallest currency unit.
func clamp(fee int64) int64 {
	if fee < 0 {
		return 0
	}
	return fee
}
