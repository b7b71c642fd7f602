package models

import (
	"time"

	"gorm.io/gorm"
)

type PledgeStatus string

const (
	PledgeActive    PledgeStatus = "active"
	PledgePaused    PledgeStatus = "paused"
	PledgeCancelled PledgeStatus = "cancelled"
)

type PledgeFrequency string

const (
	FrequencyMonthly   PledgeFrequency = "monthly"
	FrequencyQuarterly PledgeFrequency = "quarterly"
	FrequencyYearly    PledgeFrequency = "yearly"
)

// RecurringPledge is a donor's standing instruction; the sweep turns
// each due active pledge into one pending Donation per period.
type RecurringPledge struct {
	gorm.Model
	MemberID  uint            `gorm:"index" json:"member_id"`
	Member    Member          `gorm:"foreignKey:MemberID" json:"member"`
	Purpose   string          `json:"purpose"`
	Amount    int64           `json:"amount"` // paise
	Frequency PledgeFrequency `json:"frequency"`
	Status    PledgeStatus    `gorm:"index" json:"status"`
	NextDueAt time.Time       `gorm:"index" json:"next_due_at"`
}
