package models

import (
	"strings"

	"gorm.io/gorm"
)

type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberPending   MemberStatus = "pending"
	MemberRejected  MemberStatus = "rejected"
	MemberSuspended MemberStatus = "suspended"
)

// Member is the read model of the directory: the core only consumes
// tier and status, the rest is contact info for payment prefill.
type Member struct {
	gorm.Model
	GoogleID string       `gorm:"uniqueIndex" json:"google_id"`
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Phone    string       `json:"phone"`
	Tier     string       `json:"tier"`
	Status   MemberStatus `json:"status"`
	IsStaff  bool         `json:"is_staff"`
}

// TierEquals compares membership tiers case-insensitively.
func TierEquals(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
