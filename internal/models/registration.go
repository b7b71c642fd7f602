package models

import (
	"time"

	"gorm.io/gorm"
)

type RegistrationStatus string

const (
	RegistrationPendingPayment RegistrationStatus = "pending_payment"
	RegistrationRegistered     RegistrationStatus = "registered"
	RegistrationCancelled      RegistrationStatus = "cancelled"
)

type Registration struct {
	gorm.Model
	MemberID   uint     `gorm:"index:idx_member_activity" json:"member_id"`
	Member     Member   `gorm:"foreignKey:MemberID" json:"member"`
	ActivityID uint     `gorm:"index:idx_member_activity" json:"activity_id"`
	Activity   Activity `gorm:"foreignKey:ActivityID" json:"activity"`

	Status RegistrationStatus `gorm:"index" json:"status"`

	// Fee is frozen at creation time in paise; later price-table
	// edits never touch it.
	Fee      int64          `json:"fee"`
	Comments string         `json:"comments"`
	Answers  map[string]any `gorm:"serializer:json" json:"answers"`

	// OrderRef is the merchant-assigned order id handed to the
	// payment gateway and echoed back in its callback.
	OrderRef    string     `gorm:"uniqueIndex" json:"order_ref"`
	PaymentRef  string     `json:"payment_ref"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledBy string     `json:"cancelled_by,omitempty"`
}

// RegistrationAudit is an append-only snapshot of every status
// transition. Registrations are never hard-deleted.
type RegistrationAudit struct {
	gorm.Model
	RegistrationID uint               `gorm:"index" json:"registration_id"`
	FromStatus     RegistrationStatus `json:"from_status"`
	ToStatus       RegistrationStatus `json:"to_status"`
	Actor          string             `json:"actor"`
}
