package models

import (
	"time"

	"gorm.io/gorm"
)

type DonationStatus string

const (
	DonationPending  DonationStatus = "pending"
	DonationVerified DonationStatus = "verified"
	DonationRejected DonationStatus = "rejected"
)

type DonationSource string

const (
	SourceDeclared DonationSource = "declared"
	SourceGateway  DonationSource = "gateway"
	SourcePledge   DonationSource = "pledge"
)

type Donation struct {
	gorm.Model
	MemberID uint   `gorm:"index" json:"member_id"`
	Member   Member `gorm:"foreignKey:MemberID" json:"member"`
	Purpose  string `json:"purpose"`
	Amount   int64  `json:"amount"` // paise

	Status DonationStatus `gorm:"index" json:"status"`
	Source DonationSource `json:"source"`

	// Declared (offline) payments carry the donor's bank reference
	// and an optional proof-of-payment screenshot reference.
	TxnRef        string `json:"txn_ref,omitempty"`
	ScreenshotRef string `json:"screenshot_ref,omitempty"`

	// Gateway-paid donations go through the same reconcile path as
	// registrations, keyed by OrderRef.
	OrderRef   string `gorm:"index" json:"order_ref,omitempty"`
	PaymentRef string `json:"payment_ref,omitempty"`

	ReceiptNo      string     `json:"receipt_no,omitempty"`
	RejectReason   string     `json:"reject_reason,omitempty"`
	CertificateRef string     `json:"certificate_ref,omitempty"`
	VerifiedByID   *uint      `json:"verified_by_id,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`

	PledgeID *uint `gorm:"index" json:"pledge_id,omitempty"`
}
