// Package donation owns the contribution ledger: declared (offline)
// donations awaiting staff verification, gateway-paid donations, and
// donations materialized from recurring pledges. Verified and
// rejected are terminal; a decision is never silently overwritten.
package donation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/core"
	"github.com/sevasangh/portal-api/internal/models"
	"github.com/sevasangh/portal-api/internal/notifier"
)

type Service struct {
	db   *gorm.DB
	sink notifier.Notifier
	log  zerolog.Logger
}

func NewService(db *gorm.DB, sink notifier.Notifier, log zerolog.Logger) *Service {
	if sink == nil {
		sink = notifier.Noop{}
	}
	return &Service{db: db, sink: sink, log: log}
}

// Declare records an offline contribution: the donor has already paid
// by bank transfer or cash and submits the reference for staff to
// verify against the statement.
func (s *Service) Declare(ctx context.Context, memberID uint, purpose string, amount int64, txnRef, screenshotRef string) (*models.Donation, error) {
	if err := validate(purpose, amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(txnRef) == "" {
		return nil, &core.ValidationError{Msg: "declared donation needs a transaction reference"}
	}

	don := models.Donation{
		MemberID:      memberID,
		Purpose:       purpose,
		Amount:        amount,
		Status:        models.DonationPending,
		Source:        models.SourceDeclared,
		TxnRef:        txnRef,
		ScreenshotRef: screenshotRef,
	}
	if err := s.db.WithContext(ctx).Create(&don).Error; err != nil {
		return nil, err
	}

	s.notify(notifier.Message{
		Recipient: notifier.RoleStaff,
		Kind:      "donation_declared",
		Title:     "Donation awaiting verification",
		Body:      fmt.Sprintf("Member %d declared %d paise for %s", memberID, amount, purpose),
		Metadata:  map[string]string{"txn_ref": txnRef},
	})
	return &don, nil
}

// InitiateGateway opens a pending donation to be paid through the
// payment gateway; the order ref ties the callback back to this row.
func (s *Service) InitiateGateway(ctx context.Context, memberID uint, purpose string, amount int64) (*models.Donation, error) {
	if err := validate(purpose, amount); err != nil {
		return nil, err
	}
	don := models.Donation{
		MemberID: memberID,
		Purpose:  purpose,
		Amount:   amount,
		Status:   models.DonationPending,
		Source:   models.SourceGateway,
		OrderRef: uuid.NewString(),
	}
	if err := s.db.WithContext(ctx).Create(&don).Error; err != nil {
		return nil, err
	}
	return &don, nil
}

// RecordGatewayPayment stores the gateway payment reference on a
// pending donation. Idempotent under callback replays; the donation
// still goes through staff verification for its receipt.
func (s *Service) RecordGatewayPayment(ctx context.Context, donationID uint, paymentRef string) (*models.Donation, error) {
	var don models.Donation
	recorded := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&don, donationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &core.NotFoundError{Entity: "donation", Ref: fmt.Sprint(donationID)}
			}
			return err
		}
		if don.PaymentRef != "" {
			return nil // replayed callback
		}
		if don.Status != models.DonationPending {
			return &core.InvalidStateTransitionError{
				Entity:    "donation",
				Current:   string(don.Status),
				Requested: "payment_recorded",
			}
		}
		don.PaymentRef = paymentRef
		recorded = true
		return tx.Save(&don).Error
	})
	if err != nil {
		return nil, err
	}

	if recorded {
		s.notify(notifier.Message{
			Recipient: notifier.RoleStaff,
			Kind:      "donation_paid",
			Title:     "Gateway donation paid",
			Body:      fmt.Sprintf("Donation %d (%d paise) paid, awaiting verification", don.ID, don.Amount),
			Metadata:  map[string]string{"payment_ref": paymentRef},
		})
	}
	return &don, nil
}

// Verify marks a pending donation verified, assigns its receipt
// number (sequential when not supplied) and optionally a tax
// certificate reference. The status guard is re-checked at write time
// so two staff racing on the same donation produce exactly one winner.
func (s *Service) Verify(ctx context.Context, donationID, staffID uint, receiptNo string, generateCertificate bool) (*models.Donation, error) {
	var don models.Donation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&don, donationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &core.NotFoundError{Entity: "donation", Ref: fmt.Sprint(donationID)}
			}
			return err
		}
		if don.Status != models.DonationPending {
			return &core.InvalidStateTransitionError{
				Entity:    "donation",
				Current:   string(don.Status),
				Requested: string(models.DonationVerified),
			}
		}

		if receiptNo == "" {
			var issued int64
			if err := tx.Model(&models.Donation{}).Where("receipt_no <> ''").Count(&issued).Error; err != nil {
				return err
			}
			receiptNo = fmt.Sprintf("RCPT-%06d", issued+1)
		}

		now := time.Now()
		updates := map[string]any{
			"status":         models.DonationVerified,
			"receipt_no":     receiptNo,
			"verified_by_id": staffID,
			"verified_at":    now,
		}
		if generateCertificate {
			updates["certificate_ref"] = uuid.NewString()
		}

		res := tx.Model(&models.Donation{}).
			Where("id = ? AND status = ?", don.ID, models.DonationPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &core.ConflictError{Msg: fmt.Sprintf("donation %d was decided concurrently", don.ID)}
		}
		return tx.First(&don, donationID).Error
	})
	if err != nil {
		return nil, err
	}

	s.notify(notifier.Message{
		Recipient: fmt.Sprint(don.MemberID),
		Kind:      "donation_verified",
		Title:     "Donation verified",
		Body:      fmt.Sprintf("Your donation of %d paise for %s has been verified. Receipt %s.", don.Amount, don.Purpose, don.ReceiptNo),
		Metadata:  map[string]string{"receipt_no": don.ReceiptNo},
	})
	return &don, nil
}

// Reject marks a pending donation rejected. The reason is mandatory
// and relayed to the donor.
func (s *Service) Reject(ctx context.Context, donationID, staffID uint, reason string) (*models.Donation, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, &core.ValidationError{Msg: "rejection reason must not be empty"}
	}

	var don models.Donation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&don, donationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &core.NotFoundError{Entity: "donation", Ref: fmt.Sprint(donationID)}
			}
			return err
		}
		if don.Status != models.DonationPending {
			return &core.InvalidStateTransitionError{
				Entity:    "donation",
				Current:   string(don.Status),
				Requested: string(models.DonationRejected),
			}
		}

		now := time.Now()
		res := tx.Model(&models.Donation{}).
			Where("id = ? AND status = ?", don.ID, models.DonationPending).
			Updates(map[string]any{
				"status":         models.DonationRejected,
				"reject_reason":  reason,
				"verified_by_id": staffID,
				"verified_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &core.ConflictError{Msg: fmt.Sprintf("donation %d was decided concurrently", don.ID)}
		}
		return tx.First(&don, donationID).Error
	})
	if err != nil {
		return nil, err
	}

	s.notify(notifier.Message{
		Recipient: fmt.Sprint(don.MemberID),
		Kind:      "donation_rejected",
		Title:     "Donation could not be verified",
		Body:      fmt.Sprintf("Your donation of %d paise for %s was rejected: %s", don.Amount, don.Purpose, reason),
	})
	return &don, nil
}

// ByOrderRef looks a gateway-paid donation up by the order id echoed
// back in the gateway callback.
func (s *Service) ByOrderRef(ctx context.Context, orderRef string) (*models.Donation, error) {
	var don models.Donation
	err := s.db.WithContext(ctx).Where("order_ref = ?", orderRef).First(&don).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &core.NotFoundError{Entity: "donation", Ref: orderRef}
	}
	if err != nil {
		return nil, err
	}
	return &don, nil
}

// ForMember lists a member's donations, newest first.
func (s *Service) ForMember(ctx context.Context, memberID uint) ([]models.Donation, error) {
	var dons []models.Donation
	err := s.db.WithContext(ctx).Where("member_id = ?", memberID).
		Order("created_at desc").Find(&dons).Error
	return dons, err
}

// Ledger lists every donation for staff reporting, oldest first.
func (s *Service) Ledger(ctx context.Context) ([]models.Donation, error) {
	var dons []models.Donation
	err := s.db.WithContext(ctx).Preload("Member").Order("created_at asc").Find(&dons).Error
	return dons, err
}

func (s *Service) notify(msg notifier.Message) {
	if err := s.sink.Notify(msg); err != nil {
		s.log.Warn().Err(err).Str("kind", msg.Kind).Msg("notification dropped")
	}
}

func validate(purpose string, amount int64) error {
	if strings.TrimSpace(purpose) == "" {
		return &core.ValidationError{Msg: "donation purpose must not be empty"}
	}
	if amount <= 0 {
		return &core.ValidationError{Msg: "donation amount must be positive"}
	}
	return nil
}
