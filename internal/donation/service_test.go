package donation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/core"
	"github.com/sevasangh/portal-api/internal/models"
)

func setup(t *testing.T) (*gorm.DB, *Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.Member{}, &models.Donation{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db, NewService(db, nil, zerolog.Nop())
}

func donor(t *testing.T, db *gorm.DB) models.Member {
	t.Helper()
	m := models.Member{Name: "Donor", Tier: "Regular", Status: models.MemberActive}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("failed to create member: %v", err)
	}
	return m
}

func TestDeclare_RequiresTxnRef(t *testing.T) {
	db, svc := setup(t)
	m := donor(t, db)

	_, err := svc.Declare(context.Background(), m.ID, "Annadanam", 10000, "  ", "")
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for blank txn ref, got %v", err)
	}

	don, err := svc.Declare(context.Background(), m.ID, "Annadanam", 10000, "UTR123", "proof.jpg")
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	if don.Status != models.DonationPending {
		t.Errorf("expected pending, got %s", don.Status)
	}
	if don.Source != models.SourceDeclared {
		t.Errorf("expected source declared, got %s", don.Source)
	}
}

func TestVerify_AssignsSequentialReceipts(t *testing.T) {
	db, svc := setup(t)
	m := donor(t, db)

	first, _ := svc.Declare(context.Background(), m.ID, "Annadanam", 10000, "UTR1", "")
	second, _ := svc.Declare(context.Background(), m.ID, "Goshala", 20000, "UTR2", "")

	v1, err := svc.Verify(context.Background(), first.ID, 99, "", false)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if v1.ReceiptNo != "RCPT-000001" {
		t.Errorf("expected RCPT-000001, got %s", v1.ReceiptNo)
	}
	if v1.VerifiedByID == nil || *v1.VerifiedByID != 99 {
		t.Error("expected verified_by_id recorded")
	}
	if v1.VerifiedAt == nil {
		t.Error("expected verified_at recorded")
	}

	v2, err := svc.Verify(context.Background(), second.ID, 99, "", true)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if v2.ReceiptNo != "RCPT-000002" {
		t.Errorf("expected RCPT-000002, got %s", v2.ReceiptNo)
	}
	if v2.CertificateRef == "" {
		t.Error("expected certificate ref when requested")
	}
	if v1.CertificateRef != "" {
		t.Error("did not expect certificate ref without request")
	}
}

func TestVerify_SuppliedReceiptNumberWins(t *testing.T) {
	db, svc := setup(t)
	m := donor(t, db)

	don, _ := svc.Declare(context.Background(), m.ID, "Annadanam", 10000, "UTR1", "")
	v, err := svc.Verify(context.Background(), don.ID, 1, "BOOK-42", false)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if v.ReceiptNo != "BOOK-42" {
		t.Errorf("expected BOOK-42, got %s", v.ReceiptNo)
	}
}

func TestReject_RequiresReason(t *testing.T) {
	db, svc := setup(t)
	m := donor(t, db)
	don, _ := svc.Declare(context.Background(), m.ID, "Annadanam", 10000, "UTR1", "")

	for _, reason := range []string{"", "   ", "\t\n"} {
		_, err := svc.Reject(context.Background(), don.ID, 1, reason)
		var verr *core.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("reason %q: expected ValidationError, got %v", reason, err)
		}
	}

	rejected, err := svc.Reject(context.Background(), don.ID, 1, "no matching bank entry")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.Status != models.DonationRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}
	if !strings.Contains(rejected.RejectReason, "bank entry") {
		t.Errorf("expected reason stored, got %q", rejected.RejectReason)
	}
}

func TestDecision_IsSingleUse(t *testing.T) {
	db, svc := setup(t)
	m := donor(t, db)

	verified, _ := svc.Declare(context.Background(), m.ID, "Annadanam", 10000, "UTR1", "")
	if _, err := svc.Verify(context.Background(), verified.ID, 1, "", false); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	var invalid *core.InvalidStateTransitionError
	if _, err := svc.Verify(context.Background(), verified.ID, 2, "", false); !errors.As(err, &invalid) {
		t.Errorf("second Verify: expected InvalidStateTransitionError, got %v", err)
	}
	if _, err := svc.Reject(context.Background(), verified.ID, 2, "late"); !errors.As(err, &invalid) {
		t.Errorf("Reject after Verify: expected InvalidStateTransitionError, got %v", err)
	}

	// The original decision is untouched.
	var stored models.Donation
	db.First(&stored, verified.ID)
	if stored.Status != models.DonationVerified {
		t.Errorf("expected verified to stick, got %s", stored.Status)
	}
	if stored.ReceiptNo == "" {
		t.Error("receipt number was lost")
	}
}

func TestRecordGatewayPayment_IsIdempotent(t *testing.T) {
	db, svc := setup(t)
	m := donor(t, db)

	don, err := svc.InitiateGateway(context.Background(), m.ID, "Goshala", 25000)
	if err != nil {
		t.Fatalf("InitiateGateway failed: %v", err)
	}
	if don.OrderRef == "" {
		t.Fatal("expected an order ref")
	}

	for i := 0; i < 3; i++ {
		out, err := svc.RecordGatewayPayment(context.Background(), don.ID, "pay_don_1")
		if err != nil {
			t.Fatalf("RecordGatewayPayment call %d failed: %v", i, err)
		}
		if out.PaymentRef != "pay_don_1" {
			t.Errorf("call %d: expected payment ref kept, got %q", i, out.PaymentRef)
		}
	}
	var stored models.Donation
	db.First(&stored, don.ID)
	if stored.Status != models.DonationPending {
		t.Errorf("gateway payment must not skip verification, got %s", stored.Status)
	}
}
