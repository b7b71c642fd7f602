package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/core"
	"github.com/sevasangh/portal-api/internal/donation"
	"github.com/sevasangh/portal-api/internal/models"
	"github.com/sevasangh/portal-api/internal/notifier"
	"github.com/sevasangh/portal-api/internal/registration"
)

type staffSink struct {
	alerts []notifier.Message
}

func (s *staffSink) Notify(msg notifier.Message) error {
	s.alerts = append(s.alerts, msg)
	return nil
}

func setup(t *testing.T) (*gorm.DB, *Gateway, *registration.Service, *donation.Service, *staffSink) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.Member{}, &models.Activity{}, &models.Registration{},
		&models.RegistrationAudit{}, &models.Donation{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	sink := &staffSink{}
	regs := registration.NewService(db, sink, zerolog.Nop())
	dons := donation.NewService(db, sink, zerolog.Nop())
	gw := NewGateway(Config{
		KeyID:        "rzp_test_key",
		Secret:       "test-secret",
		MerchantName: "Seva Sangh",
		ThemeColor:   "#7a1f1f",
	}, regs, dons, sink, zerolog.Nop())
	return db, gw, regs, dons, sink
}

func pendingRegistration(t *testing.T, db *gorm.DB, regs *registration.Service) *models.Registration {
	t.Helper()
	member := models.Member{Name: "Traveller", Email: "t@example.com", Phone: "98765", Tier: "Regular", Status: models.MemberActive}
	db.Create(&member)
	activity := models.Activity{Name: "Yatra", Published: true, PriceTable: map[string]int64{"Regular": 50000}}
	db.Create(&activity)

	reg, err := regs.Create(context.Background(), activity.ID, member.ID, "", nil)
	if err != nil {
		t.Fatalf("failed to create registration: %v", err)
	}
	reg.Member = member
	return reg
}

func TestInitiateRegistration_BuildsCheckout(t *testing.T) {
	db, gw, regs, _, _ := setup(t)
	reg := pendingRegistration(t, db, regs)

	checkout, err := gw.InitiateRegistration(context.Background(), reg, "Yatra registration")
	if err != nil {
		t.Fatalf("InitiateRegistration failed: %v", err)
	}
	if checkout.Amount != 50000 {
		t.Errorf("expected amount 50000, got %d", checkout.Amount)
	}
	if checkout.Currency != "INR" {
		t.Errorf("expected INR, got %s", checkout.Currency)
	}
	if checkout.OrderID != reg.OrderRef {
		t.Errorf("expected order id %s, got %s", reg.OrderRef, checkout.OrderID)
	}
	if checkout.Prefill.Email != "t@example.com" {
		t.Errorf("expected prefill email, got %s", checkout.Prefill.Email)
	}
}

func TestInitiate_RejectedForNonPending(t *testing.T) {
	db, gw, regs, _, _ := setup(t)
	reg := pendingRegistration(t, db, regs)
	if _, err := regs.Cancel(context.Background(), reg.ID, "member"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	var stored models.Registration
	db.Preload("Member").First(&stored, reg.ID)

	_, err := gw.InitiateRegistration(context.Background(), &stored, "")
	var invalid *core.InvalidStateTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
}

func TestReconcile_HappyPath(t *testing.T) {
	db, gw, regs, _, _ := setup(t)
	reg := pendingRegistration(t, db, regs)

	cb := Callback{
		OrderRef:         reg.OrderRef,
		GatewayOrderID:   "order_gw_1",
		GatewayPaymentID: "pay_1",
		Amount:           50000,
	}
	cb.Signature = Sign("test-secret", cb.OrderRef, cb.GatewayPaymentID)

	if err := gw.Reconcile(context.Background(), cb); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	var stored models.Registration
	db.First(&stored, reg.ID)
	if stored.Status != models.RegistrationRegistered {
		t.Errorf("expected registered, got %s", stored.Status)
	}
	if stored.PaymentRef != "pay_1" {
		t.Errorf("expected payment ref pay_1, got %s", stored.PaymentRef)
	}

	// Gateway retry: replay is success, still one registered state.
	if err := gw.Reconcile(context.Background(), cb); err != nil {
		t.Fatalf("replayed Reconcile failed: %v", err)
	}
}

func TestReconcile_RejectsBadSignature(t *testing.T) {
	db, gw, regs, _, sink := setup(t)
	reg := pendingRegistration(t, db, regs)

	cb := Callback{
		OrderRef:         reg.OrderRef,
		GatewayPaymentID: "pay_1",
		Amount:           50000,
		Signature:        "forged",
	}
	err := gw.Reconcile(context.Background(), cb)
	var sigErr *core.SignatureInvalidError
	if !errors.As(err, &sigErr) {
		t.Fatalf("expected SignatureInvalidError, got %v", err)
	}

	var stored models.Registration
	db.First(&stored, reg.ID)
	if stored.Status != models.RegistrationPendingPayment {
		t.Errorf("expected registration untouched, got %s", stored.Status)
	}
	if len(sink.alerts) == 0 || sink.alerts[len(sink.alerts)-1].Kind != "payment_integrity_failure" {
		t.Error("expected staff alert for integrity failure")
	}
}

func TestReconcile_RejectsUnsignedPayload(t *testing.T) {
	db, gw, regs, _, _ := setup(t)
	reg := pendingRegistration(t, db, regs)

	cb := Callback{OrderRef: reg.OrderRef, GatewayPaymentID: "pay_1", Amount: 50000}
	var sigErr *core.SignatureInvalidError
	if err := gw.Reconcile(context.Background(), cb); !errors.As(err, &sigErr) {
		t.Fatalf("expected SignatureInvalidError for empty signature, got %v", err)
	}
}

func TestReconcile_AmountMismatchIsFatal(t *testing.T) {
	db, gw, regs, _, sink := setup(t)
	reg := pendingRegistration(t, db, regs)

	cb := Callback{
		OrderRef:         reg.OrderRef,
		GatewayPaymentID: "pay_1",
		Amount:           1,
	}
	cb.Signature = Sign("test-secret", cb.OrderRef, cb.GatewayPaymentID)

	err := gw.Reconcile(context.Background(), cb)
	var mismatch *core.AmountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected AmountMismatchError, got %v", err)
	}
	if mismatch.Expected != 50000 || mismatch.Got != 1 {
		t.Errorf("unexpected mismatch detail: %+v", mismatch)
	}

	// Never auto-corrected: stays pending for manual resolution.
	var stored models.Registration
	db.First(&stored, reg.ID)
	if stored.Status != models.RegistrationPendingPayment {
		t.Errorf("expected pending_payment, got %s", stored.Status)
	}
	if len(sink.alerts) == 0 {
		t.Error("expected staff alert")
	}
}

func TestReconcile_UnknownOrderRef(t *testing.T) {
	_, gw, _, _, _ := setup(t)

	cb := Callback{OrderRef: "missing", GatewayPaymentID: "pay_1", Amount: 100}
	cb.Signature = Sign("test-secret", cb.OrderRef, cb.GatewayPaymentID)

	var notFound *core.NotFoundError
	if err := gw.Reconcile(context.Background(), cb); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestReconcile_GatewayDonation(t *testing.T) {
	db, gw, _, dons, _ := setup(t)
	member := models.Member{Name: "Donor", Status: models.MemberActive, Tier: "Regular"}
	db.Create(&member)

	don, err := dons.InitiateGateway(context.Background(), member.ID, "Goshala", 25000)
	if err != nil {
		t.Fatalf("InitiateGateway failed: %v", err)
	}

	cb := Callback{OrderRef: don.OrderRef, GatewayPaymentID: "pay_don", Amount: 25000}
	cb.Signature = Sign("test-secret", cb.OrderRef, cb.GatewayPaymentID)

	if err := gw.Reconcile(context.Background(), cb); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	var stored models.Donation
	db.First(&stored, don.ID)
	if stored.PaymentRef != "pay_don" {
		t.Errorf("expected payment ref recorded, got %q", stored.PaymentRef)
	}
}

func TestSignature_RoundTrip(t *testing.T) {
	sig := Sign("secret", "order-1", "pay-1")
	if !VerifySignature("secret", "order-1", "pay-1", sig) {
		t.Error("valid signature did not verify")
	}
	if VerifySignature("secret", "order-1", "pay-2", sig) {
		t.Error("signature verified against wrong payment id")
	}
	if VerifySignature("other", "order-1", "pay-1", sig) {
		t.Error("signature verified against wrong secret")
	}
}
