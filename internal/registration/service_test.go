package registration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/core"
	"github.com/sevasangh/portal-api/internal/models"
	"github.com/sevasangh/portal-api/internal/notifier"
)

type captureSink struct {
	mu       sync.Mutex
	messages []notifier.Message
}

func (c *captureSink) Notify(msg notifier.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return nil
}

func (c *captureSink) count(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.messages {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

func setup(t *testing.T) (*gorm.DB, *Service, *captureSink) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.Member{}, &models.Activity{}, &models.Registration{}, &models.RegistrationAudit{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	sink := &captureSink{}
	return db, NewService(db, sink, zerolog.Nop()), sink
}

func activeMember(t *testing.T, db *gorm.DB, tier string) models.Member {
	t.Helper()
	m := models.Member{Name: "Test Member", Email: "m@example.com", Tier: tier, Status: models.MemberActive}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("failed to create member: %v", err)
	}
	return m
}

func TestCreate_FreeActivityRegistersImmediately(t *testing.T) {
	db, svc, _ := setup(t)
	member := activeMember(t, db, "Karyakarta")
	activity := models.Activity{Name: "Free Satsang", Type: models.ActivityEvent, Published: true}
	db.Create(&activity)

	reg, err := svc.Create(context.Background(), activity.ID, member.ID, "", nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if reg.Status != models.RegistrationRegistered {
		t.Errorf("expected status registered for free activity, got %s", reg.Status)
	}
	if reg.Fee != 0 {
		t.Errorf("expected fee 0, got %d", reg.Fee)
	}
	if reg.ConfirmedAt == nil {
		t.Error("expected confirmed_at set for free registration")
	}
}

func TestCreate_PricedActivityFreezesFee(t *testing.T) {
	db, svc, _ := setup(t)
	member := activeMember(t, db, "Regular")
	activity := models.Activity{
		Name:       "Yatra",
		Type:       models.ActivityTrip,
		Published:  true,
		PriceTable: map[string]int64{"Regular": 50000},
	}
	db.Create(&activity)

	reg, err := svc.Create(context.Background(), activity.ID, member.ID, "window seat please", nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if reg.Status != models.RegistrationPendingPayment {
		t.Errorf("expected pending_payment, got %s", reg.Status)
	}
	if reg.Fee != 50000 {
		t.Errorf("expected fee 50000, got %d", reg.Fee)
	}
	if reg.OrderRef == "" {
		t.Error("expected an order ref for the gateway")
	}

	// Repricing the activity must not touch the stored fee.
	activity.PriceTable = map[string]int64{"Regular": 99999}
	db.Save(&activity)

	var stored models.Registration
	db.First(&stored, reg.ID)
	if stored.Fee != 50000 {
		t.Errorf("fee was not frozen: got %d", stored.Fee)
	}
}

func TestCreate_IneligibleTier(t *testing.T) {
	db, svc, _ := setup(t)
	member := activeMember(t, db, "Extra")
	activity := models.Activity{
		Name:          "Trustee Retreat",
		Published:     true,
		EligibleTiers: []string{"Trustee"},
	}
	db.Create(&activity)

	_, err := svc.Create(context.Background(), activity.ID, member.ID, "", nil)
	var ineligible *core.IneligibleError
	if !errors.As(err, &ineligible) {
		t.Fatalf("expected IneligibleError, got %v", err)
	}

	var count int64
	db.Model(&models.Registration{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no registration rows, got %d", count)
	}
}

func TestCreate_CapacityEnforced(t *testing.T) {
	db, svc, _ := setup(t)
	capacity := 2
	activity := models.Activity{Name: "Small Hall", Published: true, Capacity: &capacity}
	db.Create(&activity)

	for i := 0; i < 2; i++ {
		m := activeMember(t, db, "Regular")
		if _, err := svc.Create(context.Background(), activity.ID, m.ID, "", nil); err != nil {
			t.Fatalf("registration %d failed: %v", i, err)
		}
	}

	m := activeMember(t, db, "Regular")
	_, err := svc.Create(context.Background(), activity.ID, m.ID, "", nil)
	var full *core.CapacityExceededError
	if !errors.As(err, &full) {
		t.Fatalf("expected CapacityExceededError, got %v", err)
	}
}

func TestCreate_CancelledSeatFreesCapacity(t *testing.T) {
	db, svc, _ := setup(t)
	capacity := 1
	activity := models.Activity{Name: "Single Seat", Published: true, Capacity: &capacity}
	db.Create(&activity)

	first := activeMember(t, db, "Regular")
	reg, err := svc.Create(context.Background(), activity.ID, first.ID, "", nil)
	if err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), reg.ID, "member:1"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	second := activeMember(t, db, "Regular")
	if _, err := svc.Create(context.Background(), activity.ID, second.ID, "", nil); err != nil {
		t.Fatalf("expected freed seat after cancel, got %v", err)
	}
}

func TestCreate_ValidatesCustomFields(t *testing.T) {
	db, svc, _ := setup(t)
	member := activeMember(t, db, "Regular")
	activity := models.Activity{
		Name:      "Camp",
		Published: true,
		FieldSchema: []models.CustomFieldDef{
			{Name: "emergency_contact", Kind: "string", Required: true},
			{Name: "children", Kind: "number"},
		},
	}
	db.Create(&activity)

	cases := []struct {
		name    string
		answers map[string]any
		wantErr bool
	}{
		{"missing required", map[string]any{"children": 2}, true},
		{"wrong type", map[string]any{"emergency_contact": "98x", "children": "two"}, true},
		{"unknown field", map[string]any{"emergency_contact": "98x", "tent": true}, true},
		{"valid", map[string]any{"emergency_contact": "9876501234", "children": float64(2)}, false},
	}
	for _, c := range cases {
		_, err := svc.Create(context.Background(), activity.ID, member.ID, "", c.answers)
		var verr *core.ValidationError
		if c.wantErr && !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", c.name, err)
		}
		if !c.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
		}
	}
}

func TestConfirmPayment_IsIdempotent(t *testing.T) {
	db, svc, sink := setup(t)
	member := activeMember(t, db, "Regular")
	activity := models.Activity{Name: "Yatra", Published: true, PriceTable: map[string]int64{"Regular": 50000}}
	db.Create(&activity)

	reg, err := svc.Create(context.Background(), activity.ID, member.ID, "", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		out, err := svc.ConfirmPayment(context.Background(), reg.ID, "pay_123")
		if err != nil {
			t.Fatalf("ConfirmPayment call %d returned error: %v", i, err)
		}
		if out.Status != models.RegistrationRegistered {
			t.Errorf("call %d: expected registered, got %s", i, out.Status)
		}
	}

	if got := sink.count("payment_confirmed"); got != 1 {
		t.Errorf("expected exactly 1 payment_confirmed notification, got %d", got)
	}

	var audits int64
	db.Model(&models.RegistrationAudit{}).Where("to_status = ?", models.RegistrationRegistered).Count(&audits)
	if audits != 1 {
		t.Errorf("expected 1 confirmation audit row, got %d", audits)
	}
}

func TestConfirmPayment_AfterCancelIsRejected(t *testing.T) {
	db, svc, _ := setup(t)
	member := activeMember(t, db, "Regular")
	activity := models.Activity{Name: "Yatra", Published: true, PriceTable: map[string]int64{"Regular": 50000}}
	db.Create(&activity)

	reg, _ := svc.Create(context.Background(), activity.ID, member.ID, "", nil)
	if _, err := svc.Cancel(context.Background(), reg.ID, "member:1"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	// A late gateway callback must not re-activate the registration.
	_, err := svc.ConfirmPayment(context.Background(), reg.ID, "pay_late")
	var invalid *core.InvalidStateTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}

	var stored models.Registration
	db.First(&stored, reg.ID)
	if stored.Status != models.RegistrationCancelled {
		t.Errorf("expected status to stay cancelled, got %s", stored.Status)
	}
}

func TestCancel_IsTerminalAndKeepsHistory(t *testing.T) {
	db, svc, sink := setup(t)
	member := activeMember(t, db, "Regular")
	activity := models.Activity{Name: "Satsang", Published: true}
	db.Create(&activity)

	reg, _ := svc.Create(context.Background(), activity.ID, member.ID, "", nil)

	if _, err := svc.Cancel(context.Background(), reg.ID, "staff:9"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	// Cancelling again is a no-op, not an error.
	if _, err := svc.Cancel(context.Background(), reg.ID, "staff:9"); err != nil {
		t.Fatalf("second Cancel returned error: %v", err)
	}
	if got := sink.count("registration_cancelled"); got != 1 {
		t.Errorf("expected 1 cancellation notification, got %d", got)
	}

	// The row is still there, just cancelled.
	var stored models.Registration
	if err := db.First(&stored, reg.ID).Error; err != nil {
		t.Fatalf("registration row is gone: %v", err)
	}
	if stored.Status != models.RegistrationCancelled {
		t.Errorf("expected cancelled, got %s", stored.Status)
	}
	if stored.CancelledBy != "staff:9" {
		t.Errorf("expected cancelled_by staff:9, got %q", stored.CancelledBy)
	}

	// A fresh registration for the same pair is allowed.
	if _, err := svc.Create(context.Background(), activity.ID, member.ID, "", nil); err != nil {
		t.Fatalf("re-registration after cancel failed: %v", err)
	}
}
