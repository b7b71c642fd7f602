// Package payment adapts the external checkout gateway: it produces
// the parameters the client-side payment widget needs and reconciles
// the asynchronous, at-least-once callback against pending records.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sevasangh/portal-api/internal/core"
	"github.com/sevasangh/portal-api/internal/donation"
	"github.com/sevasangh/portal-api/internal/models"
	"github.com/sevasangh/portal-api/internal/notifier"
	"github.com/sevasangh/portal-api/internal/registration"
)

type Config struct {
	KeyID        string
	Secret       string
	MerchantName string
	ThemeColor   string
}

type Gateway struct {
	cfg       Config
	regs      *registration.Service
	donations *donation.Service
	sink      notifier.Notifier
	log       zerolog.Logger
}

func NewGateway(cfg Config, regs *registration.Service, donations *donation.Service, sink notifier.Notifier, log zerolog.Logger) *Gateway {
	if sink == nil {
		sink = notifier.Noop{}
	}
	return &Gateway{cfg: cfg, regs: regs, donations: donations, sink: sink, log: log}
}

// Checkout carries everything the client-side widget needs to open
// the gateway's payment sheet. Amount is in paise.
type Checkout struct {
	Key          string  `json:"key"`
	Amount       int64   `json:"amount"`
	Currency     string  `json:"currency"`
	OrderID      string  `json:"order_id"`
	MerchantName string  `json:"merchant_name"`
	Description  string  `json:"description"`
	Prefill      Prefill `json:"prefill"`
	ThemeColor   string  `json:"theme_color"`
}

type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Callback is the gateway's signed confirmation payload.
type Callback struct {
	OrderRef         string `json:"order_ref"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
	Amount           int64  `json:"amount"`
}

// InitiateRegistration builds checkout parameters for a pending
// registration. The order id handed to the widget is the
// registration's order ref, which the callback echoes back.
func (g *Gateway) InitiateRegistration(ctx context.Context, reg *models.Registration, description string) (*Checkout, error) {
	if reg.Status != models.RegistrationPendingPayment {
		return nil, &core.InvalidStateTransitionError{
			Entity:    "registration",
			Current:   string(reg.Status),
			Requested: "initiate_payment",
		}
	}
	return g.checkout(reg.OrderRef, reg.Fee, description, reg.Member), nil
}

// InitiateDonation builds checkout parameters for a gateway donation.
func (g *Gateway) InitiateDonation(ctx context.Context, don *models.Donation, member models.Member) (*Checkout, error) {
	if don.Status != models.DonationPending || don.OrderRef == "" {
		return nil, &core.InvalidStateTransitionError{
			Entity:    "donation",
			Current:   string(don.Status),
			Requested: "initiate_payment",
		}
	}
	return g.checkout(don.OrderRef, don.Amount, "Donation: "+don.Purpose, member), nil
}

func (g *Gateway) checkout(orderRef string, amount int64, description string, member models.Member) *Checkout {
	return &Checkout{
		Key:          g.cfg.KeyID,
		Amount:       amount,
		Currency:     "INR",
		OrderID:      orderRef,
		MerchantName: g.cfg.MerchantName,
		Description:  description,
		Prefill:      Prefill{Name: member.Name, Email: member.Email, Phone: member.Phone},
		ThemeColor:   g.cfg.ThemeColor,
	}
}

// Reconcile validates a callback and applies it: signature first,
// then record lookup by order ref, then an amount check against the
// frozen fee, then the idempotent confirm. Integrity failures are
// logged at error level and surfaced to staff; the record is left
// pending for manual resolution, never auto-corrected.
func (g *Gateway) Reconcile(ctx context.Context, cb Callback) error {
	if !VerifySignature(g.cfg.Secret, cb.OrderRef, cb.GatewayPaymentID, cb.Signature) {
		err := &core.SignatureInvalidError{OrderRef: cb.OrderRef}
		g.integrityAlert(err, cb)
		return err
	}

	if reg, err := g.regs.ByOrderRef(ctx, cb.OrderRef); err == nil {
		if cb.Amount != reg.Fee {
			err := &core.AmountMismatchError{OrderRef: cb.OrderRef, Expected: reg.Fee, Got: cb.Amount}
			g.integrityAlert(err, cb)
			return err
		}
		_, err := g.regs.ConfirmPayment(ctx, reg.ID, cb.GatewayPaymentID)
		return err
	} else {
		var notFound *core.NotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	don, err := g.donations.ByOrderRef(ctx, cb.OrderRef)
	if err != nil {
		return err
	}
	if cb.Amount != don.Amount {
		err := &core.AmountMismatchError{OrderRef: cb.OrderRef, Expected: don.Amount, Got: cb.Amount}
		g.integrityAlert(err, cb)
		return err
	}
	_, err = g.donations.RecordGatewayPayment(ctx, don.ID, cb.GatewayPaymentID)
	return err
}

func (g *Gateway) integrityAlert(cause error, cb Callback) {
	g.log.Error().Err(cause).
		Str("order_ref", cb.OrderRef).
		Str("gateway_payment_id", cb.GatewayPaymentID).
		Int64("amount", cb.Amount).
		Msg("payment integrity failure")

	if err := g.sink.Notify(notifier.Message{
		Recipient: notifier.RoleStaff,
		Kind:      "payment_integrity_failure",
		Title:     "Payment integrity failure",
		Body:      cause.Error(),
		Metadata: map[string]string{
			"order_ref":  cb.OrderRef,
			"payment_id": cb.GatewayPaymentID,
			"amount":     fmt.Sprint(cb.Amount),
		},
	}); err != nil {
		g.log.Warn().Err(err).Msg("staff alert dropped")
	}
}
