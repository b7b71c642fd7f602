package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/auth"
	"github.com/sevasangh/portal-api/internal/models"
	"github.com/sevasangh/portal-api/internal/payment"
	"github.com/sevasangh/portal-api/internal/registration"
)

type RegistrationHandler struct {
	db      *gorm.DB
	regs    *registration.Service
	gateway *payment.Gateway
}

func NewRegistrationHandler(db *gorm.DB, regs *registration.Service, gateway *payment.Gateway) *RegistrationHandler {
	return &RegistrationHandler{db: db, regs: regs, gateway: gateway}
}

type QuoteRequest struct {
	ActivityID uint `path:"activityID"`
}

type QuoteResponse struct {
	Body struct {
		Eligible bool   `json:"eligible"`
		Reason   string `json:"reason,omitempty"`
		Fee      int64  `json:"fee" doc:"Fee in paise"`
	}
}

func (h *RegistrationHandler) HandleQuote(ctx context.Context, input *QuoteRequest) (*QuoteResponse, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	quote, err := h.regs.Quote(ctx, input.ActivityID, memberID)
	if err != nil {
		return nil, httpError(err)
	}
	res := &QuoteResponse{}
	res.Body.Eligible = quote.Eligible
	res.Body.Reason = quote.Reason
	res.Body.Fee = quote.Fee
	return res, nil
}

type RegisterRequest struct {
	Body struct {
		ActivityID uint           `json:"activity_id" doc:"Activity to register for" required:"true"`
		Comments   string         `json:"comments,omitempty" doc:"Free-text comments for the organizers"`
		Answers    map[string]any `json:"answers,omitempty" doc:"Answers to the activity's custom fields"`
	}
}

type RegisterResponse struct {
	Body struct {
		Registration models.Registration `json:"registration"`
		// Checkout is present when a payment is due.
		Checkout *payment.Checkout `json:"checkout,omitempty"`
	}
}

func (h *RegistrationHandler) HandleRegister(ctx context.Context, input *RegisterRequest) (*RegisterResponse, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	reg, err := h.regs.Create(ctx, input.Body.ActivityID, memberID, input.Body.Comments, input.Body.Answers)
	if err != nil {
		return nil, httpError(err)
	}

	res := &RegisterResponse{}
	res.Body.Registration = *reg
	if reg.Status == models.RegistrationPendingPayment {
		var member models.Member
		if err := h.db.WithContext(ctx).First(&member, memberID).Error; err == nil {
			reg.Member = member
		}
		var activity models.Activity
		h.db.WithContext(ctx).First(&activity, reg.ActivityID)
		checkout, err := h.gateway.InitiateRegistration(ctx, reg, fmt.Sprintf("Registration: %s", activity.Name))
		if err != nil {
			return nil, httpError(err)
		}
		res.Body.Checkout = checkout
	}
	return res, nil
}

type MyRegistrationsRequest struct{}

type MyRegistrationsResponse struct {
	Body struct {
		Registrations []models.Registration `json:"registrations"`
	}
}

func (h *RegistrationHandler) HandleMyRegistrations(ctx context.Context, _ *MyRegistrationsRequest) (*MyRegistrationsResponse, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	regs, err := h.regs.ForMember(ctx, memberID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list registrations: " + err.Error())
	}
	res := &MyRegistrationsResponse{}
	res.Body.Registrations = regs
	return res, nil
}

type CancelRegistrationRequest struct {
	ID uint `path:"id"`
}

type CancelRegistrationResponse struct {
	Body struct {
		Registration models.Registration `json:"registration"`
	}
}

func (h *RegistrationHandler) HandleCancel(ctx context.Context, input *CancelRegistrationRequest) (*CancelRegistrationResponse, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	var reg models.Registration
	if err := h.db.WithContext(ctx).First(&reg, input.ID).Error; err != nil {
		return nil, huma.Error404NotFound("Registration not found")
	}
	if reg.MemberID != memberID {
		return nil, huma.Error403Forbidden("Not your registration")
	}

	out, err := h.regs.Cancel(ctx, input.ID, fmt.Sprintf("member:%d", memberID))
	if err != nil {
		return nil, httpError(err)
	}
	res := &CancelRegistrationResponse{}
	res.Body.Registration = *out
	return res, nil
}

type ActivityRegistrationsRequest struct {
	ActivityID uint `path:"activityID"`
}

type ActivityRegistrationsResponse struct {
	Body struct {
		Registrations []models.Registration `json:"registrations"`
	}
}

// HandleActivityRegistrations is the staff read model behind the
// registration list screen.
func (h *RegistrationHandler) HandleActivityRegistrations(ctx context.Context, input *ActivityRegistrationsRequest) (*ActivityRegistrationsResponse, error) {
	regs, err := h.regs.ForActivity(ctx, input.ActivityID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list registrations: " + err.Error())
	}
	res := &ActivityRegistrationsResponse{}
	res.Body.Registrations = regs
	return res, nil
}
