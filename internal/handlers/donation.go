package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/auth"
	"github.com/sevasangh/portal-api/internal/donation"
	"github.com/sevasangh/portal-api/internal/models"
	"github.com/sevasangh/portal-api/internal/payment"
)

type DonationHandler struct {
	db        *gorm.DB
	donations *donation.Service
	gateway   *payment.Gateway
}

func NewDonationHandler(db *gorm.DB, donations *donation.Service, gateway *payment.Gateway) *DonationHandler {
	return &DonationHandler{db: db, donations: donations, gateway: gateway}
}

type DeclareDonationRequest struct {
	Body struct {
		Purpose       string `json:"purpose" doc:"Donation purpose" required:"true"`
		Amount        int64  `json:"amount" doc:"Amount in paise" required:"true"`
		TxnRef        string `json:"txn_ref" doc:"Bank/UPI transaction reference" required:"true"`
		ScreenshotRef string `json:"screenshot_ref,omitempty" doc:"Reference to an uploaded payment proof"`
	}
}

type DonationResponse struct {
	Body models.Donation
}

func (h *DonationHandler) HandleDeclare(ctx context.Context, input *DeclareDonationRequest) (*DonationResponse, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	don, err := h.donations.Declare(ctx, memberID, input.Body.Purpose, input.Body.Amount, input.Body.TxnRef, input.Body.ScreenshotRef)
	if err != nil {
		return nil, httpError(err)
	}
	return &DonationResponse{Body: *don}, nil
}

type GatewayDonationRequest struct {
	Body struct {
		Purpose string `json:"purpose" doc:"Donation purpose" required:"true"`
		Amount  int64  `json:"amount" doc:"Amount in paise" required:"true"`
	}
}

type GatewayDonationResponse struct {
	Body struct {
		Donation models.Donation  `json:"donation"`
		Checkout payment.Checkout `json:"checkout"`
	}
}

func (h *DonationHandler) HandleGatewayDonation(ctx context.Context, input *GatewayDonationRequest) (*GatewayDonationResponse, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	don, err := h.donations.InitiateGateway(ctx, memberID, input.Body.Purpose, input.Body.Amount)
	if err != nil {
		return nil, httpError(err)
	}

	var member models.Member
	if err := h.db.WithContext(ctx).First(&member, memberID).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to load member: " + err.Error())
	}
	checkout, err := h.gateway.InitiateDonation(ctx, don, member)
	if err != nil {
		return nil, httpError(err)
	}

	res := &GatewayDonationResponse{}
	res.Body.Donation = *don
	res.Body.Checkout = *checkout
	return res, nil
}

type MyDonationsRequest struct{}

type MyDonationsResponse struct {
	Body struct {
		Donations []models.Donation `json:"donations"`
	}
}

func (h *DonationHandler) HandleMyDonations(ctx context.Context, _ *MyDonationsRequest) (*MyDonationsResponse, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	dons, err := h.donations.ForMember(ctx, memberID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list donations: " + err.Error())
	}
	res := &MyDonationsResponse{}
	res.Body.Donations = dons
	return res, nil
}

type VerifyDonationRequest struct {
	ID   uint `path:"id"`
	Body struct {
		ReceiptNo           string `json:"receipt_no,omitempty" doc:"Receipt number; generated sequentially when omitted"`
		GenerateCertificate bool   `json:"generate_certificate" doc:"Also issue a tax certificate reference"`
	}
}

func (h *DonationHandler) HandleVerify(ctx context.Context, input *VerifyDonationRequest) (*DonationResponse, error) {
	staffID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	don, err := h.donations.Verify(ctx, input.ID, staffID, input.Body.ReceiptNo, input.Body.GenerateCertificate)
	if err != nil {
		return nil, httpError(err)
	}
	return &DonationResponse{Body: *don}, nil
}

type RejectDonationRequest struct {
	ID   uint `path:"id"`
	Body struct {
		Reason string `json:"reason" doc:"Why the donation could not be verified" required:"true"`
	}
}

func (h *DonationHandler) HandleReject(ctx context.Context, input *RejectDonationRequest) (*DonationResponse, error) {
	staffID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	don, err := h.donations.Reject(ctx, input.ID, staffID, input.Body.Reason)
	if err != nil {
		return nil, httpError(err)
	}
	return &DonationResponse{Body: *don}, nil
}

type DonationLedgerRequest struct{}

type DonationLedgerResponse struct {
	Body struct {
		Donations []models.Donation `json:"donations"`
	}
}

func (h *DonationHandler) HandleLedger(ctx context.Context, _ *DonationLedgerRequest) (*DonationLedgerResponse, error) {
	dons, err := h.donations.Ledger(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list donations: " + err.Error())
	}
	res := &DonationLedgerResponse{}
	res.Body.Donations = dons
	return res, nil
}
