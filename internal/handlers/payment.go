package handlers

import (
	"context"

	"github.com/sevasangh/portal-api/internal/payment"
)

type PaymentHandler struct {
	gateway *payment.Gateway
}

func NewPaymentHandler(gateway *payment.Gateway) *PaymentHandler {
	return &PaymentHandler{gateway: gateway}
}

type GatewayCallbackRequest struct {
	Body struct {
		OrderRef         string `json:"order_ref" doc:"Merchant order id" required:"true"`
		GatewayOrderID   string `json:"gateway_order_id" doc:"Gateway-side order id"`
		GatewayPaymentID string `json:"gateway_payment_id" doc:"Gateway payment id" required:"true"`
		Signature        string `json:"signature" doc:"HMAC signature over order and payment id" required:"true"`
		Amount           int64  `json:"amount" doc:"Captured amount in paise" required:"true"`
	}
}

type GatewayCallbackResponse struct {
	Body struct {
		Status string `json:"status"`
	}
}

// HandleGatewayCallback is the webhook the payment gateway calls,
// possibly more than once per payment. Replays of an already-applied
// confirmation answer success without side effects.
func (h *PaymentHandler) HandleGatewayCallback(ctx context.Context, input *GatewayCallbackRequest) (*GatewayCallbackResponse, error) {
	cb := payment.Callback{
		OrderRef:         input.Body.OrderRef,
		GatewayOrderID:   input.Body.GatewayOrderID,
		GatewayPaymentID: input.Body.GatewayPaymentID,
		Signature:        input.Body.Signature,
		Amount:           input.Body.Amount,
	}
	if err := h.gateway.Reconcile(ctx, cb); err != nil {
		return nil, httpError(err)
	}
	res := &GatewayCallbackResponse{}
	res.Body.Status = "ok"
	return res, nil
}
