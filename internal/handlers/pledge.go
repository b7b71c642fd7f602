package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/auth"
	"github.com/sevasangh/portal-api/internal/models"
	"github.com/sevasangh/portal-api/internal/pledge"
)

type PledgeHandler struct {
	db      *gorm.DB
	pledges *pledge.Service
}

func NewPledgeHandler(db *gorm.DB, pledges *pledge.Service) *PledgeHandler {
	return &PledgeHandler{db: db, pledges: pledges}
}

type CreatePledgeRequest struct {
	Body struct {
		Purpose   string `json:"purpose" doc:"Pledge purpose" required:"true"`
		Amount    int64  `json:"amount" doc:"Amount in paise per period" required:"true"`
		Frequency string `json:"frequency" doc:"monthly, quarterly or yearly" enum:"monthly,quarterly,yearly" required:"true"`
	}
}

type PledgeResponse struct {
	Body models.RecurringPledge
}

func (h *PledgeHandler) HandleCreate(ctx context.Context, input *CreatePledgeRequest) (*PledgeResponse, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	p, err := h.pledges.Create(ctx, memberID, input.Body.Purpose, input.Body.Amount, models.PledgeFrequency(input.Body.Frequency))
	if err != nil {
		return nil, httpError(err)
	}
	return &PledgeResponse{Body: *p}, nil
}

type PledgeActionRequest struct {
	ID     uint   `path:"id"`
	Action string `path:"action" enum:"pause,resume,cancel"`
}

func (h *PledgeHandler) HandleAction(ctx context.Context, input *PledgeActionRequest) (*PledgeResponse, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	var stored models.RecurringPledge
	if err := h.db.WithContext(ctx).First(&stored, input.ID).Error; err != nil {
		return nil, huma.Error404NotFound("Pledge not found")
	}
	if stored.MemberID != memberID {
		return nil, huma.Error403Forbidden("Not your pledge")
	}

	var (
		p   *models.RecurringPledge
		err error
	)
	switch input.Action {
	case "pause":
		p, err = h.pledges.Pause(ctx, input.ID)
	case "resume":
		p, err = h.pledges.Resume(ctx, input.ID)
	case "cancel":
		p, err = h.pledges.Cancel(ctx, input.ID)
	default:
		return nil, huma.Error400BadRequest("unknown action " + input.Action)
	}
	if err != nil {
		return nil, httpError(err)
	}
	return &PledgeResponse{Body: *p}, nil
}

type MyPledgesRequest struct{}

type MyPledgesResponse struct {
	Body struct {
		Pledges []models.RecurringPledge `json:"pledges"`
	}
}

func (h *PledgeHandler) HandleMyPledges(ctx context.Context, _ *MyPledgesRequest) (*MyPledgesResponse, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	pledges, err := h.pledges.ForMember(ctx, memberID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list pledges: " + err.Error())
	}
	res := &MyPledgesResponse{}
	res.Body.Pledges = pledges
	return res, nil
}
