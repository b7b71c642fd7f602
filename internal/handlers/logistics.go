package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sevasangh/portal-api/internal/auth"
	"github.com/sevasangh/portal-api/internal/logistics"
	"github.com/sevasangh/portal-api/internal/models"
)

type LogisticsHandler struct {
	svc *logistics.Service
}

func NewLogisticsHandler(svc *logistics.Service) *LogisticsHandler {
	return &LogisticsHandler{svc: svc}
}

type UpsertAssignmentRequest struct {
	RegistrationID uint `path:"registrationID"`
	Body           struct {
		Stage         string     `json:"stage" doc:"Leg of the trip this assignment covers" required:"true"`
		Transport     string     `json:"transport,omitempty" doc:"train, bus, flight..."`
		CarrierRef    string     `json:"carrier_ref,omitempty" doc:"Train/flight/bus number"`
		DepartsAt     *time.Time `json:"departs_at,omitempty"`
		ArrivesAt     *time.Time `json:"arrives_at,omitempty"`
		Accommodation string     `json:"accommodation,omitempty"`
		RoomRef       string     `json:"room_ref,omitempty"`
		Notes         string     `json:"notes,omitempty"`
	}
}

type AssignmentResponse struct {
	Body models.LogisticsAssignment
}

func (h *LogisticsHandler) HandleUpsert(ctx context.Context, input *UpsertAssignmentRequest) (*AssignmentResponse, error) {
	assignment, err := h.svc.Upsert(ctx, input.RegistrationID, input.Body.Stage, logistics.Fields{
		Transport:     input.Body.Transport,
		CarrierRef:    input.Body.CarrierRef,
		DepartsAt:     input.Body.DepartsAt,
		ArrivesAt:     input.Body.ArrivesAt,
		Accommodation: input.Body.Accommodation,
		RoomRef:       input.Body.RoomRef,
		Notes:         input.Body.Notes,
	})
	if err != nil {
		return nil, httpError(err)
	}
	return &AssignmentResponse{Body: *assignment}, nil
}

type SetVisibilityRequest struct {
	ID   uint `path:"id"`
	Body struct {
		Visible bool `json:"visible" doc:"Open or close the member-facing gate"`
	}
}

func (h *LogisticsHandler) HandleSetVisibility(ctx context.Context, input *SetVisibilityRequest) (*AssignmentResponse, error) {
	assignment, err := h.svc.SetVisibility(ctx, input.ID, input.Body.Visible)
	if err != nil {
		return nil, httpError(err)
	}
	return &AssignmentResponse{Body: *assignment}, nil
}

type RegistrationAssignmentsRequest struct {
	RegistrationID uint `path:"registrationID"`
}

type AssignmentsResponse struct {
	Body struct {
		Assignments []models.LogisticsAssignment `json:"assignments"`
	}
}

// HandleForRegistration is the staff view: every assignment of one
// registration, hidden legs included.
func (h *LogisticsHandler) HandleForRegistration(ctx context.Context, input *RegistrationAssignmentsRequest) (*AssignmentsResponse, error) {
	assignments, err := h.svc.ForRegistration(ctx, input.RegistrationID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list assignments: " + err.Error())
	}
	res := &AssignmentsResponse{}
	res.Body.Assignments = assignments
	return res, nil
}

type MemberLogisticsRequest struct {
	ActivityID uint `path:"activityID"`
}

func (h *LogisticsHandler) HandleMemberView(ctx context.Context, input *MemberLogisticsRequest) (*AssignmentsResponse, error) {
	memberID, ok := auth.MemberID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	assignments, err := h.svc.MemberView(ctx, memberID, input.ActivityID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list assignments: " + err.Error())
	}
	res := &AssignmentsResponse{}
	res.Body.Assignments = assignments
	return res, nil
}
