package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/models"
)

type ActivityHandler struct {
	db *gorm.DB
}

func NewActivityHandler(db *gorm.DB) *ActivityHandler {
	return &ActivityHandler{db: db}
}

type CreateActivityRequest struct {
	Body struct {
		Name          string                  `json:"name" doc:"Activity name" required:"true"`
		Type          string                  `json:"type" doc:"event or trip" enum:"event,trip" required:"true"`
		StartsAt      time.Time               `json:"starts_at" doc:"Schedule window start"`
		EndsAt        time.Time               `json:"ends_at" doc:"Schedule window end"`
		Capacity      *int                    `json:"capacity,omitempty" doc:"Maximum seats; omit for unlimited"`
		Published     bool                    `json:"published" doc:"Whether members can see and register"`
		EligibleTiers []string                `json:"eligible_tiers,omitempty" doc:"Allowed membership tiers; empty means open to all"`
		PriceTable    map[string]int64        `json:"price_table,omitempty" doc:"Fee per tier in paise"`
		BasePrice     *int64                  `json:"base_price,omitempty" doc:"Fallback fee in paise"`
		FieldSchema   []models.CustomFieldDef `json:"field_schema,omitempty" doc:"Custom registration questions"`
	}
}

type ActivityResponse struct {
	Body models.Activity
}

func (h *ActivityHandler) HandleCreate(ctx context.Context, input *CreateActivityRequest) (*ActivityResponse, error) {
	if input.Body.EndsAt.Before(input.Body.StartsAt) {
		return nil, huma.Error400BadRequest("activity cannot end before it starts")
	}

	activity := models.Activity{
		Name:          input.Body.Name,
		Type:          models.ActivityType(input.Body.Type),
		StartsAt:      input.Body.StartsAt,
		EndsAt:        input.Body.EndsAt,
		Capacity:      input.Body.Capacity,
		Published:     input.Body.Published,
		EligibleTiers: input.Body.EligibleTiers,
		PriceTable:    input.Body.PriceTable,
		BasePrice:     input.Body.BasePrice,
		FieldSchema:   input.Body.FieldSchema,
	}
	if err := h.db.WithContext(ctx).Create(&activity).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create activity: " + err.Error())
	}
	return &ActivityResponse{Body: activity}, nil
}

type UpdateActivityRequest struct {
	ID   uint `path:"id"`
	Body struct {
		Capacity   *int             `json:"capacity,omitempty" doc:"New capacity"`
		Published  *bool            `json:"published,omitempty" doc:"Publish or unpublish"`
		PriceTable map[string]int64 `json:"price_table,omitempty" doc:"Replacement price table; settled registrations keep their frozen fee"`
		BasePrice  *int64           `json:"base_price,omitempty" doc:"New fallback fee"`
	}
}

// HandleUpdate allows the edits that stay legal once registrations
// exist: capacity, publishing and price changes. Existing
// registrations keep their frozen fee.
func (h *ActivityHandler) HandleUpdate(ctx context.Context, input *UpdateActivityRequest) (*ActivityResponse, error) {
	var activity models.Activity
	if err := h.db.WithContext(ctx).First(&activity, input.ID).Error; err != nil {
		return nil, huma.Error404NotFound("Activity not found")
	}

	if input.Body.Capacity != nil {
		activity.Capacity = input.Body.Capacity
	}
	if input.Body.Published != nil {
		activity.Published = *input.Body.Published
	}
	if input.Body.PriceTable != nil {
		activity.PriceTable = input.Body.PriceTable
	}
	if input.Body.BasePrice != nil {
		activity.BasePrice = input.Body.BasePrice
	}
	if err := h.db.WithContext(ctx).Save(&activity).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to update activity: " + err.Error())
	}
	return &ActivityResponse{Body: activity}, nil
}

type ListActivitiesRequest struct {
	All bool `query:"all" doc:"Include unpublished activities (staff listing)"`
}

type ListActivitiesResponse struct {
	Body struct {
		Activities []models.Activity `json:"activities"`
	}
}

func (h *ActivityHandler) HandleList(ctx context.Context, input *ListActivitiesRequest) (*ListActivitiesResponse, error) {
	q := h.db.WithContext(ctx).Order("starts_at asc")
	if !input.All {
		q = q.Where("published = ?", true)
	}
	var activities []models.Activity
	if err := q.Find(&activities).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list activities: " + err.Error())
	}
	res := &ListActivitiesResponse{}
	res.Body.Activities = activities
	return res, nil
}
