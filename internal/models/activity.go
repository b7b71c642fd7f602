package models

import (
	"time"

	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityEvent ActivityType = "event"
	ActivityTrip  ActivityType = "trip"
)

// CustomFieldDef describes one per-activity registration question.
// Kind is one of "string", "number" or "bool".
type CustomFieldDef struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Required bool   `json:"required"`
}

type Activity struct {
	gorm.Model
	Name          string           `json:"name"`
	Type          ActivityType     `json:"type"`
	StartsAt      time.Time        `json:"starts_at"`
	EndsAt        time.Time        `json:"ends_at"`
	Capacity      *int             `json:"capacity,omitempty"` // nil = unlimited
	Published     bool             `json:"published"`
	EligibleTiers []string         `gorm:"serializer:json" json:"eligible_tiers"` // empty = open to all
	PriceTable    map[string]int64 `gorm:"serializer:json" json:"price_table"`   // tier -> fee in paise
	BasePrice     *int64           `json:"base_price,omitempty"`
	FieldSchema   []CustomFieldDef `gorm:"serializer:json" json:"field_schema"`
}
