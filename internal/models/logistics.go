package models

import (
	"time"

	"gorm.io/gorm"
)

// LogisticsAssignment holds staff-entered travel details for one leg
// of a trip. Members see it only once staff flip IsVisible and the
// owning registration is confirmed.
type LogisticsAssignment struct {
	gorm.Model
	RegistrationID uint         `gorm:"uniqueIndex:idx_registration_stage" json:"registration_id"`
	Registration   Registration `gorm:"foreignKey:RegistrationID" json:"-"`
	Stage          string       `gorm:"uniqueIndex:idx_registration_stage" json:"stage"`

	Transport     string     `json:"transport"`
	CarrierRef    string     `json:"carrier_ref"` // train/flight/bus number
	DepartsAt     *time.Time `json:"departs_at,omitempty"`
	ArrivesAt     *time.Time `json:"arrives_at,omitempty"`
	Accommodation string     `json:"accommodation"`
	RoomRef       string     `json:"room_ref"`
	Notes         string     `json:"notes"`

	IsVisible     bool       `json:"is_visible"`
	MadeVisibleAt *time.Time `json:"made_visible_at,omitempty"`
}
