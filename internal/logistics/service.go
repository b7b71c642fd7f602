// Package logistics stores staff-entered travel and accommodation
// details per trip registration and gates when members may see them.
// The member read path enforces the visibility rule inside the query
// itself instead of trusting call sites.
package logistics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/core"
	"github.com/sevasangh/portal-api/internal/models"
	"github.com/sevasangh/portal-api/internal/notifier"
)

type Service struct {
	db   *gorm.DB
	sink notifier.Notifier
	log  zerolog.Logger
}

func NewService(db *gorm.DB, sink notifier.Notifier, log zerolog.Logger) *Service {
	if sink == nil {
		sink = notifier.Noop{}
	}
	return &Service{db: db, sink: sink, log: log}
}

// Fields is the staff-editable part of an assignment.
type Fields struct {
	Transport     string
	CarrierRef    string
	DepartsAt     *time.Time
	ArrivesAt     *time.Time
	Accommodation string
	RoomRef       string
	Notes         string
}

// Upsert creates or updates the assignment for one (registration,
// stage) leg. The registration must be confirmed: details cannot be
// attached to a never-paid or cancelled registration. New assignments
// start hidden.
func (s *Service) Upsert(ctx context.Context, registrationID uint, stage string, fields Fields) (*models.LogisticsAssignment, error) {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return nil, &core.ValidationError{Msg: "stage name must not be empty"}
	}

	var assignment models.LogisticsAssignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg models.Registration
		if err := tx.First(&reg, registrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &core.NotFoundError{Entity: "registration", Ref: fmt.Sprint(registrationID)}
			}
			return err
		}
		if reg.Status != models.RegistrationRegistered {
			return &core.InvalidStateTransitionError{
				Entity:    "registration",
				Current:   string(reg.Status),
				Requested: "assign_logistics",
			}
		}

		if err := tx.Where("registration_id = ? AND stage = ?", registrationID, stage).
			FirstOrInit(&assignment, models.LogisticsAssignment{RegistrationID: registrationID, Stage: stage}).Error; err != nil {
			return err
		}
		assignment.Transport = fields.Transport
		assignment.CarrierRef = fields.CarrierRef
		assignment.DepartsAt = fields.DepartsAt
		assignment.ArrivesAt = fields.ArrivesAt
		assignment.Accommodation = fields.Accommodation
		assignment.RoomRef = fields.RoomRef
		assignment.Notes = fields.Notes
		return tx.Save(&assignment).Error
	})
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// SetVisibility toggles the member-facing gate. Making an assignment
// visible stamps when that happened and tells the member.
func (s *Service) SetVisibility(ctx context.Context, assignmentID uint, visible bool) (*models.LogisticsAssignment, error) {
	var assignment models.LogisticsAssignment
	revealed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Registration").First(&assignment, assignmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &core.NotFoundError{Entity: "logistics assignment", Ref: fmt.Sprint(assignmentID)}
			}
			return err
		}
		if assignment.IsVisible == visible {
			return nil
		}
		assignment.IsVisible = visible
		if visible {
			now := time.Now()
			assignment.MadeVisibleAt = &now
			revealed = true
		}
		return tx.Save(&assignment).Error
	})
	if err != nil {
		return nil, err
	}

	if revealed {
		if err := s.sink.Notify(notifier.Message{
			Recipient: fmt.Sprint(assignment.Registration.MemberID),
			Kind:      "logistics_published",
			Title:     "Travel details published",
			Body:      fmt.Sprintf("Travel details for stage %q are now available.", assignment.Stage),
		}); err != nil {
			s.log.Warn().Err(err).Msg("notification dropped")
		}
	}
	return &assignment, nil
}

// MemberView is the only read path members use. It returns the
// member's assignments for one activity where the gate is open and
// the owning registration is still confirmed, both checked in the
// query.
func (s *Service) MemberView(ctx context.Context, memberID, activityID uint) ([]models.LogisticsAssignment, error) {
	var assignments []models.LogisticsAssignment
	err := s.db.WithContext(ctx).
		Joins("JOIN registrations ON registrations.id = logistics_assignments.registration_id").
		Where("registrations.member_id = ? AND registrations.activity_id = ?", memberID, activityID).
		Where("registrations.status = ?", models.RegistrationRegistered).
		Where("logistics_assignments.is_visible = ?", true).
		Order("logistics_assignments.stage asc").
		Find(&assignments).Error
	return assignments, err
}

// ForRegistration lists every assignment of one registration for
// staff, hidden ones included.
func (s *Service) ForRegistration(ctx context.Context, registrationID uint) ([]models.LogisticsAssignment, error) {
	var assignments []models.LogisticsAssignment
	err := s.db.WithContext(ctx).Where("registration_id = ?", registrationID).
		Order("stage asc").Find(&assignments).Error
	return assignments, err
}
