// Package registration owns the lifecycle of one registration record:
// creation with a frozen fee, payment confirmation, cancellation.
// Every status write goes through this service and leaves an audit row.
package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/core"
	"github.com/sevasangh/portal-api/internal/models"
	"github.com/sevasangh/portal-api/internal/notifier"
	"github.com/sevasangh/portal-api/internal/pricing"
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

// Quote resolves eligibility and fee without creating anything.
func (s *Service) Quote(ctx context.Context, activityID, memberID uint) (pricing.Quote, error) {
	activity, member, err := s.load(ctx, activityID, memberID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return pricing.Resolve(activity, member), nil
}

// Create registers a member for an activity. The fee is resolved and
// frozen here; free activities go straight to registered, priced ones
// wait in pending_payment for the gateway callback. The capacity
// check and the insert run in one transaction so two concurrent
// registrations cannot jointly overshoot the capacity.
func (s *Service) Create(ctx context.Context, activityID, memberID uint, comments string, answers map[string]any) (*models.Registration, error) {
	activity, member, err := s.load(ctx, activityID, memberID)
	if err != nil {
		return nil, err
	}
	if member.Status != models.MemberActive {
		return nil, &core.ValidationError{Msg: fmt.Sprintf("member is %s, only active members may register", member.Status)}
	}
	if !activity.Published {
		return nil, &core.NotFoundError{Entity: "activity", Ref: fmt.Sprint(activityID)}
	}

	quote := pricing.Resolve(activity, member)
	if !quote.Eligible {
		return nil, &core.IneligibleError{Tier: member.Tier, AllowedTiers: activity.EligibleTiers}
	}

	if err := validateAnswers(activity.FieldSchema, answers); err != nil {
		return nil, err
	}

	reg := models.Registration{
		MemberID:   memberID,
		ActivityID: activityID,
		Fee:        quote.Fee,
		Comments:   comments,
		Answers:    answers,
		OrderRef:   uuid.NewString(),
		Status:     models.RegistrationPendingPayment,
	}
	if quote.Fee == 0 {
		reg.Status = models.RegistrationRegistered
		now := time.Now()
		reg.ConfirmedAt = &now
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if activity.Capacity != nil {
			var occupied int64
			if err := tx.Model(&models.Registration{}).
				Where("activity_id = ? AND status IN ?", activityID,
					[]models.RegistrationStatus{models.RegistrationPendingPayment, models.RegistrationRegistered}).
				Count(&occupied).Error; err != nil {
				return err
			}
			if occupied >= int64(*activity.Capacity) {
				return &core.CapacityExceededError{ActivityID: activityID, Capacity: *activity.Capacity}
			}
		}
		if err := tx.Create(&reg).Error; err != nil {
			return err
		}
		return tx.Create(&models.RegistrationAudit{
			RegistrationID: reg.ID,
			ToStatus:       reg.Status,
			Actor:          fmt.Sprintf("member:%d", memberID),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.notify(notifier.Message{
		Recipient: notifier.RoleStaff,
		Kind:      "registration_created",
		Title:     "New registration",
		Body:      fmt.Sprintf("%s registered for %s", member.Name, activity.Name),
		Metadata: map[string]string{
			"fee":    fmt.Sprint(reg.Fee),
			"status": string(reg.Status),
		},
	})
	return &reg, nil
}

// ConfirmPayment moves a registration from pending_payment to
// registered. A duplicate confirmation for an already-registered
// registration is a no-op: the gateway retries its callback and the
// first success must win exactly once.
func (s *Service) ConfirmPayment(ctx context.Context, registrationID uint, paymentRef string) (*models.Registration, error) {
	var reg models.Registration
	confirmed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Member").Preload("Activity").First(&reg, registrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &core.NotFoundError{Entity: "registration", Ref: fmt.Sprint(registrationID)}
			}
			return err
		}
		switch reg.Status {
		case models.RegistrationRegistered:
			return nil // replayed callback
		case models.RegistrationPendingPayment:
		default:
			return &core.InvalidStateTransitionError{
				Entity:    "registration",
				Current:   string(reg.Status),
				Requested: string(models.RegistrationRegistered),
			}
		}

		now := time.Now()
		reg.Status = models.RegistrationRegistered
		reg.PaymentRef = paymentRef
		reg.ConfirmedAt = &now
		if err := tx.Save(&reg).Error; err != nil {
			return err
		}
		confirmed = true
		return tx.Create(&models.RegistrationAudit{
			RegistrationID: reg.ID,
			FromStatus:     models.RegistrationPendingPayment,
			ToStatus:       models.RegistrationRegistered,
			Actor:          "gateway",
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if confirmed {
		s.notify(notifier.Message{
			Recipient: fmt.Sprint(reg.MemberID),
			Kind:      "payment_confirmed",
			Title:     "Payment confirmed",
			Body:      fmt.Sprintf("Your registration for %s is confirmed.", reg.Activity.Name),
			Metadata:  map[string]string{"payment_ref": paymentRef},
		})
	}
	return &reg, nil
}

// Cancel moves a registration to cancelled. Cancelled is terminal;
// cancelling again is a no-op. The record stays in place as audit
// history and a fresh registration may always be created.
func (s *Service) Cancel(ctx context.Context, registrationID uint, actor string) (*models.Registration, error) {
	var reg models.Registration
	cancelled := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Member").Preload("Activity").First(&reg, registrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &core.NotFoundError{Entity: "registration", Ref: fmt.Sprint(registrationID)}
			}
			return err
		}
		if reg.Status == models.RegistrationCancelled {
			return nil
		}

		from := reg.Status
		reg.Status = models.RegistrationCancelled
		reg.CancelledBy = actor
		if err := tx.Save(&reg).Error; err != nil {
			return err
		}
		cancelled = true
		return tx.Create(&models.RegistrationAudit{
			RegistrationID: reg.ID,
			FromStatus:     from,
			ToStatus:       models.RegistrationCancelled,
			Actor:          actor,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if cancelled {
		s.notify(notifier.Message{
			Recipient: notifier.RoleStaff,
			Kind:      "registration_cancelled",
			Title:     "Registration cancelled",
			Body:      fmt.Sprintf("%s's registration for %s was cancelled by %s", reg.Member.Name, reg.Activity.Name, actor),
		})
	}
	return &reg, nil
}

// ByOrderRef looks a registration up by the order id the gateway
// echoes back in its callback.
func (s *Service) ByOrderRef(ctx context.Context, orderRef string) (*models.Registration, error) {
	var reg models.Registration
	err := s.db.WithContext(ctx).Preload("Member").Where("order_ref = ?", orderRef).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &core.NotFoundError{Entity: "registration", Ref: orderRef}
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ForMember lists a member's registrations, newest first.
func (s *Service) ForMember(ctx context.Context, memberID uint) ([]models.Registration, error) {
	var regs []models.Registration
	err := s.db.WithContext(ctx).Preload("Activity").
		Where("member_id = ?", memberID).Order("created_at desc").Find(&regs).Error
	return regs, err
}

// ForActivity lists every registration of one activity for reporting.
func (s *Service) ForActivity(ctx context.Context, activityID uint) ([]models.Registration, error) {
	var regs []models.Registration
	err := s.db.WithContext(ctx).Preload("Member").
		Where("activity_id = ?", activityID).Order("created_at asc").Find(&regs).Error
	return regs, err
}

func (s *Service) load(ctx context.Context, activityID, memberID uint) (*models.Activity, *models.Member, error) {
	var activity models.Activity
	if err := s.db.WithContext(ctx).First(&activity, activityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &core.NotFoundError{Entity: "activity", Ref: fmt.Sprint(activityID)}
		}
		return nil, nil, err
	}
	var member models.Member
	if err := s.db.WithContext(ctx).First(&member, memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &core.NotFoundError{Entity: "member", Ref: fmt.Sprint(memberID)}
		}
		return nil, nil, err
	}
	return &activity, &member, nil
}

// Sink failures never roll anything back; member-visible state has
// already committed.
func (s *Service) notify(msg notifier.Message) {
	if err := s.sink.Notify(msg); err != nil {
		s.log.Warn().Err(err).Str("kind", msg.Kind).Msg("notification dropped")
	}
}

func validateAnswers(schema []models.CustomFieldDef, answers map[string]any) error {
	known := make(map[string]models.CustomFieldDef, len(schema))
	for _, def := range schema {
		known[def.Name] = def
		if _, ok := answers[def.Name]; def.Required && !ok {
			return &core.ValidationError{Msg: fmt.Sprintf("missing required field %q", def.Name)}
		}
	}
	for name, value := range answers {
		def, ok := known[name]
		if !ok {
			return &core.ValidationError{Msg: fmt.Sprintf("unknown field %q", name)}
		}
		switch def.Kind {
		case "string":
			if _, ok := value.(string); !ok {
				return &core.ValidationError{Msg: fmt.Sprintf("field %q must be a string", name)}
			}
		case "number":
			switch value.(type) {
			case float64, int, int64:
			default:
				return &core.ValidationError{Msg: fmt.Sprintf("field %q must be a number", name)}
			}
		case "bool":
			if _, ok := value.(bool); !ok {
				return &core.ValidationError{Msg: fmt.Sprintf("field %q must be a boolean", name)}
			}
		}
	}
	return nil
}
