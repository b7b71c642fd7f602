// Package pledge maintains recurring contribution pledges and the
// sweep that materializes each due active pledge into one pending
// donation per period.
package pledge

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
)

type Service struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{db: db, log: log}
}

// Create opens an active pledge. The first donation materializes on
// the next sweep; subsequent ones follow the pledge's frequency.
func (s *Service) Create(ctx context.Context, memberID uint, purpose string, amount int64, freq models.PledgeFrequency) (*models.RecurringPledge, error) {
	if strings.TrimSpace(purpose) == "" {
		return nil, &core.ValidationError{Msg: "pledge purpose must not be empty"}
	}
	if amount <= 0 {
		return nil, &core.ValidationError{Msg: "pledge amount must be positive"}
	}
	switch freq {
	case models.FrequencyMonthly, models.FrequencyQuarterly, models.FrequencyYearly:
	default:
		return nil, &core.ValidationError{Msg: fmt.Sprintf("unknown frequency %q", freq)}
	}

	p := models.RecurringPledge{
		MemberID:  memberID,
		Purpose:   purpose,
		Amount:    amount,
		Frequency: freq,
		Status:    models.PledgeActive,
		NextDueAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Pause stops the sweep from materializing the pledge. The due date
// is left alone; Resume decides whether it needs resetting.
func (s *Service) Pause(ctx context.Context, pledgeID uint) (*models.RecurringPledge, error) {
	return s.transition(ctx, pledgeID, models.PledgeActive, models.PledgePaused, nil)
}

// Resume reactivates a paused pledge. A next-due date that fell into
// the past while paused is pushed to now + one period, so resuming
// never fires a backlog of missed donations.
func (s *Service) Resume(ctx context.Context, pledgeID uint) (*models.RecurringPledge, error) {
	return s.transition(ctx, pledgeID, models.PledgePaused, models.PledgeActive, func(p *models.RecurringPledge) {
		if p.NextDueAt.Before(time.Now()) {
			p.NextDueAt = NextDue(time.Now(), p.Frequency)
		}
	})
}

// Cancel ends the pledge. Already-materialized donations are not
// touched. Cancelling twice is a no-op.
func (s *Service) Cancel(ctx context.Context, pledgeID uint) (*models.RecurringPledge, error) {
	var p models.RecurringPledge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, pledgeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &core.NotFoundError{Entity: "pledge", Ref: fmt.Sprint(pledgeID)}
			}
			return err
		}
		if p.Status == models.PledgeCancelled {
			return nil
		}
		p.Status = models.PledgeCancelled
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) transition(ctx context.Context, pledgeID uint, from, to models.PledgeStatus, mutate func(*models.RecurringPledge)) (*models.RecurringPledge, error) {
	var p models.RecurringPledge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, pledgeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &core.NotFoundError{Entity: "pledge", Ref: fmt.Sprint(pledgeID)}
			}
			return err
		}
		if p.Status != from {
			return &core.InvalidStateTransitionError{
				Entity:    "pledge",
				Current:   string(p.Status),
				Requested: string(to),
			}
		}
		p.Status = to
		if mutate != nil {
			mutate(&p)
		}
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ForMember lists a member's pledges, newest first.
func (s *Service) ForMember(ctx context.Context, memberID uint) ([]models.RecurringPledge, error) {
	var pledges []models.RecurringPledge
	err := s.db.WithContext(ctx).Where("member_id = ?", memberID).
		Order("created_at desc").Find(&pledges).Error
	return pledges, err
}

// Sweep materializes one pending donation for every active pledge
// whose due date has passed and advances its due date by one period.
// Each pledge commits in its own transaction with a status+due-date
// guard, so a pause or cancel racing the sweep never leaves an orphan
// donation behind.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int, error) {
	var due []models.RecurringPledge
	if err := s.db.WithContext(ctx).
		Where("status = ? AND next_due_at <= ?", models.PledgeActive, now).
		Find(&due).Error; err != nil {
		return 0, err
	}

	materialized := 0
	for i := range due {
		p := due[i]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.RecurringPledge{}).
				Where("id = ? AND status = ? AND next_due_at = ?", p.ID, models.PledgeActive, p.NextDueAt).
				Update("next_due_at", NextDue(p.NextDueAt, p.Frequency))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Paused, cancelled or already swept meanwhile.
				return nil
			}
			pledgeID := p.ID
			if err := tx.Create(&models.Donation{
				MemberID: p.MemberID,
				Purpose:  p.Purpose,
				Amount:   p.Amount,
				Status:   models.DonationPending,
				Source:   models.SourcePledge,
				PledgeID: &pledgeID,
			}).Error; err != nil {
				return err
			}
			materialized++
			return nil
		})
		if err != nil {
			s.log.Error().Err(err).Uint("pledge_id", p.ID).Msg("pledge sweep failed")
			return materialized, err
		}
	}
	return materialized, nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx, time.Now())
			if err != nil {
				s.log.Error().Err(err).Msg("pledge sweep aborted")
				continue
			}
			if n > 0 {
				s.log.Info().Int("donations", n).Msg("pledge sweep materialized donations")
			}
		}
	}
}
