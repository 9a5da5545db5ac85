package database

import (
	"context"
	"fmt"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"go.uber.org/zap"
)

// Service carries the administration-facing write operations. Every
// successful write publishes a config change notification so the running
// engine reloads its pairing table and cron toggles.
type Service struct {
	repo     *Repository
	notifier *Notifier
	logger   *zap.Logger
}

// NewService creates a new administration service instance.
func NewService(repo *Repository, notifier *Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger.Named("admin_service"),
	}
}

func (s *Service) notify(ctx context.Context) {
	if err := s.notifier.Notify(ctx); err != nil {
		// The write itself succeeded; the engine will pick the change up on
		// the next notification or restart.
		s.logger.Warn("Failed to publish config change", zap.Error(err))
	}
}

// CreateRule stores a new rule and signals the change.
func (s *Service) CreateRule(ctx context.Context, rule *types.Rule) error {
	if err := s.repo.Rule().CreateRule(ctx, rule); err != nil {
		return err
	}

	s.notify(ctx)

	return nil
}

// UpdateRule rewrites a rule and signals the change.
func (s *Service) UpdateRule(ctx context.Context, rule *types.Rule) error {
	if err := s.repo.Rule().UpdateRule(ctx, rule); err != nil {
		return err
	}

	s.notify(ctx)

	return nil
}

// DeleteRule removes a rule, cascading its schedules, and signals the
// change.
func (s *Service) DeleteRule(ctx context.Context, ruleID int64) error {
	if err := s.repo.Rule().DeleteRule(ctx, ruleID); err != nil {
		return err
	}

	s.notify(ctx)

	return nil
}

// SetRuleActive flips a rule's active flag and signals the change.
func (s *Service) SetRuleActive(ctx context.Context, ruleID int64, active bool) error {
	if err := s.repo.Rule().SetRuleActive(ctx, ruleID, active); err != nil {
		return err
	}

	s.notify(ctx)

	return nil
}

// CreateSchedule stores a cron toggle after validating it references an
// existing action, and signals the change.
func (s *Service) CreateSchedule(ctx context.Context, schedule *types.RuleSchedule) error {
	if schedule.Action != types.ScheduleEnable && schedule.Action != types.ScheduleDisable {
		return fmt.Errorf("%w: %q", ErrInvalidScheduleAction, schedule.Action)
	}

	if err := s.repo.Schedule().CreateSchedule(ctx, schedule); err != nil {
		return err
	}

	s.notify(ctx)

	return nil
}

// DeleteSchedule removes a cron toggle and signals the change.
func (s *Service) DeleteSchedule(ctx context.Context, scheduleID int64) error {
	if err := s.repo.Schedule().DeleteSchedule(ctx, scheduleID); err != nil {
		return err
	}

	s.notify(ctx)

	return nil
}

// UpsertPair stores a stacking pair and signals the change.
func (s *Service) UpsertPair(ctx context.Context, pair *types.StackingPair) error {
	if err := s.repo.Pairing().UpsertPair(ctx, pair); err != nil {
		return err
	}

	s.notify(ctx)

	return nil
}

// DeletePair removes a stacking pair and signals the change.
func (s *Service) DeletePair(ctx context.Context, userID1, userID2 uint64) error {
	if err := s.repo.Pairing().DeletePair(ctx, userID1, userID2); err != nil {
		return err
	}

	s.notify(ctx)

	return nil
}

// UpsertKickTarget stores an idle-timeout target and signals the change.
func (s *Service) UpsertKickTarget(ctx context.Context, target *types.KickTarget) error {
	if err := s.repo.KickTarget().UpsertTarget(ctx, target); err != nil {
		return err
	}

	s.notify(ctx)

	return nil
}

// DeleteKickTarget removes an idle-timeout target and signals the change.
func (s *Service) DeleteKickTarget(ctx context.Context, userID uint64) error {
	if err := s.repo.KickTarget().DeleteTarget(ctx, userID); err != nil {
		return err
	}

	s.notify(ctx)

	return nil
}

// AddToList places a member on a moderation list and signals the change.
func (s *Service) AddToList(ctx context.Context, entry *types.UserList) error {
	if err := s.repo.UserList().AddToList(ctx, entry); err != nil {
		return err
	}

	s.notify(ctx)

	return nil
}

// RemoveFromList removes a member from a moderation list and signals the
// change.
func (s *Service) RemoveFromList(ctx context.Context, userID uint64, listType types.ListType) error {
	if err := s.repo.UserList().RemoveFromList(ctx, userID, listType); err != nil {
		return err
	}

	s.notify(ctx)

	return nil
}
