package models

import (
	"context"
	"fmt"
	"time"

	"github.com/fantom2513/vibe-ds-bot/internal/database/dbretry"
	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ScheduleModel handles database operations for cron rule toggles.
type ScheduleModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSchedule creates a new schedule model instance.
func NewSchedule(db *bun.DB, logger *zap.Logger) *ScheduleModel {
	return &ScheduleModel{
		db:     db,
		logger: logger.Named("db_schedule"),
	}
}

// GetActiveSchedules retrieves all active cron toggles.
func (m *ScheduleModel) GetActiveSchedules(ctx context.Context) ([]*types.RuleSchedule, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.RuleSchedule, error) {
		var schedules []*types.RuleSchedule

		err := m.db.NewSelect().
			Model(&schedules).
			Where("is_active = TRUE").
			Order("id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get active schedules: %w", err)
		}

		return schedules, nil
	})
}

// CreateSchedule stores a new cron toggle for a rule.
func (m *ScheduleModel) CreateSchedule(ctx context.Context, schedule *types.RuleSchedule) error {
	schedule.CreatedAt = time.Now()

	if schedule.Timezone == "" {
		schedule.Timezone = "UTC"
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(schedule).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create schedule: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Created schedule",
		zap.Int64("schedule_id", schedule.ID),
		zap.Int64("rule_id", schedule.RuleID),
		zap.String("cron", schedule.CronExpr))

	return nil
}

// DeleteSchedule removes a cron toggle.
func (m *ScheduleModel) DeleteSchedule(ctx context.Context, scheduleID int64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.RuleSchedule)(nil)).
			Where("id = ?", scheduleID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete schedule: %w", err)
		}

		return nil
	})
}
