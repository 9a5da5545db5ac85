package scheduler

import (
	"context"
	"fmt"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ScheduleSource supplies the active cron toggle rows.
type ScheduleSource interface {
	GetActiveSchedules(ctx context.Context) ([]*types.RuleSchedule, error)
}

// RuleToggler flips a rule's active flag.
type RuleToggler interface {
	SetRuleActive(ctx context.Context, ruleID int64, active bool) error
}

// ToggleBuilder turns rule schedule rows into cron duties that enable or
// disable their owning rule at trigger time.
type ToggleBuilder struct {
	schedules ScheduleSource
	toggler   RuleToggler
	logger    *zap.Logger
}

// NewToggleBuilder creates a toggle builder.
func NewToggleBuilder(schedules ScheduleSource, toggler RuleToggler, logger *zap.Logger) *ToggleBuilder {
	return &ToggleBuilder{
		schedules: schedules,
		toggler:   toggler,
		logger:    logger.Named("toggles"),
	}
}

// Build loads active schedules and compiles them into cron duties keyed by
// schedule ID. Rows with malformed expressions or timezones are skipped
// with a warning so one bad row cannot block the rest.
func (b *ToggleBuilder) Build(ctx context.Context) (map[string]CronDuty, error) {
	rows, err := b.schedules.GetActiveSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule schedules: %w", err)
	}

	duties := make(map[string]CronDuty, len(rows))

	for _, row := range rows {
		expr := row.CronExpr
		if row.Timezone != "" {
			expr = fmt.Sprintf("CRON_TZ=%s %s", row.Timezone, row.CronExpr)
		}

		schedule, err := cron.ParseStandard(expr)
		if err != nil {
			b.logger.Warn("Skipping malformed rule schedule",
				zap.Int64("schedule_id", row.ID),
				zap.String("cron_expr", row.CronExpr),
				zap.String("timezone", row.Timezone),
				zap.Error(err))

			continue
		}

		duties[fmt.Sprintf("schedule_%d", row.ID)] = CronDuty{
			Schedule: schedule,
			Run:      b.toggleDuty(row.RuleID, row.Action),
		}
	}

	return duties, nil
}

// toggleDuty returns the duty executed when a schedule fires.
func (b *ToggleBuilder) toggleDuty(ruleID int64, action types.ScheduleAction) Duty {
	active := action == types.ScheduleEnable

	return func(ctx context.Context) error {
		if err := b.toggler.SetRuleActive(ctx, ruleID, active); err != nil {
			return fmt.Errorf("failed to toggle rule %d: %w", ruleID, err)
		}

		b.logger.Info("Rule toggled by schedule",
			zap.Int64("rule_id", ruleID),
			zap.Bool("active", active))

		return nil
	}
}
