package types

import "time"

// ScheduleAction is what a cron toggle does to its owning rule at trigger
// time.
type ScheduleAction string

const (
	ScheduleEnable  ScheduleAction = "enable"
	ScheduleDisable ScheduleAction = "disable"
)

// RuleSchedule is a cron-triggered toggle of a rule's active flag. Deleting
// the owning rule cascades to its schedules.
type RuleSchedule struct {
	ID        int64          `bun:",pk,autoincrement"`
	RuleID    int64          `bun:",notnull"`
	CronExpr  string         `bun:",notnull"` // Standard 5-field cron expression
	Action    ScheduleAction `bun:",notnull"`
	Timezone  string         `bun:",notnull,default:'UTC'"`
	IsActive  bool           `bun:",notnull,default:true"`
	CreatedAt time.Time      `bun:",notnull"`

	Rule *Rule `bun:"rel:belongs-to,join:rule_id=id"`
}
