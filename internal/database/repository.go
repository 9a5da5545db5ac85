package database

import (
	"github.com/fantom2513/vibe-ds-bot/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	rule       *models.RuleModel
	schedule   *models.ScheduleModel
	userList   *models.UserListModel
	session    *models.SessionModel
	audit      *models.AuditModel
	pairing    *models.PairingModel
	kickTarget *models.KickTargetModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		rule:       models.NewRule(db, logger),
		schedule:   models.NewSchedule(db, logger),
		userList:   models.NewUserList(db, logger),
		session:    models.NewSession(db, logger),
		audit:      models.NewAudit(db, logger),
		pairing:    models.NewPairing(db, logger),
		kickTarget: models.NewKickTarget(db, logger),
	}
}

// Rule returns the rule model repository.
func (r *Repository) Rule() *models.RuleModel {
	return r.rule
}

// Schedule returns the schedule model repository.
func (r *Repository) Schedule() *models.ScheduleModel {
	return r.schedule
}

// UserList returns the user list model repository.
func (r *Repository) UserList() *models.UserListModel {
	return r.userList
}

// Session returns the voice session model repository.
func (r *Repository) Session() *models.SessionModel {
	return r.session
}

// Audit returns the audit log model repository.
func (r *Repository) Audit() *models.AuditModel {
	return r.audit
}

// Pairing returns the stacking pair model repository.
func (r *Repository) Pairing() *models.PairingModel {
	return r.pairing
}

// KickTarget returns the kick target model repository.
func (r *Repository) KickTarget() *models.KickTargetModel {
	return r.kickTarget
}
