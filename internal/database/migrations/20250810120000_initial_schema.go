package migrations

import (
	"context"
	"fmt"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Rule)(nil),
			(*types.RuleSchedule)(nil),
			(*types.UserList)(nil),
			(*types.VoiceSession)(nil),
			(*types.ActionLog)(nil),
			(*types.StackingPair)(nil),
			(*types.KickTarget)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		_, err := db.NewRaw(`
			ALTER TABLE rule_schedules
			ADD CONSTRAINT fk_rule_schedules_rule
			FOREIGN KEY (rule_id) REFERENCES rules (id) ON DELETE CASCADE;

			CREATE UNIQUE INDEX IF NOT EXISTS uq_user_lists_discord_id_list_type
			ON user_lists (discord_id, list_type);

			CREATE UNIQUE INDEX IF NOT EXISTS uq_stacking_pairs_user_ids
			ON stacking_pairs (user_id_1, user_id_2);

			-- At most a handful of open sessions per member at a time; the
			-- partial index keeps session close lookups cheap.
			CREATE INDEX IF NOT EXISTS idx_voice_sessions_open
			ON voice_sessions (discord_id, channel_id)
			WHERE left_at IS NULL;

			CREATE INDEX IF NOT EXISTS idx_action_logs_discord_id
			ON action_logs (discord_id);

			CREATE INDEX IF NOT EXISTS idx_action_logs_executed_at
			ON action_logs (executed_at DESC);

			CREATE INDEX IF NOT EXISTS idx_rules_active_priority
			ON rules (priority ASC, id ASC)
			WHERE is_active = TRUE;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create constraints and indexes: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			DROP TABLE IF EXISTS rule_schedules;
			DROP TABLE IF EXISTS action_logs;
			DROP TABLE IF EXISTS voice_sessions;
			DROP TABLE IF EXISTS stacking_pairs;
			DROP TABLE IF EXISTS kick_targets;
			DROP TABLE IF EXISTS user_lists;
			DROP TABLE IF EXISTS rules;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}

		return nil
	})
}
