package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/fantom2513/vibe-ds-bot/internal/database"
	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var (
	ErrRuleIDRequired  = errors.New("RULE_ID argument required")
	ErrUserIDRequired  = errors.New("USER_ID argument required")
	ErrPairArgs        = errors.New("USER_ID_1 USER_ID_2 arguments required")
	ErrInvalidListType = errors.New("list type must be blacklist or whitelist")
)

// ruleCommand manages rule activation. Rule creation is richer than flags
// comfortably express, so it stays with SQL or the config pipeline; the CLI
// covers the day-to-day toggles.
func ruleCommand(db database.Client, logger *zap.Logger) *cli.Command {
	setActive := func(active bool) cli.ActionFunc {
		return func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return ErrRuleIDRequired
			}

			ruleID, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule ID: %w", err)
			}

			if err := db.Service().SetRuleActive(ctx, ruleID, active); err != nil {
				return err
			}

			logger.Info("Rule updated", zap.Int64("rule_id", ruleID), zap.Bool("active", active))

			return nil
		}
	}

	return &cli.Command{
		Name:  "rule",
		Usage: "Manage moderation rules",
		Commands: []*cli.Command{
			{
				Name:      "enable",
				Usage:     "Activate a rule",
				ArgsUsage: "RULE_ID",
				Action:    setActive(true),
			},
			{
				Name:      "disable",
				Usage:     "Deactivate a rule",
				ArgsUsage: "RULE_ID",
				Action:    setActive(false),
			},
			{
				Name:      "delete",
				Usage:     "Delete a rule and its schedules",
				ArgsUsage: "RULE_ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return ErrRuleIDRequired
					}

					ruleID, err := strconv.ParseInt(c.Args().First(), 10, 64)
					if err != nil {
						return fmt.Errorf("invalid rule ID: %w", err)
					}

					if err := db.Service().DeleteRule(ctx, ruleID); err != nil {
						return err
					}

					logger.Info("Rule deleted", zap.Int64("rule_id", ruleID))

					return nil
				},
			},
		},
	}
}

// pairCommand manages stacking pairs.
func pairCommand(db database.Client, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "pair",
		Usage: "Manage stacking pairs",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add or update a stacking pair",
				ArgsUsage: "USER_ID_1 USER_ID_2 TARGET_CHANNEL_ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 3 {
						return fmt.Errorf("%w: plus TARGET_CHANNEL_ID", ErrPairArgs)
					}

					userID1, userID2, err := parsePairArgs(c)
					if err != nil {
						return err
					}

					target, err := strconv.ParseUint(c.Args().Get(2), 10, 64)
					if err != nil {
						return fmt.Errorf("invalid target channel ID: %w", err)
					}

					pair := &types.StackingPair{
						UserID1:         userID1,
						UserID2:         userID2,
						TargetChannelID: target,
						IsActive:        true,
					}
					if err := db.Service().UpsertPair(ctx, pair); err != nil {
						return err
					}

					logger.Info("Pair stored",
						zap.Uint64("user_id_1", userID1),
						zap.Uint64("user_id_2", userID2),
						zap.Uint64("target_channel_id", target))

					return nil
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a stacking pair",
				ArgsUsage: "USER_ID_1 USER_ID_2",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 2 {
						return ErrPairArgs
					}

					userID1, userID2, err := parsePairArgs(c)
					if err != nil {
						return err
					}

					if err := db.Service().DeletePair(ctx, userID1, userID2); err != nil {
						return err
					}

					logger.Info("Pair removed",
						zap.Uint64("user_id_1", userID1),
						zap.Uint64("user_id_2", userID2))

					return nil
				},
			},
		},
	}
}

// targetCommand manages idle-timeout kick targets.
func targetCommand(db database.Client, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "target",
		Usage: "Manage idle-timeout kick targets",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add or update a kick target",
				ArgsUsage: "USER_ID",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "timeout",
						Usage: "idle timeout in seconds (0 uses the bot default)",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return ErrUserIDRequired
					}

					userID, err := strconv.ParseUint(c.Args().First(), 10, 64)
					if err != nil {
						return fmt.Errorf("invalid user ID: %w", err)
					}

					target := &types.KickTarget{
						DiscordID:  userID,
						TimeoutSec: int(c.Int("timeout")),
						IsActive:   true,
					}
					if err := db.Service().UpsertKickTarget(ctx, target); err != nil {
						return err
					}

					logger.Info("Kick target stored",
						zap.Uint64("user_id", userID),
						zap.Int("timeout_sec", target.TimeoutSec))

					return nil
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a kick target",
				ArgsUsage: "USER_ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return ErrUserIDRequired
					}

					userID, err := strconv.ParseUint(c.Args().First(), 10, 64)
					if err != nil {
						return fmt.Errorf("invalid user ID: %w", err)
					}

					if err := db.Service().DeleteKickTarget(ctx, userID); err != nil {
						return err
					}

					logger.Info("Kick target removed", zap.Uint64("user_id", userID))

					return nil
				},
			},
		},
	}
}

// listCommand manages blacklist and whitelist membership.
func listCommand(db database.Client, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Manage moderation lists",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a member to a list",
				ArgsUsage: "LIST_TYPE USER_ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					listType, userID, err := parseListArgs(c)
					if err != nil {
						return err
					}

					entry := &types.UserList{
						DiscordID: userID,
						ListType:  listType,
					}
					if err := db.Service().AddToList(ctx, entry); err != nil {
						return err
					}

					logger.Info("List entry stored",
						zap.Uint64("user_id", userID),
						zap.String("list_type", string(listType)))

					return nil
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a member from a list",
				ArgsUsage: "LIST_TYPE USER_ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					listType, userID, err := parseListArgs(c)
					if err != nil {
						return err
					}

					if err := db.Service().RemoveFromList(ctx, userID, listType); err != nil {
						return err
					}

					logger.Info("List entry removed",
						zap.Uint64("user_id", userID),
						zap.String("list_type", string(listType)))

					return nil
				},
			},
		},
	}
}

func parsePairArgs(c *cli.Command) (uint64, uint64, error) {
	userID1, err := strconv.ParseUint(c.Args().Get(0), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid first user ID: %w", err)
	}

	userID2, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid second user ID: %w", err)
	}

	return userID1, userID2, nil
}

func parseListArgs(c *cli.Command) (types.ListType, uint64, error) {
	if c.Args().Len() != 2 {
		return "", 0, fmt.Errorf("%w: LIST_TYPE USER_ID", ErrUserIDRequired)
	}

	var listType types.ListType

	switch c.Args().Get(0) {
	case string(types.ListBlacklist):
		listType = types.ListBlacklist
	case string(types.ListWhitelist):
		listType = types.ListWhitelist
	default:
		return "", 0, ErrInvalidListType
	}

	userID, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid user ID: %w", err)
	}

	return listType, userID, nil
}
