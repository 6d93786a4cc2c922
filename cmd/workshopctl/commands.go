package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ad/go-workshop-progress/internal/app"
	"github.com/ad/go-workshop-progress/internal/auth"
	"github.com/ad/go-workshop-progress/internal/config"
	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/services"
	"github.com/ad/go-workshop-progress/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// env holds what every subcommand needs once the root pre-run has finished.
type env struct {
	verbose bool
	cfg     *config.Config
	logger  *zap.Logger
	store   store.Store

	newNotifier func(context.Context, *config.Config, *zap.Logger) (services.CompletionNotifier, error)
	notifier    services.CompletionNotifier
}

func newEnv() *env {
	return &env{newNotifier: app.NewNotifier}
}

// close releases the store and flushes the logger. It runs after Execute
// returns because cobra skips post-run hooks when a command fails.
func (e *env) close() {
	if e.store != nil {
		_ = e.store.Close()
		e.store = nil
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "workshopctl",
		Short:         "Maintenance commands for workshop progress",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zapConfig := zap.NewProductionConfig()
			if e.verbose {
				zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			} else {
				zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			}
			logger, err := zapConfig.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			e.logger = logger

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			st, err := app.OpenStore(cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			e.store = st
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		migrateCmd(e),
		syncUserCmd(e),
		syncAllCmd(e),
		createAdminCmd(e),
		seedUsersCmd(e),
		statsCmd(e),
		progressCmd(e),
	)
	return root
}

// syncService builds the sync service with the completion notifier from the
// configuration, so completions found by a backfill are announced too.
func (e *env) syncService(ctx context.Context) (*services.ProgressSyncService, error) {
	if e.notifier == nil {
		n, err := e.newNotifier(ctx, e.cfg, e.logger)
		if err != nil {
			return nil, fmt.Errorf("completion notifier: %w", err)
		}
		if n == nil {
			n = services.NopNotifier{}
		}
		e.notifier = n
	}
	return services.NewProgressSyncService(e.store, e.notifier, e.logger), nil
}

func migrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the store in the pre-run applied the schema already.
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func syncUserCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-user <user-id>",
		Short: "Recompute stored navigation progress for one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			svc, err := e.syncService(cmd.Context())
			if err != nil {
				return err
			}
			if !svc.SyncUserProgress(cmd.Context(), id) {
				return fmt.Errorf("sync failed for user %d", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d synced\n", id)
			return nil
		},
	}
}

func syncAllCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-all",
		Short: "Recompute stored navigation progress for every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.syncService(cmd.Context())
			if err != nil {
				return err
			}
			report := svc.SyncAllUsersProgressReport(cmd.Context())
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if report.ErrorCount > 0 {
				return fmt.Errorf("%d users failed to sync", report.ErrorCount)
			}
			return nil
		},
	}
}

func createAdminCmd(e *env) *cobra.Command {
	var email, name, password, role string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a staff account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := auth.CreateUser(cmd.Context(), e.store, email, name, password, models.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.DisplayName(), user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "admin or facilitator")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func seedUsersCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-users <file.yaml>",
		Short: "Create accounts listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := auth.SeedFromFile(cmd.Context(), e.store, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d users\n", created)
			return nil
		},
	}
}

func statsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <ast|ia>",
		Short: "Show completion statistics for a workshop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workshop, ok := models.ParseWorkshopType(args[0])
			if !ok {
				return fmt.Errorf("unknown workshop %q", args[0])
			}
			stats, err := services.NewStatisticsService(e.store).GetWorkshopStatistics(cmd.Context(), workshop)
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		},
	}
}

func progressCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <user-id>",
		Short: "Show derived progress of a user in every workshop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			// Details only derive progress, nothing is written or announced.
			sync := services.NewProgressSyncService(e.store, nil, e.logger)
			details, err := services.NewUserManager(e.store, sync, e.logger).GetUserDetails(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, details)
		},
	}
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
