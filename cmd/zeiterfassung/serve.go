package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/focusshift/zeiterfassung/internal/config"
	"github.com/focusshift/zeiterfassung/internal/daemon"
	"github.com/focusshift/zeiterfassung/internal/httpapi"
	"github.com/focusshift/zeiterfassung/internal/integration/portal"
	"github.com/focusshift/zeiterfassung/internal/integration/vacation"
	"github.com/focusshift/zeiterfassung/internal/messaging"
	"github.com/focusshift/zeiterfassung/internal/persistence/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the event consumers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if migrate {
				if err := postgres.Migrate(ctx, a.db, logger); err != nil {
					return err
				}
			}

			checks := map[string]httpapi.HealthCheck{
				"database": func(ctx context.Context) error { return postgres.Health(ctx, a.db) },
			}
			if a.rdb != nil {
				checks["redis"] = func(ctx context.Context) error { return a.rdb.Ping(ctx).Err() }
			}
			api := httpapi.NewServer(httpapi.Services{
				Calendars:    a.calendars,
				Reports:      a.reports,
				WorkingTimes: a.workingTimes,
				Overtime:     a.overtime,
				Users:        a.users,
			}, checks, logger)

			opts := daemon.Options{
				Server: &http.Server{
					Addr:         cfg.Server.Addr,
					Handler:      api.Handler(),
					ReadTimeout:  cfg.Server.GetReadTimeout(),
					WriteTimeout: cfg.Server.GetWriteTimeout(),
				},
				Warmer:          a.holidayCache,
				WarmUpInterval:  cfg.PublicHolidays.GetWarmUpInterval(),
				ShutdownTimeout: cfg.Server.GetShutdownTimeout(),
			}
			if consumer := newConsumer(cfg, a); consumer != nil {
				opts.Consumer = consumer
			}

			logger.Info("Starting zeiterfassung",
				zap.String("addr", cfg.Server.Addr),
				zap.Bool("vacation_events", cfg.Integration.Vacation.Enabled),
				zap.Bool("portal_events", cfg.Integration.Portal.Enabled))

			return daemon.NewDaemon(opts, logger).Start()
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply the database schema before serving")

	return cmd
}

// newConsumer registers the enabled integrations; nil when none is enabled
func newConsumer(cfg *config.Config, a *app) *messaging.Consumer {
	if a.rdb == nil || (!cfg.Integration.Vacation.Enabled && !cfg.Integration.Portal.Enabled) {
		return nil
	}

	consumer := messaging.NewConsumer(a.rdb, cfg.Integration.Group, cfg.Integration.Consumer, logger)
	consumer.SetRetryInterval(cfg.Integration.GetRetryInterval())

	if cfg.Integration.Vacation.Enabled {
		h := vacation.NewHandler(a.absenceWrites, logger)
		consumer.Handle(cfg.Integration.Vacation.AllowedStream, messaging.Decode(h.OnApplicationAllowed))
		consumer.Handle(cfg.Integration.Vacation.CreatedFromSickNoteStream, messaging.Decode(h.OnApplicationCreatedFromSickNote))
		consumer.Handle(cfg.Integration.Vacation.CancelledStream, messaging.Decode(h.OnApplicationCancelled))
	}

	if cfg.Integration.Portal.Enabled {
		h := portal.NewHandler(a.users, logger)
		consumer.Handle(cfg.Integration.Portal.CreatedStream, messaging.Decode(h.OnUserCreated))
		consumer.Handle(cfg.Integration.Portal.UpdatedStream, messaging.Decode(h.OnUserUpdated))
		consumer.Handle(cfg.Integration.Portal.DeletedStream, messaging.Decode(h.OnUserDeleted))
	}

	return consumer
}
