package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/focusshift/zeiterfassung/internal/absence"
	"github.com/focusshift/zeiterfassung/internal/config"
	"github.com/focusshift/zeiterfassung/internal/overtime"
	"github.com/focusshift/zeiterfassung/internal/persistence/postgres"
	"github.com/focusshift/zeiterfassung/internal/publicholiday"
	"github.com/focusshift/zeiterfassung/internal/report"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/workingtime"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the wired services of one process
type app struct {
	cfg           *config.Config
	db            *sql.DB
	rdb           *redis.Client
	holidays      publicholiday.Service
	holidayCache  *publicholiday.CachedService
	users         *tenancy.UserService
	workingTimes  *workingtime.Service
	calendars     *workingtime.CalendarService
	absenceWrites *absence.WriteService
	reports       *report.Service
	overtime      *overtime.Service
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	db, err := postgres.Open(ctx, databaseConfig(cfg), logger)
	if err != nil {
		return nil, err
	}
	a.db = db

	if cfg.Redis.Enabled {
		if a.rdb, err = newRedisClient(ctx, cfg); err != nil {
			a.close()
			return nil, err
		}
	}

	if a.holidays, a.holidayCache, err = newHolidayService(cfg, a.rdb); err != nil {
		a.close()
		return nil, err
	}

	workingTimeRepo := postgres.NewWorkingTimeRepository(db, logger)
	absenceRepo := postgres.NewAbsenceRepository(db, logger)

	a.workingTimes = workingtime.NewService(workingTimeRepo, logger)
	a.calendars = workingtime.NewCalendarService(workingTimeRepo, a.holidays, logger)
	a.absenceWrites = absence.NewWriteService(absenceRepo, logger)
	a.reports = report.NewService(a.calendars, absence.NewReadService(absenceRepo), logger)
	a.users = tenancy.NewUserService(postgres.NewUserRepository(db, logger), logger, a.defaultWorkingTime)
	a.overtime = overtime.NewService(postgres.NewOvertimeAccountRepository(db, logger), a.users, logger)

	return a, nil
}

// defaultWorkingTime gives every new user an open-ended working time
func (a *app) defaultWorkingTime(ctx context.Context, tenant tenancy.TenantID, u tenancy.TenantUser) error {
	return a.workingTimes.EnsureDefaultWorkingTime(ctx, tenant, u.IDComposite())
}

func (a *app) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}
}

func databaseConfig(cfg *config.Config) postgres.Config {
	return postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.GetConnMaxLifetime(),
	}
}

func newRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis.url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("Redis connected", zap.String("addr", opts.Addr))
	return rdb, nil
}

// newHolidayService builds the configured holiday sources behind a cache
func newHolidayService(cfg *config.Config, rdb *redis.Client) (publicholiday.Service, *publicholiday.CachedService, error) {
	var sources []publicholiday.Service
	for _, source := range cfg.PublicHolidays.Sources {
		switch source {
		case "computed":
			logger.Info("Using computed German public holidays")
			sources = append(sources, publicholiday.NewRulesService(logger))
		case "file":
			logger.Info("Using public holiday file", zap.String("file", cfg.PublicHolidays.File))
			fileService := publicholiday.NewFileService(cfg.PublicHolidays.File, logger)
			if err := fileService.Load(); err != nil {
				return nil, nil, fmt.Errorf("failed to load public holiday file: %w", err)
			}
			sources = append(sources, fileService)
		default:
			return nil, nil, fmt.Errorf("unknown public holiday source: %s", source)
		}
	}

	var next publicholiday.Service
	if len(sources) == 1 {
		next = sources[0]
	} else {
		next = publicholiday.NewCompositeService(logger, sources...)
	}

	var store publicholiday.Store = publicholiday.NewMemoryStore()
	if cfg.PublicHolidays.CacheBackend == "redis" && rdb != nil {
		store = publicholiday.NewRedisStore(rdb)
	}

	cached := publicholiday.NewCachedService(next, store, cfg.PublicHolidays.GetCacheTTL(), logger)
	return cached, cached, nil
}
