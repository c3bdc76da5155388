package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/focusshift/zeiterfassung/internal/config"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/internal/workingtime"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func calendarCmd() *cobra.Command {
	var (
		tenantFlag string
		fromFlag   string
		toFlag     string
		userFlags  []int64
		week       bool
	)

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print the working-time calendars of a tenant",
		Long: "Prints the planned working hours per day for [from, to). Without --user every user of the tenant is included.\n" +
			"The range defaults to the current month, or the current week with --week.",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := tenancy.ParseTenantID(tenantFlag)
			if err != nil {
				return err
			}
			from, to, err := calendarRange(fromFlag, toFlag, week)
			if err != nil {
				return err
			}

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

			var calendars map[user.IDComposite]*workingtime.Calendar
			if len(userFlags) == 0 {
				calendars, err = a.calendars.ForAllUsers(ctx, tenant, from, to)
			} else {
				users := make([]user.LocalID, len(userFlags))
				for i, id := range userFlags {
					users[i] = user.LocalID(id)
				}
				calendars, err = a.calendars.ForUsers(ctx, tenant, from, to, users)
			}
			if err != nil {
				return err
			}

			logger.Info("Calendars derived",
				zap.String("tenant_id", tenant.String()),
				zap.Int("users", len(calendars)))
			printCalendars(calendars)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantFlag, "tenant", "", "Tenant id")
	cmd.Flags().StringVar(&fromFlag, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toFlag, "to", "", "End date, exclusive (YYYY-MM-DD)")
	cmd.Flags().Int64SliceVar(&userFlags, "user", nil, "Local user id (repeatable)")
	cmd.Flags().BoolVar(&week, "week", false, "Use the current week as default range")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

// calendarRange resolves the flags; missing bounds default to the current month or week
func calendarRange(fromFlag, toFlag string, week bool) (from, to time.Time, err error) {
	today := dateutil.Today()
	if week {
		from = dateutil.StartOfWeek(today)
		to = dateutil.AddDays(from, 7)
	} else {
		from = dateutil.StartOfMonth(today)
		to = dateutil.StartOfMonth(dateutil.AddDays(from, 31))
	}

	if fromFlag != "" {
		if from, err = dateutil.ParseDate(fromFlag); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if toFlag != "" {
		if to, err = dateutil.ParseDate(toFlag); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
	}
	return from, to, nil
}

func printCalendars(calendars map[user.IDComposite]*workingtime.Calendar) {
	if len(calendars) == 0 {
		outln("No working times found")
		return
	}

	users := make([]user.IDComposite, 0, len(calendars))
	for u := range calendars {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].LocalID < users[j].LocalID })

	for _, u := range users {
		cal := calendars[u]
		outf("\n📅 %s (%s)\n", u.ID, u.LocalID)
		outln("═══════════════════════════")
		outln("  Date         | Day | Planned")
		outln("---------------+-----+--------")
		for _, day := range cal.Days() {
			marker := ""
			if dateutil.IsWeekend(day.Date) {
				marker = "  (weekend)"
			}
			outf("  %s   | %s | %5.1fh%s\n",
				dateutil.FormatDate(day.Date),
				day.Date.Weekday().String()[:3],
				day.Planned.Hours(),
				marker)
		}
		outf("  Total: %.1fh\n", cal.Total().Hours())
	}
}
