package main

import (
	"context"
	"fmt"
	"time"

	"github.com/focusshift/zeiterfassung/internal/config"
	"github.com/focusshift/zeiterfassung/internal/publicholiday"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"github.com/spf13/cobra"
)

func holidaysCmd() *cobra.Command {
	var (
		stateFlag string
		year      int
	)

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Print the public holidays of a federal state",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := publicholiday.ParseFederalState(stateFlag)
			if err != nil {
				return err
			}

			var service publicholiday.Service = publicholiday.NewRulesService(logger)
			if cfg, err := config.Load(configPath); err == nil {
				// no redis here; the CLI only needs the configured sources
				cfg.PublicHolidays.CacheBackend = "memory"
				if service, _, err = newHolidayService(cfg, nil); err != nil {
					return err
				}
			}

			from := dateutil.Date(year, time.January, 1)
			to := dateutil.Date(year+1, time.January, 1)
			calendars, err := service.GetPublicHolidays(context.Background(), from, to, []publicholiday.FederalState{state})
			if err != nil {
				return err
			}

			cal, ok := calendars[state]
			if !ok {
				return fmt.Errorf("no public holidays returned for %s", state)
			}
			holidays := cal.Holidays()
			outf("\n🎉 Public holidays %s %d\n", state, year)
			outln("═══════════════════════════════════════════")
			for _, h := range holidays {
				outf("  %s  %s  %s\n", dateutil.FormatDate(h.Date), h.Date.Weekday().String()[:3], h.Name)
			}
			outf("  %d holiday(s)\n", len(holidays))
			return nil
		},
	}

	cmd.Flags().StringVar(&stateFlag, "state", "", "Federal state (e.g. DE-BE, NONE)")
	cmd.Flags().IntVar(&year, "year", dateutil.Today().Year(), "Year")
	cmd.MarkFlagRequired("state")

	return cmd
}
