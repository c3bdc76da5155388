package publicholiday

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CompositeService merges the holidays of several sources.
// A failing source is logged and skipped; the call fails only when every source fails.
type CompositeService struct {
	sources []Service
	logger  *zap.Logger
}

// NewCompositeService creates a new CompositeService
func NewCompositeService(logger *zap.Logger, sources ...Service) *CompositeService {
	return &CompositeService{
		sources: sources,
		logger:  logger,
	}
}

// GetPublicHolidays returns the union of all sources per requested state
func (cs *CompositeService) GetPublicHolidays(ctx context.Context, from, toExclusive time.Time, states []FederalState) (map[FederalState]*Calendar, error) {
	merged := make(map[FederalState][]Holiday, len(states))
	var errs []error

	for i, source := range cs.sources {
		calendars, err := source.GetPublicHolidays(ctx, from, toExclusive, states)
		if err != nil {
			cs.logger.Warn("Holiday source failed, skipping",
				zap.Int("source", i),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		for state, cal := range calendars {
			merged[state] = append(merged[state], cal.Holidays()...)
		}
	}

	if len(cs.sources) > 0 && len(errs) == len(cs.sources) {
		return nil, fmt.Errorf("all holiday sources failed: %w", errors.Join(errs...))
	}

	result := make(map[FederalState]*Calendar, len(states))
	for _, state := range states {
		result[state] = NewCalendar(state, merged[state])
	}
	return result, nil
}
