package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/focusshift/zeiterfassung/internal/overtime"
	"github.com/focusshift/zeiterfassung/internal/publicholiday"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/internal/workingtime"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"go.uber.org/zap"
)

// workingTimeCalendars handles GET /api/tenants/{tenant}/working-time-calendars?from=&to=&user=
func (s *Server) workingTimeCalendars(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenancy.ParseTenantID(r.PathValue("tenant"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var users []user.LocalID
	for _, raw := range r.URL.Query()["user"] {
		id, err := user.ParseLocalID(raw)
		if err != nil {
			s.writeError(w, r, badRequest(err))
			return
		}
		users = append(users, id)
	}

	var calendars map[user.IDComposite]*workingtime.Calendar
	if len(users) == 0 {
		calendars, err = s.calendars.ForAllUsers(r.Context(), tenant, from, to)
	} else {
		calendars, err = s.calendars.ForUsers(r.Context(), tenant, from, to, users)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := calendarsResponse{
		From:      dateutil.FormatDate(from),
		To:        dateutil.FormatDate(to),
		Calendars: make([]userCalendarDTO, 0, len(calendars)),
	}
	for u, cal := range calendars {
		resp.Calendars = append(resp.Calendars, toUserCalendarDTO(u, cal))
	}
	sort.Slice(resp.Calendars, func(i, j int) bool {
		return resp.Calendars[i].UserLocalID < resp.Calendars[j].UserLocalID
	})

	writeJSON(w, http.StatusOK, resp)
}

// shouldWorkingHours handles GET /api/tenants/{tenant}/users/{localId}/should-working-hours?from=&to=
func (s *Server) shouldWorkingHours(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenancy.ParseTenantID(r.PathValue("tenant"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	localID, err := user.ParseLocalID(r.PathValue("localId"))
	if err != nil {
		s.writeError(w, r, badRequest(err))
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rep, err := s.reports.ForUser(r.Context(), tenant, from, to, localID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toShouldHoursResponse(from, to, rep))
}

// health handles GET /healthz
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(s.checks))}
	status := http.StatusOK
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = "error: " + err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

// parseRange reads the required from and to (exclusive) query parameters
func parseRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		return time.Time{}, time.Time{}, badRequest(errors.New("query parameters from and to are required"))
	}
	if from, err = dateutil.ParseDate(q.Get("from")); err != nil {
		return time.Time{}, time.Time{}, badRequest(fmt.Errorf("from: %w", err))
	}
	if to, err = dateutil.ParseDate(q.Get("to")); err != nil {
		return time.Time{}, time.Time{}, badRequest(fmt.Errorf("to: %w", err))
	}
	return from, to, nil
}

// writeError maps domain errors to status codes
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr   *requestError
		rangeErr *dateutil.InvalidRangeError
		stateErr *workingtime.IllegalScheduleStateError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &reqErr), errors.As(err, &rangeErr), errors.Is(err, tenancy.ErrInvalidTenantID),
		errors.Is(err, workingtime.ErrInvalidPattern), errors.Is(err, publicholiday.ErrUnknownFederalState),
		errors.Is(err, overtime.ErrInvalidMaxAllowed):
		status = http.StatusBadRequest
	case errors.Is(err, workingtime.ErrNotFound), errors.Is(err, tenancy.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.As(err, &stateErr), errors.Is(err, workingtime.ErrDuplicateValidFrom),
		errors.Is(err, workingtime.ErrOpenRecordExists), errors.Is(err, workingtime.ErrDeleteOpenRecord),
		errors.Is(err, workingtime.ErrNoOpenRecord):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}

	s.logger.Info("Request rejected",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err))
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
