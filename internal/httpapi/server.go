package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/focusshift/zeiterfassung/internal/metrics"
	"github.com/focusshift/zeiterfassung/internal/overtime"
	"github.com/focusshift/zeiterfassung/internal/report"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/internal/workingtime"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CalendarReader derives working-time calendars
type CalendarReader interface {
	ForUsers(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time, users []user.LocalID) (map[user.IDComposite]*workingtime.Calendar, error)
	ForAllUsers(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time) (map[user.IDComposite]*workingtime.Calendar, error)
}

// ReportReader computes should-working-hours of a user
type ReportReader interface {
	ForUser(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time, localID user.LocalID) (report.UserReport, error)
}

// WorkingTimeManager lists, creates and deletes working-time records
type WorkingTimeManager interface {
	GetWorkingTimes(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID) ([]workingtime.WorkingTime, error)
	CreateWorkingTime(ctx context.Context, tenant tenancy.TenantID, wt workingtime.WorkingTime) (workingtime.WorkingTime, error)
	DeleteWorkingTime(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID, id uuid.UUID) error
}

// OvertimeManager reads and updates overtime accounts
type OvertimeManager interface {
	GetOvertimeAccount(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID) (overtime.Account, error)
	UpdateOvertimeAccount(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID, allowed bool, maxAllowed *time.Duration) (overtime.Account, error)
}

// UserFinder resolves tenant users by local id
type UserFinder interface {
	FindByLocalID(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID) (tenancy.TenantUser, error)
}

// Services are the domain services behind the API
type Services struct {
	Calendars    CalendarReader
	Reports      ReportReader
	WorkingTimes WorkingTimeManager
	Overtime     OvertimeManager
	Users        UserFinder
}

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// Server is the JSON API
type Server struct {
	calendars    CalendarReader
	reports      ReportReader
	workingTimes WorkingTimeManager
	overtime     OvertimeManager
	users        UserFinder
	checks       map[string]HealthCheck
	logger       *zap.Logger
}

// NewServer creates a new Server. checks are run by /healthz.
func NewServer(services Services, checks map[string]HealthCheck, logger *zap.Logger) *Server {
	return &Server{
		calendars:    services.Calendars,
		reports:      services.Reports,
		workingTimes: services.WorkingTimes,
		overtime:     services.Overtime,
		users:        services.Users,
		checks:       checks,
		logger:       logger,
	}
}

// Handler returns the routed and instrumented handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tenants/{tenant}/working-time-calendars", s.workingTimeCalendars)
	mux.HandleFunc("GET /api/tenants/{tenant}/users/{localId}/should-working-hours", s.shouldWorkingHours)
	mux.HandleFunc("GET /api/tenants/{tenant}/users/{localId}/working-times", s.listWorkingTimes)
	mux.HandleFunc("POST /api/tenants/{tenant}/users/{localId}/working-times", s.createWorkingTime)
	mux.HandleFunc("DELETE /api/tenants/{tenant}/users/{localId}/working-times/{id}", s.deleteWorkingTime)
	mux.HandleFunc("GET /api/tenants/{tenant}/users/{localId}/overtime-account", s.getOvertimeAccount)
	mux.HandleFunc("PUT /api/tenants/{tenant}/users/{localId}/overtime-account", s.updateOvertimeAccount)
	mux.HandleFunc("GET /healthz", s.health)
	mux.Handle("GET /metrics", promhttp.Handler())

	return withRequestLogging(metrics.HTTPMetricsMiddleware(mux), s.logger)
}
