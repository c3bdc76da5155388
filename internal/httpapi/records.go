package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/focusshift/zeiterfassung/internal/publicholiday"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/internal/workingtime"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// listWorkingTimes handles GET /api/tenants/{tenant}/users/{localId}/working-times
func (s *Server) listWorkingTimes(w http.ResponseWriter, r *http.Request) {
	tenant, u, err := s.pathUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	records, err := s.workingTimes.GetWorkingTimes(r.Context(), tenant, u.LocalID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := workingTimesResponse{WorkingTimes: make([]workingTimeDTO, len(records))}
	for i, wt := range records {
		resp.WorkingTimes[i] = toWorkingTimeDTO(wt)
	}
	writeJSON(w, http.StatusOK, resp)
}

// createWorkingTime handles POST /api/tenants/{tenant}/users/{localId}/working-times
func (s *Server) createWorkingTime(w http.ResponseWriter, r *http.Request) {
	tenant, u, err := s.pathUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req workingTimeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.workingTimes.CreateWorkingTime(r.Context(), tenant, workingtime.WorkingTime{
		User:                 u.IDComposite(),
		ValidFrom:            req.ValidFrom,
		Pattern:              req.Hours.pattern(),
		FederalState:         publicholiday.FederalState(req.FederalState),
		WorksOnPublicHoliday: req.WorksOnPublicHoliday,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkingTimeDTO(created))
}

// deleteWorkingTime handles DELETE /api/tenants/{tenant}/users/{localId}/working-times/{id}
func (s *Server) deleteWorkingTime(w http.ResponseWriter, r *http.Request) {
	tenant, u, err := s.pathUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, badRequest(fmt.Errorf("invalid working time id: %w", err)))
		return
	}

	if err := s.workingTimes.DeleteWorkingTime(r.Context(), tenant, u.LocalID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getOvertimeAccount handles GET /api/tenants/{tenant}/users/{localId}/overtime-account
func (s *Server) getOvertimeAccount(w http.ResponseWriter, r *http.Request) {
	tenant, localID, err := pathLocalID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	account, err := s.overtime.GetOvertimeAccount(r.Context(), tenant, localID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOvertimeAccountDTO(account))
}

// updateOvertimeAccount handles PUT /api/tenants/{tenant}/users/{localId}/overtime-account
func (s *Server) updateOvertimeAccount(w http.ResponseWriter, r *http.Request) {
	tenant, localID, err := pathLocalID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req overtimeAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	account, err := s.overtime.UpdateOvertimeAccount(r.Context(), tenant, localID, *req.Allowed, optionalDuration(req.MaxAllowedHours))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOvertimeAccountDTO(account))
}

func pathLocalID(r *http.Request) (tenancy.TenantID, user.LocalID, error) {
	tenant, err := tenancy.ParseTenantID(r.PathValue("tenant"))
	if err != nil {
		return "", 0, err
	}
	localID, err := user.ParseLocalID(r.PathValue("localId"))
	if err != nil {
		return "", 0, badRequest(err)
	}
	return tenant, localID, nil
}

// pathUser resolves the user addressed by the path
func (s *Server) pathUser(r *http.Request) (tenancy.TenantID, tenancy.TenantUser, error) {
	tenant, localID, err := pathLocalID(r)
	if err != nil {
		return "", tenancy.TenantUser{}, err
	}
	u, err := s.users.FindByLocalID(r.Context(), tenant, localID)
	if err != nil {
		return "", tenancy.TenantUser{}, err
	}
	return tenant, u, nil
}

// decodeJSON reads a single JSON object into v and validates it
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(fmt.Errorf("invalid request body: %w", err))
	}

	if err := validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return badRequest(err)
		}
		errs := make([]error, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			switch fe.Tag() {
			case "required":
				errs = append(errs, fmt.Errorf("%s is required", fe.Field()))
			default:
				errs = append(errs, fmt.Errorf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
			}
		}
		return badRequest(errors.Join(errs...))
	}
	return nil
}
