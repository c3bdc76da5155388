package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/focusshift/zeiterfassung/internal/overtime"
	"github.com/focusshift/zeiterfassung/internal/publicholiday"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/internal/workingtime"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeUsers map[user.LocalID]tenancy.TenantUser

func knownUsers() fakeUsers {
	return fakeUsers{
		alice.LocalID: {ID: alice.ID, LocalID: alice.LocalID, Status: tenancy.StatusActive},
	}
}

func (f fakeUsers) FindByLocalID(_ context.Context, _ tenancy.TenantID, localID user.LocalID) (tenancy.TenantUser, error) {
	u, ok := f[localID]
	if !ok {
		return tenancy.TenantUser{}, fmt.Errorf("%w: %d", tenancy.ErrUserNotFound, localID)
	}
	return u, nil
}

var openRecordID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

type fakeWorkingTimes struct {
	records   []workingtime.WorkingTime
	createErr error
	created   []workingtime.WorkingTime
	deleted   []uuid.UUID
}

func newFakeWorkingTimes() *fakeWorkingTimes {
	return &fakeWorkingTimes{records: []workingtime.WorkingTime{{
		ID:           openRecordID,
		User:         alice,
		ValidFrom:    workingtime.Open(),
		Pattern:      workingtime.DefaultPattern(),
		FederalState: publicholiday.None,
	}}}
}

func (f *fakeWorkingTimes) GetWorkingTimes(_ context.Context, _ tenancy.TenantID, localID user.LocalID) ([]workingtime.WorkingTime, error) {
	var out []workingtime.WorkingTime
	for _, wt := range f.records {
		if wt.User.LocalID == localID {
			out = append(out, wt)
		}
	}
	return out, nil
}

func (f *fakeWorkingTimes) CreateWorkingTime(_ context.Context, _ tenancy.TenantID, wt workingtime.WorkingTime) (workingtime.WorkingTime, error) {
	if f.createErr != nil {
		return workingtime.WorkingTime{}, f.createErr
	}
	wt.ID = uuid.New()
	f.created = append(f.created, wt)
	f.records = append(f.records, wt)
	return wt, nil
}

func (f *fakeWorkingTimes) DeleteWorkingTime(_ context.Context, _ tenancy.TenantID, localID user.LocalID, id uuid.UUID) error {
	for i, wt := range f.records {
		if wt.ID != id || wt.User.LocalID != localID {
			continue
		}
		if wt.ValidFrom.IsOpen() {
			return workingtime.ErrDeleteOpenRecord
		}
		f.records = append(f.records[:i], f.records[i+1:]...)
		f.deleted = append(f.deleted, id)
		return nil
	}
	return workingtime.ErrNotFound
}

type fakeOvertime struct {
	accounts map[user.LocalID]overtime.Account
}

func newFakeOvertime() *fakeOvertime {
	return &fakeOvertime{accounts: make(map[user.LocalID]overtime.Account)}
}

func (f *fakeOvertime) GetOvertimeAccount(_ context.Context, _ tenancy.TenantID, localID user.LocalID) (overtime.Account, error) {
	if localID != alice.LocalID {
		return overtime.Account{}, tenancy.ErrUserNotFound
	}
	if a, ok := f.accounts[localID]; ok {
		return a, nil
	}
	return overtime.DefaultAccount(localID), nil
}

func (f *fakeOvertime) UpdateOvertimeAccount(_ context.Context, _ tenancy.TenantID, localID user.LocalID, allowed bool, maxAllowed *time.Duration) (overtime.Account, error) {
	if localID != alice.LocalID {
		return overtime.Account{}, tenancy.ErrUserNotFound
	}
	a := overtime.Account{User: localID, Allowed: allowed, MaxAllowed: maxAllowed}
	f.accounts[localID] = a
	return a, nil
}

type recordsFixture struct {
	handler      http.Handler
	workingTimes *fakeWorkingTimes
	overtime     *fakeOvertime
}

func newRecordsFixture(t *testing.T) recordsFixture {
	f := recordsFixture{workingTimes: newFakeWorkingTimes(), overtime: newFakeOvertime()}
	f.handler = NewServer(Services{
		Calendars:    &fakeCalendars{t: t},
		Reports:      &fakeReports{t: t},
		WorkingTimes: f.workingTimes,
		Overtime:     f.overtime,
		Users:        knownUsers(),
	}, nil, zap.NewNop()).Handler()
	return f
}

func send(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestListWorkingTimes(t *testing.T) {
	f := newRecordsFixture(t)

	rec := get(f.handler, "/api/tenants/acme/users/1/working-times")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var resp workingTimesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.WorkingTimes) != 1 {
		t.Fatalf("working times = %d, want 1", len(resp.WorkingTimes))
	}
	wt := resp.WorkingTimes[0]
	if wt.ID != openRecordID.String() || !wt.ValidFrom.IsOpen() || wt.WeeklyHours != 40 || wt.Hours.Monday != 8 || wt.Hours.Sunday != 0 {
		t.Errorf("working time = %+v", wt)
	}

	if rec := get(f.handler, "/api/tenants/acme/users/2/working-times"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", rec.Code)
	}
}

func TestCreateWorkingTime(t *testing.T) {
	f := newRecordsFixture(t)

	body := `{"validFrom":"2024-09-01","federalState":"DE-BY","worksOnPublicHoliday":true,
		"hours":{"monday":6,"tuesday":6,"wednesday":6,"thursday":6,"friday":6.5}}`
	rec := send(f.handler, http.MethodPost, "/api/tenants/acme/users/1/working-times", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if len(f.workingTimes.created) != 1 {
		t.Fatalf("created = %d, want 1", len(f.workingTimes.created))
	}
	created := f.workingTimes.created[0]
	if created.User != alice || created.FederalState != publicholiday.Bayern || !created.WorksOnPublicHoliday {
		t.Errorf("created = %+v", created)
	}
	if date, ok := created.ValidFrom.Date(); !ok || !date.Equal(dateutil.Date(2024, time.September, 1)) {
		t.Errorf("valid from = %s, want 2024-09-01", created.ValidFrom)
	}
	if got := created.Pattern.Hours(time.Friday); got != 6*time.Hour+30*time.Minute {
		t.Errorf("friday = %s, want 6h30m", got)
	}

	var dto workingTimeDTO
	if err := json.NewDecoder(rec.Body).Decode(&dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.ID == "" || dto.WeeklyHours != 30.5 || dto.UserLocalID != 1 {
		t.Errorf("response = %+v", dto)
	}
}

func TestCreateWorkingTime_Errors(t *testing.T) {
	valid := `{"validFrom":"2024-09-01","federalState":"NONE","hours":{"monday":8}}`

	tests := []struct {
		name      string
		target    string
		body      string
		createErr error
		want      int
	}{
		{"missing federal state", "/api/tenants/acme/users/1/working-times", `{"hours":{"monday":8}}`, nil, http.StatusBadRequest},
		{"hours above a day", "/api/tenants/acme/users/1/working-times", `{"federalState":"NONE","hours":{"monday":25}}`, nil, http.StatusBadRequest},
		{"negative hours", "/api/tenants/acme/users/1/working-times", `{"federalState":"NONE","hours":{"sunday":-1}}`, nil, http.StatusBadRequest},
		{"unknown field", "/api/tenants/acme/users/1/working-times", `{"federalState":"NONE","weekly":40}`, nil, http.StatusBadRequest},
		{"malformed date", "/api/tenants/acme/users/1/working-times", `{"validFrom":"01/09/2024","federalState":"NONE"}`, nil, http.StatusBadRequest},
		{"not json", "/api/tenants/acme/users/1/working-times", `hours=8`, nil, http.StatusBadRequest},
		{"unknown user", "/api/tenants/acme/users/2/working-times", valid, nil, http.StatusNotFound},
		{"unknown federal state", "/api/tenants/acme/users/1/working-times", valid,
			fmt.Errorf("%w: %q", publicholiday.ErrUnknownFederalState, "MARS"), http.StatusBadRequest},
		{"duplicate valid from", "/api/tenants/acme/users/1/working-times", valid, workingtime.ErrDuplicateValidFrom, http.StatusConflict},
		{"second open record", "/api/tenants/acme/users/1/working-times", valid, workingtime.ErrOpenRecordExists, http.StatusConflict},
		{"no open record", "/api/tenants/acme/users/1/working-times", valid, workingtime.ErrNoOpenRecord, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRecordsFixture(t)
			f.workingTimes.createErr = tt.createErr

			rec := send(f.handler, http.MethodPost, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestCreateWorkingTime_ReportsFieldNames(t *testing.T) {
	f := newRecordsFixture(t)

	rec := send(f.handler, http.MethodPost, "/api/tenants/acme/users/1/working-times", `{"hours":{"monday":8}}`)
	if !strings.Contains(rec.Body.String(), "federalState is required") {
		t.Errorf("body = %s, want the missing JSON field named", rec.Body)
	}
}

func TestDeleteWorkingTime(t *testing.T) {
	f := newRecordsFixture(t)
	dated := workingtime.WorkingTime{ID: uuid.New(), User: alice, ValidFrom: workingtime.From(dateutil.Date(2024, time.September, 1))}
	f.workingTimes.records = append(f.workingTimes.records, dated)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"dated record", "/api/tenants/acme/users/1/working-times/" + dated.ID.String(), http.StatusNoContent},
		{"already deleted", "/api/tenants/acme/users/1/working-times/" + dated.ID.String(), http.StatusNotFound},
		{"open record", "/api/tenants/acme/users/1/working-times/" + openRecordID.String(), http.StatusConflict},
		{"invalid id", "/api/tenants/acme/users/1/working-times/first", http.StatusBadRequest},
		{"unknown user", "/api/tenants/acme/users/2/working-times/" + dated.ID.String(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(f.handler, http.MethodDelete, tt.target, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}

	if len(f.workingTimes.deleted) != 1 || f.workingTimes.deleted[0] != dated.ID {
		t.Errorf("deleted = %v, want only %s", f.workingTimes.deleted, dated.ID)
	}
}

func TestOvertimeAccount(t *testing.T) {
	f := newRecordsFixture(t)
	target := "/api/tenants/acme/users/1/overtime-account"

	rec := get(f.handler, target)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var dto overtimeAccountDTO
	if err := json.NewDecoder(rec.Body).Decode(&dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !dto.Allowed || dto.MaxAllowedHours != nil {
		t.Errorf("default account = %+v, want allowed without limit", dto)
	}

	rec = send(f.handler, http.MethodPut, target, `{"allowed":true,"maxAllowedOvertimeHours":12.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200: %s", rec.Code, rec.Body)
	}
	stored := f.overtime.accounts[alice.LocalID]
	if stored.MaxAllowed == nil || *stored.MaxAllowed != 12*time.Hour+30*time.Minute {
		t.Errorf("stored max = %v, want 12h30m", stored.MaxAllowed)
	}

	rec = send(f.handler, http.MethodPut, target, `{"allowed":false,"maxAllowedOvertimeHours":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200: %s", rec.Code, rec.Body)
	}
	dto = overtimeAccountDTO{}
	if err := json.NewDecoder(rec.Body).Decode(&dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.Allowed || dto.MaxAllowedHours != nil {
		t.Errorf("account = %+v, want disallowed without limit", dto)
	}
}

func TestOvertimeAccount_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"unknown user", http.MethodGet, "/api/tenants/acme/users/2/overtime-account", "", http.StatusNotFound},
		{"invalid local id", http.MethodGet, "/api/tenants/acme/users/x/overtime-account", "", http.StatusBadRequest},
		{"missing allowed", http.MethodPut, "/api/tenants/acme/users/1/overtime-account", `{"maxAllowedOvertimeHours":3}`, http.StatusBadRequest},
		{"negative maximum", http.MethodPut, "/api/tenants/acme/users/1/overtime-account", `{"allowed":true,"maxAllowedOvertimeHours":-1}`, http.StatusBadRequest},
		{"update unknown user", http.MethodPut, "/api/tenants/acme/users/2/overtime-account", `{"allowed":true}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRecordsFixture(t)
			rec := send(f.handler, tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}
