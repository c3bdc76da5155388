package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/focusshift/zeiterfassung/internal/absence"
	"github.com/focusshift/zeiterfassung/internal/overtime"
	"github.com/focusshift/zeiterfassung/internal/publicholiday"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/internal/workingtime"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "zeit", Password: "secret", Database: "zeiterfassung"}
	want := "host=db port=5432 user=zeit password=secret dbname=zeiterfassung sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	cfg.SSLMode = "require"
	want = "host=db port=5432 user=zeit password=secret dbname=zeiterfassung sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pq.Error{Code: "23505"}, true},
		{"wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"foreign key violation", &pq.Error{Code: "23503"}, false},
		{"other error", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// openTestDB connects to the database named by ZEITERFASSUNG_TEST_DATABASE_DSN
// and applies the schema to a fresh tenant.
func openTestDB(t *testing.T) (*sql.DB, tenancy.TenantID) {
	t.Helper()
	dsn := os.Getenv("ZEITERFASSUNG_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("ZEITERFASSUNG_TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	db, err := OpenDSN(ctx, dsn, Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenDSN() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	// a second run must not fail
	if err := Migrate(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}

	tenant := tenancy.TenantID(fmt.Sprintf("test-%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		for _, table := range []string{"absence", "overtime_account", "working_time", "tenant_user"} {
			db.Exec("DELETE FROM "+table+" WHERE tenant_id = $1", tenant.String())
		}
	})
	return db, tenant
}

func createUser(t *testing.T, repo *UserRepository, tenant tenancy.TenantID, id user.ID) tenancy.TenantUser {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	u, err := repo.Create(context.Background(), tenant, tenancy.TenantUser{
		ID:          id,
		GivenName:   "Alice",
		FamilyName:  "Liddell",
		EMail:       "alice@example.org",
		Authorities: []tenancy.SecurityRole{tenancy.RoleUser},
		Status:      tenancy.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return u
}

func TestUserRepository(t *testing.T) {
	db, tenant := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db, zap.NewNop())

	alice := createUser(t, repo, tenant, "alice")
	if alice.LocalID == 0 {
		t.Fatal("Create() did not assign a local id")
	}

	found, err := repo.FindByID(ctx, tenant, "alice")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found.LocalID != alice.LocalID || found.EMail != "alice@example.org" {
		t.Errorf("FindByID() = %v", found)
	}
	if len(found.Authorities) != 1 || found.Authorities[0] != tenancy.RoleUser {
		t.Errorf("FindByID() authorities = %v", found.Authorities)
	}

	deletedAt := time.Now().UTC().Truncate(time.Second)
	found.Status = tenancy.StatusDeleted
	found.DeletedAt = &deletedAt
	if err := repo.Update(ctx, tenant, found); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	updated, err := repo.FindByLocalID(ctx, tenant, alice.LocalID)
	if err != nil {
		t.Fatalf("FindByLocalID() error = %v", err)
	}
	if updated.Status != tenancy.StatusDeleted || updated.DeletedAt == nil {
		t.Errorf("FindByLocalID() after delete = %+v", updated)
	}

	if _, err := repo.FindByID(ctx, tenant, "nobody"); !errors.Is(err, tenancy.ErrUserNotFound) {
		t.Errorf("FindByID(nobody) error = %v, want ErrUserNotFound", err)
	}
	if err := repo.Update(ctx, tenant, tenancy.TenantUser{LocalID: 999999}); !errors.Is(err, tenancy.ErrUserNotFound) {
		t.Errorf("Update(unknown) error = %v, want ErrUserNotFound", err)
	}
}

func TestWorkingTimeRepository(t *testing.T) {
	db, tenant := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db, zap.NewNop())
	repo := NewWorkingTimeRepository(db, zap.NewNop())

	alice := createUser(t, users, tenant, "alice")
	bob := createUser(t, users, tenant, "bob")

	insert := func(u tenancy.TenantUser, validFrom workingtime.ValidFrom) {
		t.Helper()
		err := repo.Insert(ctx, tenant, workingtime.WorkingTime{
			ID:           uuid.New(),
			User:         u.IDComposite(),
			ValidFrom:    validFrom,
			Pattern:      workingtime.DefaultPattern(),
			FederalState: publicholiday.Berlin,
		})
		if err != nil {
			t.Fatalf("Insert(%s, %s) error = %v", u.ID, validFrom, err)
		}
	}
	insert(alice, workingtime.From(dateutil.Date(2024, time.March, 1)))
	insert(alice, workingtime.Open())
	insert(alice, workingtime.From(dateutil.Date(2024, time.December, 1)))
	insert(bob, workingtime.Open())

	err := repo.Insert(ctx, tenant, workingtime.WorkingTime{
		ID: uuid.New(), User: alice.IDComposite(), ValidFrom: workingtime.From(dateutil.Date(2024, time.March, 1)),
	})
	if !errors.Is(err, workingtime.ErrDuplicateValidFrom) {
		t.Errorf("Insert() duplicate error = %v, want ErrDuplicateValidFrom", err)
	}

	from, to := dateutil.Date(2024, time.July, 1), dateutil.Date(2024, time.August, 1)
	byUser, err := repo.FindByUsers(ctx, tenant, from, to, []user.LocalID{alice.LocalID})
	if err != nil {
		t.Fatalf("FindByUsers() error = %v", err)
	}
	records := byUser[alice.IDComposite()]
	if len(byUser) != 1 || len(records) != 2 {
		t.Fatalf("FindByUsers() = %v, want alice's two records starting before %s", byUser, dateutil.FormatDate(to))
	}
	if !records[0].ValidFrom.IsOpen() || records[1].ValidFrom != workingtime.From(dateutil.Date(2024, time.March, 1)) {
		t.Errorf("FindByUsers() order = %s, %s, want open first", records[0].ValidFrom, records[1].ValidFrom)
	}
	if records[0].Pattern != workingtime.DefaultPattern() || records[0].FederalState != publicholiday.Berlin {
		t.Errorf("FindByUsers() record = %+v", records[0])
	}

	all, err := repo.FindAll(ctx, tenant, from, to)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("FindAll() users = %d, want 2", len(all))
	}

	everything, err := repo.FindByUser(ctx, tenant, alice.LocalID)
	if err != nil {
		t.Fatalf("FindByUser() error = %v", err)
	}
	if len(everything) != 3 {
		t.Fatalf("FindByUser() = %d records, want 3", len(everything))
	}

	if err := repo.Delete(ctx, tenant, everything[2].ID); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, tenant, everything[2].ID); !errors.Is(err, workingtime.ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}
}

func TestAbsenceRepository(t *testing.T) {
	db, tenant := openTestDB(t)
	ctx := context.Background()
	repo := NewAbsenceRepository(db, zap.NewNop())

	holiday := absence.Type{Category: absence.CategoryHoliday, SourceID: 1000}
	write := absence.Write{
		TenantID:  tenant,
		SourceID:  42,
		UserID:    "alice",
		StartDate: dateutil.Date(2024, time.July, 8),
		EndDate:   dateutil.Date(2024, time.July, 12),
		DayLength: absence.Full,
		Type:      holiday,
		Color:     absence.Yellow,
	}
	if err := repo.Upsert(ctx, write); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	write.EndDate = dateutil.Date(2024, time.July, 19)
	if err := repo.Upsert(ctx, write); err != nil {
		t.Fatalf("Upsert() replace error = %v", err)
	}

	found, err := repo.FindByUsers(ctx, tenant, []user.ID{"alice"}, dateutil.Date(2024, time.July, 15), dateutil.Date(2024, time.July, 16))
	if err != nil {
		t.Fatalf("FindByUsers() error = %v", err)
	}
	if len(found) != 1 || !found[0].EndDate.Equal(dateutil.Date(2024, time.July, 19)) {
		t.Errorf("FindByUsers() = %+v, want the replaced absence", found)
	}

	none, err := repo.FindAll(ctx, tenant, dateutil.Date(2024, time.July, 20), dateutil.Date(2024, time.July, 21))
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("FindAll() after the absence = %+v, want none", none)
	}

	deleted, err := repo.Delete(ctx, tenant, 42, holiday)
	if err != nil || deleted != 1 {
		t.Errorf("Delete() = %d, %v, want 1 row", deleted, err)
	}
	deleted, err = repo.Delete(ctx, tenant, 42, holiday)
	if err != nil || deleted != 0 {
		t.Errorf("Delete() twice = %d, %v, want 0 rows", deleted, err)
	}
}

func TestOvertimeAccountRepository(t *testing.T) {
	db, tenant := openTestDB(t)
	ctx := context.Background()
	u := createUser(t, NewUserRepository(db, zap.NewNop()), tenant, "c6a1f0de-5c1e-4a5b-8d4e-3f2a1b0c9d8e")
	repo := NewOvertimeAccountRepository(db, zap.NewNop())

	if _, err := repo.Find(ctx, tenant, u.LocalID); !errors.Is(err, overtime.ErrNotFound) {
		t.Fatalf("Find() before Save error = %v, want overtime.ErrNotFound", err)
	}

	limit := 12*time.Hour + 30*time.Minute
	if err := repo.Save(ctx, tenant, overtime.Account{User: u.LocalID, Allowed: false, MaxAllowed: &limit}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	account, err := repo.Find(ctx, tenant, u.LocalID)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if account.Allowed || account.MaxAllowed == nil || *account.MaxAllowed != limit {
		t.Errorf("Find() = %+v, want not allowed with %s", account, limit)
	}

	if err := repo.Save(ctx, tenant, overtime.Account{User: u.LocalID, Allowed: true}); err != nil {
		t.Fatalf("Save() replace error = %v", err)
	}
	account, err = repo.Find(ctx, tenant, u.LocalID)
	if err != nil || !account.Allowed || account.MaxAllowed != nil {
		t.Errorf("Find() after replace = %+v, %v, want allowed without limit", account, err)
	}
}
