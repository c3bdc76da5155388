package overtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"go.uber.org/zap"
)

const tenant = tenancy.TenantID("acme")

type memoryRepository struct {
	accounts map[user.LocalID]Account
	err      error
}

func (r *memoryRepository) Find(_ context.Context, _ tenancy.TenantID, localID user.LocalID) (Account, error) {
	if r.err != nil {
		return Account{}, r.err
	}
	account, ok := r.accounts[localID]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

func (r *memoryRepository) Save(_ context.Context, _ tenancy.TenantID, account Account) error {
	if r.err != nil {
		return r.err
	}
	r.accounts[account.User] = account
	return nil
}

type knownUsers map[user.LocalID]bool

func (k knownUsers) FindByLocalID(_ context.Context, _ tenancy.TenantID, localID user.LocalID) (tenancy.TenantUser, error) {
	if !k[localID] {
		return tenancy.TenantUser{}, tenancy.ErrUserNotFound
	}
	return tenancy.TenantUser{LocalID: localID}, nil
}

func newTestService() (*Service, *memoryRepository) {
	repo := &memoryRepository{accounts: make(map[user.LocalID]Account)}
	return NewService(repo, knownUsers{1: true, 2: true}, zap.NewNop()), repo
}

func TestService_GetOvertimeAccount(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService()
	limit := 10 * time.Hour
	repo.accounts[2] = Account{User: 2, Allowed: false, MaxAllowed: &limit}

	tests := []struct {
		name        string
		localID     user.LocalID
		wantAllowed bool
		wantMax     *time.Duration
		wantErr     error
	}{
		{"default account", 1, true, nil, nil},
		{"stored account", 2, false, &limit, nil},
		{"unknown user", 9, false, nil, tenancy.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := service.GetOvertimeAccount(ctx, tenant, tt.localID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetOvertimeAccount() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetOvertimeAccount() error = %v", err)
			}
			if account.User != tt.localID || account.Allowed != tt.wantAllowed {
				t.Errorf("GetOvertimeAccount() = %+v", account)
			}
			if (account.MaxAllowed == nil) != (tt.wantMax == nil) || (tt.wantMax != nil && *account.MaxAllowed != *tt.wantMax) {
				t.Errorf("MaxAllowed = %v, want %v", account.MaxAllowed, tt.wantMax)
			}
		})
	}
}

func TestService_UpdateOvertimeAccount(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService()

	limit := 20 * time.Hour
	updated, err := service.UpdateOvertimeAccount(ctx, tenant, 1, false, &limit)
	if err != nil {
		t.Fatalf("UpdateOvertimeAccount() error = %v", err)
	}
	limit = time.Hour
	if updated.Allowed || updated.MaxAllowed == nil || *updated.MaxAllowed != 20*time.Hour {
		t.Errorf("UpdateOvertimeAccount() = %+v, want not allowed with 20h, independent of the caller's value", updated)
	}

	account, err := service.GetOvertimeAccount(ctx, tenant, 1)
	if err != nil || account.Allowed || *account.MaxAllowed != 20*time.Hour {
		t.Errorf("GetOvertimeAccount() after update = %+v, %v", account, err)
	}

	if _, err := service.UpdateOvertimeAccount(ctx, tenant, 1, true, nil); err != nil {
		t.Fatalf("UpdateOvertimeAccount() without limit error = %v", err)
	}
	if stored := repo.accounts[1]; !stored.Allowed || stored.MaxAllowed != nil {
		t.Errorf("stored account = %+v, want allowed without limit", stored)
	}

	negative := -time.Hour
	if _, err := service.UpdateOvertimeAccount(ctx, tenant, 1, true, &negative); !errors.Is(err, ErrInvalidMaxAllowed) {
		t.Errorf("UpdateOvertimeAccount(negative) error = %v, want ErrInvalidMaxAllowed", err)
	}
	if _, err := service.UpdateOvertimeAccount(ctx, tenant, 9, true, nil); !errors.Is(err, tenancy.ErrUserNotFound) {
		t.Errorf("UpdateOvertimeAccount(unknown user) error = %v, want ErrUserNotFound", err)
	}

	repo.err = errors.New("connection reset")
	if _, err := service.UpdateOvertimeAccount(ctx, tenant, 2, true, nil); err == nil {
		t.Error("UpdateOvertimeAccount() should fail when the repository fails")
	}
}
