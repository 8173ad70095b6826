package service

import (
	"context"
	"testing"

	"github.com/helpdesk-io/support-service/internal/auth"
	"github.com/helpdesk-io/support-service/internal/domain"
)

func seedUser(t *testing.T, repo *memUserRepo, name, email string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("initial", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestUserUpdate(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewUserService(repo, 4)
	ctx := context.Background()

	user := seedUser(t, repo, "Dana", "dana@example.com", domain.RoleClient)
	seedUser(t, repo, "Lee", "lee@example.com", domain.RoleTechnician)

	tech := domain.RoleTechnician
	updated, err := svc.Update(ctx, user.ID, UserUpdateInput{
		Name: strptr("Dana Q"),
		Role: &tech,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Dana Q" || updated.Role != domain.RoleTechnician {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Email != "dana@example.com" {
		t.Errorf("untouched field changed: %s", updated.Email)
	}

	_, err = svc.Update(ctx, user.ID, UserUpdateInput{Email: strptr("lee@example.com")})
	wantDomainCode(t, err, "CONFLICT")

	bad := domain.Role("SUPERUSER")
	_, err = svc.Update(ctx, user.ID, UserUpdateInput{Role: &bad})
	wantDomainCode(t, err, "VALIDATION_FAILED")

	_, err = svc.Update(ctx, user.ID, UserUpdateInput{Name: strptr("  ")})
	wantDomainCode(t, err, "VALIDATION_FAILED")

	_, err = svc.Update(ctx, "missing", UserUpdateInput{})
	wantDomainCode(t, err, "NOT_FOUND")
}

func TestUserUpdateRehashesPassword(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewUserService(repo, 4)
	ctx := context.Background()

	user := seedUser(t, repo, "Dana", "dana@example.com", domain.RoleClient)

	updated, err := svc.Update(ctx, user.ID, UserUpdateInput{Password: strptr("rotated")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PasswordHash == "rotated" {
		t.Fatal("password stored in the clear")
	}
	if err := auth.ComparePassword(updated.PasswordHash, "rotated"); err != nil {
		t.Errorf("new password does not verify: %v", err)
	}
	if err := auth.ComparePassword(updated.PasswordHash, "initial"); err == nil {
		t.Error("old password still verifies")
	}
}

func TestUserListAndDelete(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewUserService(repo, 4)
	ctx := context.Background()

	user := seedUser(t, repo, "Dana", "dana@example.com", domain.RoleClient)
	seedUser(t, repo, "Lee", "lee@example.com", domain.RoleTechnician)

	users, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("want 2 users, got %d", len(users))
	}

	if err := svc.Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = svc.GetByID(ctx, user.ID)
	wantDomainCode(t, err, "NOT_FOUND")

	err = svc.Delete(ctx, user.ID)
	wantDomainCode(t, err, "NOT_FOUND")
}
