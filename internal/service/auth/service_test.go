package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zacharykka/prompt-lab/internal/config"
	"github.com/zacharykka/prompt-lab/internal/domain"
)

type fakeUserRepo struct {
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[string]*domain.User),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if _, ok := r.byEmail[user.Email]; ok {
		return errors.New("duplicate email")
	}
	clone := *user
	r.byEmail[user.Email] = &clone
	r.byID[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id string) error {
	user, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now
	return nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:  "unit-test-access-secret-0123456789abcdef",
		RefreshTokenSecret: "unit-test-refresh-secret-0123456789abcdef",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testAuthConfig(), nil)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "Alice@Example.com", "password123", "editor")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}
	if user.Role != "editor" {
		t.Fatalf("expected editor role, got %s", user.Role)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}

	if _, _, err := svc.Register(ctx, "alice@example.com", "password123", ""); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	logged, _, err := svc.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("expected same user, got %s vs %s", logged.ID, user.ID)
	}
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testAuthConfig(), nil)

	if _, _, err := svc.Register(context.Background(), "", "password123", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty email, got %v", err)
	}
	if _, _, err := svc.Register(context.Background(), "bob@example.com", "short", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for short password, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, testAuthConfig(), nil)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "carol@example.com", "password123", "viewer")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	renewed, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if renewed.AccessToken == "" {
		t.Fatal("expected new access token")
	}

	// 访问令牌不能当作刷新令牌使用。
	if _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	repo.byID[user.ID].Status = "disabled"
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
}
