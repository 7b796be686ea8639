package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/referral"
	"tier-rewards-go/internal/store"
	"tier-rewards-go/internal/tiers"
)

const overrideSecret = "open-sesame"

func setupService(t *testing.T, secret string) (*Service, *store.MemoryStore) {
	t.Helper()
	records := store.NewMemoryStore()
	tokens := NewTokenManager("test-secret", "tier-rewards-test", time.Hour)
	return NewService(records, tokens, tiers.DefaultCatalog(), secret), records
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		confirm  string
		referral string
		want     error
	}{
		{"short username", "al", "pw1234", "pw1234", "", ErrInvalidUsername},
		{"padded short username", "  ab  ", "pw1234", "pw1234", "", ErrInvalidUsername},
		{"mismatched passwords", "alice", "pw1234", "pw12345", "", ErrPasswordMismatch},
		{"empty password", "alice", "  ", "", "", ErrEmptyPassword},
		{"unknown referral", "alice", "pw1234", "pw1234", "NOPE00", referral.ErrUnknownReferralCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, records := setupService(t, "")
			_, err := s.Register(context.Background(), tt.username, tt.password, tt.confirm, tt.referral)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			users, _ := records.GetUsers(context.Background())
			if len(users) != 0 {
				t.Errorf("failed registration stored %d users", len(users))
			}
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s, _ := setupService(t, "")
	ctx := context.Background()

	parent, err := s.Register(ctx, "parent", "pw1234", "pw1234", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if len(parent.User.ReferralCode) != 6 || parent.User.IsAdmin {
		t.Errorf("unexpected new user %+v", parent.User)
	}
	if parent.User.PasswordHash == "pw1234" || parent.User.PasswordHash == "" {
		t.Errorf("password not hashed")
	}

	child, err := s.Register(ctx, " child ", "secret", "secret", parent.User.ReferralCode)
	if err != nil {
		t.Fatalf("Register child failed: %v", err)
	}
	if child.User.Username != "child" || child.User.ReferredBy != parent.User.ReferralCode {
		t.Errorf("unexpected child %+v", child.User)
	}

	if _, err := s.Register(ctx, "CHILD", "x12345", "x12345", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}

	grant, err := s.Login(ctx, "Child", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	claims, err := s.Tokens().Parse(grant.Token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UserId != child.User.Id || claims.IsAdmin() {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := s.Login(ctx, "child", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Login(ctx, "nobody", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for missing user, got %v", err)
	}
}

func TestMasterCredentialDisabledByDefault(t *testing.T) {
	s, _ := setupService(t, "")
	if _, err := s.Login(context.Background(), "admin", overrideSecret); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestMasterCredential(t *testing.T) {
	s, records := setupService(t, overrideSecret)
	ctx := context.Background()

	grant, err := s.Login(ctx, "boss", overrideSecret)
	if err != nil {
		t.Fatalf("master login failed: %v", err)
	}
	u := grant.User
	if !u.IsAdmin || u.ReferralCode != "MASTER" || u.Balance.IntPart() != 100 || !u.HasTier(1) {
		t.Errorf("unexpected master account %+v", u)
	}
	if u.TierUnlockDates[1] != models.DateOf(time.Now()) {
		t.Errorf("tier 1 unlock date = %q", u.TierUnlockDates[1])
	}

	member, err := s.Register(ctx, "member", "pw1234", "pw1234", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	promoted, err := s.Login(ctx, "member", overrideSecret)
	if err != nil {
		t.Fatalf("master login of member failed: %v", err)
	}
	if !promoted.User.IsAdmin {
		t.Errorf("member not promoted")
	}
	stored, _ := records.GetUserById(ctx, member.User.Id)
	if !stored.IsAdmin {
		t.Errorf("promotion not persisted")
	}

	admin, err := s.Register(ctx, "newadmin", overrideSecret, "", "")
	if err != nil {
		t.Fatalf("master registration failed: %v", err)
	}
	if !admin.User.IsAdmin {
		t.Errorf("master registration not admin")
	}
}

func TestPromoteAdmin(t *testing.T) {
	s, _ := setupService(t, "")
	ctx := context.Background()
	grant, _ := s.Register(ctx, "alice", "pw1234", "pw1234", "")

	u, err := s.PromoteAdmin(ctx, grant.User.Id)
	if err != nil || !u.IsAdmin {
		t.Fatalf("PromoteAdmin: %v %+v", err, u)
	}
	if _, err := s.PromoteAdmin(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	relog, _ := s.Login(ctx, "alice", "pw1234")
	claims, _ := s.Tokens().Parse(relog.Token)
	if !claims.IsAdmin() {
		t.Errorf("expected admin role claim")
	}
}

func TestTokenRejections(t *testing.T) {
	tokens := NewTokenManager("secret-a", "issuer", time.Minute)
	user := models.NewUser("u1", "alice", "AAAAAA", "", time.Now())
	raw, err := tokens.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	other := NewTokenManager("secret-b", "issuer", time.Minute)
	if _, err := other.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: expected ErrInvalidToken, got %v", err)
	}
	wrongIssuer := NewTokenManager("secret-a", "someone-else", time.Minute)
	if _, err := wrongIssuer.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong issuer: expected ErrInvalidToken, got %v", err)
	}

	expired := NewTokenManager("secret-a", "issuer", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := expired.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired: expected ErrInvalidToken, got %v", err)
	}
	if _, err := tokens.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: expected ErrInvalidToken, got %v", err)
	}
}
