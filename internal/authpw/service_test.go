package authpw

import (
	"context"
	"errors"
	"testing"

	"breakroom/api/internal/store"
)

// mockUserStore is a map-backed UserStore for testing.
type mockUserStore struct {
	users map[string]store.User // keyed by username
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]store.User)}
}

func (m *mockUserStore) GetUserByUsername(ctx context.Context, username string) (store.User, error) {
	if user, ok := m.users[username]; ok {
		return user, nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) CreateUser(ctx context.Context, user store.User) error {
	m.users[user.Username] = user
	return nil
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpRequest{Username: "casey", Password: "long-enough-pw"})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if user.Role != "member" {
		t.Fatalf("new accounts must be members, got %q", user.Role)
	}
	if user.PasswordHash == "long-enough-pw" {
		t.Fatal("password stored unhashed")
	}

	signedIn, err := svc.SignIn(ctx, SignInRequest{Username: "casey", Password: "long-enough-pw"})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if signedIn.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, signedIn.ID)
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	svc := NewService(newMockUserStore())
	if _, err := svc.SignUp(context.Background(), SignUpRequest{Username: "casey", Password: "short"}); err == nil {
		t.Fatal("expected short password to be rejected")
	}
}

func TestSignUpRejectsDuplicateUsername(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{Username: "casey", Password: "long-enough-pw"}); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	_, err := svc.SignUp(ctx, SignUpRequest{Username: "casey", Password: "another-long-pw"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{Username: "casey", Password: "long-enough-pw"}); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	_, err := svc.SignIn(ctx, SignInRequest{Username: "casey", Password: "wrong-password"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// Unknown usernames fail the same way.
	_, err = svc.SignIn(ctx, SignInRequest{Username: "nobody", Password: "long-enough-pw"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
