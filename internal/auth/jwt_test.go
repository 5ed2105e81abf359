package auth

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("test-secret")

	token, err := tokens.Generate(42, "superuser")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	principal, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if principal.UserID != 42 {
		t.Fatalf("UserID = %d, want 42", principal.UserID)
	}

	if principal.Role != "superuser" {
		t.Fatalf("Role = %q, want superuser", principal.Role)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a").Generate(1, "user")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := NewTokenManager("secret-b").Verify(token); err == nil {
		t.Fatal("expected verification failure with a different secret")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	if _, err := NewTokenManager("secret").Verify("not-a-token"); err == nil {
		t.Fatal("expected verification failure for malformed token")
	}
}
