package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	token, expires, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expires) < 50*time.Minute {
		t.Errorf("expiry too soon: %v", expires)
	}

	username, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if username != "alice" {
		t.Errorf("expected alice, got %s", username)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewIssuer("test-secret", -time.Minute)

	token, _, err := issuer.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Error("expired token accepted")
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	token, _, err := NewIssuer("secret-a", time.Hour).Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewIssuer("secret-b", time.Hour).Verify(token); err == nil {
		t.Error("token signed with a different secret accepted")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := issuer.Verify(tok); err == nil {
			t.Errorf("Verify(%q) should fail", tok)
		}
	}
}
