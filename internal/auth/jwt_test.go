package auth

import (
	"strings"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenService(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Error("NewTokenService() should reject secrets shorter than 16 chars")
	}
	if _, err := NewTokenService("this-is-16-chars"); err != nil {
		t.Errorf("NewTokenService() unexpected error for valid secret: %v", err)
	}
}

func TestGenerate(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("ci-runner", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// header.payload.signature
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("Generate() token has %d dots, want 2", got)
	}

	other, _ := ts.Generate("laptop", time.Hour)
	if token == other {
		t.Error("Generate() returned identical tokens for different subjects")
	}

	if _, err := ts.Generate("  ", time.Hour); err == nil {
		t.Error("Generate() should reject an empty subject")
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("ci-runner", 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != "ci-runner" {
		t.Errorf("Validate() subject = %q, want %q", got, "ci-runner")
	}
}

func TestValidate_DefaultTTL(t *testing.T) {
	ts := newTestTokenService(t)
	start := time.Now()

	token, _ := ts.Generate("ci-runner", 0)

	ts.now = func() time.Time { return start.Add(DefaultTTL - time.Minute) }
	if _, err := ts.Validate(token); err != nil {
		t.Errorf("token should still be valid before DefaultTTL: %v", err)
	}

	ts.now = func() time.Time { return start.Add(DefaultTTL + time.Minute) }
	if _, err := ts.Validate(token); err == nil {
		t.Error("token should be expired after DefaultTTL")
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("ci-runner", time.Hour)
	expired, _ := ts.Generate("ci-runner", -time.Second)

	other, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!")
	foreign, _ := other.Generate("ci-runner", time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired},
		{name: "tampered signature", token: valid[:len(valid)-3] + "xxx"},
		{name: "wrong secret", token: foreign},
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Errorf("Validate(%s) should fail", tt.name)
			}
		})
	}
}
