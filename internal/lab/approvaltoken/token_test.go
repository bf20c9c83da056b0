package approvaltoken

import (
	"strings"
	"testing"
	"time"

	"RACE-backend/internal/platform/apierr"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func TestVerifyWindow(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clk := &fakeClock{t: t0}
	s := NewSigner([]byte("k"), 72*time.Hour).WithClock(clk)

	tok, err := s.Issue("B-01TEST")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clk.t = t0.Add(71*time.Hour + 59*time.Minute)
	got, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("verify at 71h59m: %v", err)
	}
	if got != "B-01TEST" {
		t.Fatalf("batch id = %q", got)
	}

	clk.t = t0.Add(72*time.Hour + time.Minute)
	if _, err := s.Verify(tok); !apierr.Is(err, apierr.CodeTokenExpired) {
		t.Fatalf("verify at 72h1m: want TOKEN_EXPIRED, got %v", err)
	}
}

func TestVerifyTampered(t *testing.T) {
	s := NewSigner([]byte("k"), 0)
	tok, err := s.Issue("B-1")
	if err != nil {
		t.Fatal(err)
	}

	other := NewSigner([]byte("other"), 0)
	if _, err := other.Verify(tok); !apierr.Is(err, apierr.CodeTokenInvalid) {
		t.Fatalf("wrong key: want TOKEN_INVALID, got %v", err)
	}

	// 署名部分の途中の1文字を差し替える
	i := strings.LastIndex(tok, ".") + 5
	c := "A"
	if tok[i] == 'A' {
		c = "B"
	}
	bad := tok[:i] + c + tok[i+1:]
	if _, err := s.Verify(bad); !apierr.Is(err, apierr.CodeTokenInvalid) {
		t.Fatalf("tampered: want TOKEN_INVALID, got %v", err)
	}
	if _, err := s.Verify("not-a-token"); !apierr.Is(err, apierr.CodeTokenInvalid) {
		t.Fatalf("garbage: want TOKEN_INVALID, got %v", err)
	}
}
