package handoff

import (
	"net/url"
	"testing"
	"time"

	"github.com/rampforge/sellbot/internal/domain"
)

func TestBuildURL(t *testing.T) {
	got := BuildURL("https://sell.example.com", 42, "abc-123")
	want := "https://sell.example.com/connect?userId=42&session=abc-123"
	if got != want {
		t.Errorf("BuildURL = %q, want %q", got, want)
	}

	// A trailing slash on the base must not double up.
	got = BuildURL("https://sell.example.com/", 42, "abc-123")
	if got != want {
		t.Errorf("BuildURL with trailing slash = %q, want %q", got, want)
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	s := &domain.SellSession{CreatedAt: now.Add(-2 * time.Hour)}

	if Expired(s, 0, now) {
		t.Error("zero ttl must never expire")
	}
	if Expired(s, 3*time.Hour, now) {
		t.Error("session within ttl reported expired")
	}
	if !Expired(s, time.Hour, now) {
		t.Error("session past ttl not reported expired")
	}
}

func TestParseConnectParams(t *testing.T) {
	q := url.Values{"userId": {"42"}, "session": {"abc"}}
	userID, sessionID, err := ParseConnectParams(q)
	if err != nil {
		t.Fatalf("ParseConnectParams: %v", err)
	}
	if userID != 42 || sessionID != "abc" {
		t.Errorf("got userID=%d session=%q", userID, sessionID)
	}

	bad := []url.Values{
		{"session": {"abc"}},
		{"userId": {"42"}},
		{"userId": {"abc"}, "session": {"abc"}},
		{"userId": {"-1"}, "session": {"abc"}},
		{},
	}
	for _, q := range bad {
		if _, _, err := ParseConnectParams(q); err == nil {
			t.Errorf("expected error for %v", q)
		}
	}
}
