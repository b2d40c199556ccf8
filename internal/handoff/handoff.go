package handoff

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rampforge/sellbot/internal/domain"
)

// Config holds handoff link settings.
type Config struct {
	// BaseURL is the public root of the wallet-connect web app.
	BaseURL string `yaml:"base_url" envconfig:"HANDOFF_BASE_URL"`
	// TTLHours bounds how long a handoff link may be redeemed;
	// 0 disables expiry.
	TTLHours int `yaml:"ttl_hours" envconfig:"HANDOFF_TTL_HOURS"`
}

// TTL returns the configured link lifetime.
func (c Config) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// BuildURL composes the wallet-connect link handed to the user after the
// wizard commits a session: <base>/connect?userId=<id>&session=<sessionId>.
func BuildURL(base string, userID int64, sessionID string) string {
	return strings.TrimRight(base, "/") + "/connect?userId=" +
		strconv.FormatInt(userID, 10) + "&session=" + url.QueryEscape(sessionID)
}

// Expired reports whether a session's handoff link has outlived ttl.
// Zero ttl means links never expire.
func Expired(s *domain.SellSession, ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.CreatedAt) > ttl
}

// ParseConnectParams extracts and validates the handoff identifiers from
// query values, shared by the session lookup endpoint.
func ParseConnectParams(q url.Values) (userID int64, sessionID string, err error) {
	rawUser := strings.TrimSpace(q.Get("userId"))
	sessionID = strings.TrimSpace(q.Get("session"))
	if rawUser == "" || sessionID == "" {
		return 0, "", fmt.Errorf("handoff: userId and session are required")
	}
	userID, err = strconv.ParseInt(rawUser, 10, 64)
	if err != nil || userID <= 0 {
		return 0, "", fmt.Errorf("handoff: invalid userId %q", rawUser)
	}
	return userID, sessionID, nil
}
