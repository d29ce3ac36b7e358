package feed

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

const (
	notificationsPath = "/v1/shortcut_state_notifications"
	dictionaryPath    = "/v1/dictionary"

	// DictionaryShortcutStates is the full-state snapshot key served by the
	// poll endpoint; same tag vocabulary as the push feed.
	DictionaryShortcutStates = "shortcut_states"
	// DictionaryDDRTimecode is the per-channel timecode key consumed by the
	// fallback remaining-time arithmetic.
	DictionaryDDRTimecode = "ddr_timecode"
)

// Target is a resolved connection target: the push websocket URL plus the
// poll base for the read-only dictionary endpoint. Credentials ride in the
// websocket URL as percent-encoded user-info and in a basic-auth header on
// the poll path. They are never logged.
type Target struct {
	wsURL    *url.URL
	pollBase *url.URL
	username string
	password string
}

var errEmptyHost = errors.New("connection target has no host")

// ParseTarget resolves "[scheme://][user[:pass]@]host[:port][/]". The scheme
// is optional and normalized to the plain/secure transport pair; plain is the
// default.
func ParseTarget(raw string) (Target, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "/"))
	if trimmed == "" {
		return Target{}, errEmptyHost
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "ws://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return Target{}, err
	}
	if u.Host == "" {
		return Target{}, errEmptyHost
	}

	secure := false
	switch strings.ToLower(u.Scheme) {
	case "ws", "http", "":
	case "wss", "https":
		secure = true
	default:
		return Target{}, errors.New("unsupported scheme: " + u.Scheme)
	}

	t := Target{}
	if u.User != nil {
		t.username = u.User.Username()
		t.password, _ = u.User.Password()
	}

	wsScheme, httpScheme := "ws", "http"
	if secure {
		wsScheme, httpScheme = "wss", "https"
	}
	wsURL := &url.URL{Scheme: wsScheme, Host: u.Host, Path: notificationsPath}
	if t.username != "" {
		wsURL.User = url.UserPassword(t.username, t.password)
	}
	t.wsURL = wsURL
	t.pollBase = &url.URL{Scheme: httpScheme, Host: u.Host, Path: dictionaryPath}
	return t, nil
}

// WebsocketURL is the push endpoint, user-info included.
func (t Target) WebsocketURL() string {
	return t.wsURL.String()
}

// DictionaryURL is the poll endpoint for one dictionary key.
func (t Target) DictionaryURL(key string) string {
	u := *t.pollBase
	u.RawQuery = url.Values{"key": []string{key}}.Encode()
	return u.String()
}

// Host is safe to log.
func (t Target) Host() string {
	return t.wsURL.Host
}

// Authorize attaches basic auth to a poll request when credentials exist.
func (t Target) Authorize(req *http.Request) {
	if t.username != "" {
		req.SetBasicAuth(t.username, t.password)
	}
}

// Identity feeds the connection-identity digest.
func (t Target) Identity() string {
	return t.wsURL.String()
}
