package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ukko/internal/weather"
)

type fakeAuthorizer struct{}

func (fakeAuthorizer) AuthorizeURL(redirect, state string) string {
	return "https://auth.example/authorize?redirect_uri=" + redirect + "&state=" + state
}

var stateRe = regexp.MustCompile(`state=([a-z0-9]+)`)

func get(t *testing.T, s *Server, target string) (int, string) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Host = "ukko.local:8080"
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthorizationFlow(t *testing.T) {
	var events []weather.AuthEvent
	s := New(":0", "", fakeAuthorizer{}, func(ev weather.AuthEvent) { events = append(events, ev) }, zaptest.NewLogger(t))

	status, body := get(t, s, "/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "redirect_uri=http://ukko.local:8080")

	m := stateRe.FindStringSubmatch(body)
	require.Len(t, m, 2)

	status, _ = get(t, s, "/?code=qwerty&state="+m[1])
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []weather.AuthEvent{{Code: "qwerty", Redirect: "http://ukko.local:8080"}}, events)

	status, _ = get(t, s, "/?code=qwerty&state="+m[1])
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Len(t, events, 1)
}

func TestUnknownState(t *testing.T) {
	called := false
	s := New(":0", "", fakeAuthorizer{}, func(weather.AuthEvent) { called = true }, zaptest.NewLogger(t))

	status, _ := get(t, s, "/?code=qwerty&state=forged")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, called)
}

func TestExpiredState(t *testing.T) {
	called := false
	s := New(":0", "ukko:8080", fakeAuthorizer{}, func(weather.AuthEvent) { called = true }, zaptest.NewLogger(t))
	issued := time.Now()
	s.now = func() time.Time { return issued }

	_, body := get(t, s, "/")
	assert.Contains(t, body, "redirect_uri=http://ukko:8080")
	m := stateRe.FindStringSubmatch(body)
	require.Len(t, m, 2)

	s.now = func() time.Time { return issued.Add(2 * stateTTL) }
	status, _ := get(t, s, "/?code=qwerty&state="+m[1])
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, called)
}

func TestHealth(t *testing.T) {
	s := New(":0", "", fakeAuthorizer{}, func(weather.AuthEvent) {}, zaptest.NewLogger(t))

	status, body := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}
