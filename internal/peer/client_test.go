package peer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/peer"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": data}))
}

func TestUserClient_GetUser_RelaysToken(t *testing.T) {
	t.Parallel()

	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		writeEnvelope(t, w, http.StatusOK, map[string]any{
			"username": "bob",
			"email":    "bob@example.com",
			"role":     "MEMBER",
			"active":   true,
		})
	}))
	defer srv.Close()

	c := peer.NewUserClient(srv.URL, time.Second, zap.NewNop())
	u, err := c.GetUser(context.Background(), "caller-token", "bob")
	require.NoError(t, err)

	assert.Equal(t, "Bearer caller-token", gotAuth)
	assert.Equal(t, "/users/bob", gotPath)
	assert.Equal(t, "bob", u.Username)
	assert.True(t, u.Active)
}

func TestTeamClient_GetTeam_DecodesMembers(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teams/abc", r.URL.Path)
		writeEnvelope(t, w, http.StatusOK, map[string]any{
			"id":         "abc",
			"name":       "core",
			"leader_id":  "lead",
			"member_ids": []string{"lead", "bob"},
		})
	}))
	defer srv.Close()

	c := peer.NewTeamClient(srv.URL, time.Second, zap.NewNop())
	team, err := c.GetTeam(context.Background(), "tok", "abc")
	require.NoError(t, err)
	assert.Equal(t, "lead", team.LeaderID)
	assert.Equal(t, []string{"lead", "bob"}, team.MemberIDs)
}

func TestClient_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: peer.ErrNotFound},
		{name: "forbidden", status: http.StatusForbidden, wantErr: peer.ErrForbidden},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: peer.ErrUnauthorized},
		{name: "bad request", status: http.StatusBadRequest, wantErr: peer.ErrBadRequest},
		{name: "server error", status: http.StatusInternalServerError, wantErr: peer.ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"data":null,"error":{"code":"X","message":"boom"}}`))
			}))
			defer srv.Close()

			c := peer.NewUserClient(srv.URL, time.Second, zap.NewNop())
			_, err := c.GetUser(context.Background(), "tok", "bob")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := peer.NewUserClient(url, time.Second, zap.NewNop())
	_, err := c.GetUser(context.Background(), "tok", "bob")
	assert.ErrorIs(t, err, peer.ErrUnreachable)
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := peer.NewTeamClient(srv.URL, 50*time.Millisecond, zap.NewNop())
	_, err := c.GetTeam(context.Background(), "tok", "abc")
	assert.ErrorIs(t, err, peer.ErrUnreachable)
}

func TestClient_MalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := peer.NewUserClient(srv.URL, time.Second, zap.NewNop())
	_, err := c.GetUser(context.Background(), "tok", "bob")
	assert.ErrorIs(t, err, peer.ErrUnexpectedStatus)
}

func TestTaskClient_CleanupTeam(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := peer.NewTaskClient(srv.URL, time.Second, zap.NewNop())
	require.NoError(t, c.CleanupTeam(context.Background(), "tok", "abc"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/tasks/internal/cleanup-team/abc", gotPath)
}

func TestUserClient_GetUser_EscapesUsername(t *testing.T) {
	t.Parallel()

	var gotRaw []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRaw = append(gotRaw, r.URL.EscapedPath())
		writeEnvelope(t, w, http.StatusNotFound, nil)
	}))
	defer srv.Close()

	c := peer.NewUserClient(srv.URL+"/api/", time.Second, zap.NewNop())

	for _, name := range []string{"x/../me", "a/b", "bob"} {
		_, err := c.GetUser(context.Background(), "tok", name)
		assert.ErrorIs(t, err, peer.ErrNotFound, name)
	}
	assert.Equal(t, []string{"/api/users/x%2F..%2Fme", "/api/users/a%2Fb", "/api/users/bob"}, gotRaw)
}

func TestUserClient_GetUser_RejectsDotSegments(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := peer.NewUserClient(srv.URL, time.Second, zap.NewNop())
	for _, name := range []string{"", ".", ".."} {
		_, err := c.GetUser(context.Background(), "tok", name)
		assert.ErrorIs(t, err, peer.ErrInvalidSegment, "%q", name)
	}
	assert.False(t, called)
}
