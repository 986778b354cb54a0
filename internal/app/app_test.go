package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"GuardianAngel/internal/fakebackend"
	"GuardianAngel/internal/models"
	"GuardianAngel/internal/router"
	"GuardianAngel/pkg/config"
	apperrors "GuardianAngel/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backend(t *testing.T) *fakebackend.Server {
	srv := fakebackend.New(t)
	srv.Handle(http.MethodPost, "/auth/login", func(c *gin.Context) {
		fakebackend.OK(c, gin.H{
			"user":   gin.H{"_id": "u1", "email": "ada@example.com", "role": "user"},
			"tokens": gin.H{"accessToken": "user-token"},
		})
	})
	srv.Handle(http.MethodGet, "/alert/user-alerts", fakebackend.RequireBearer("user-token"), func(c *gin.Context) {
		fakebackend.OK(c, []gin.H{{"_id": "a1", "status": "resolved", "type": "panic", "createdAt": "2026-01-12T10:00:00.000Z"}})
	})
	srv.Handle(http.MethodGet, "/trusted-location", func(c *gin.Context) {
		fakebackend.Fail(c, http.StatusUnauthorized, "jwt expired")
	})
	return srv
}

func testConfig(srv *fakebackend.Server, store, db string) *config.Config {
	cfg := config.FromEnv()
	cfg.BaseURL = srv.BaseURL()
	cfg.RequestTimeout = time.Second
	cfg.SessionStore = store
	cfg.SessionDB = db
	cfg.RefreshMinDelay = 0
	cfg.MetricsEnabled = true
	cfg.Language = "en"
	return cfg
}

func TestAppLifecycle(t *testing.T) {
	srv := backend(t)
	db := filepath.Join(t.TempDir(), "guardian.db")
	ctx := context.Background()

	a, err := New(ctx, testConfig(srv, "sqlite", db))
	require.NoError(t, err)
	assert.Equal(t, router.ScreenLogin, a.Navigator.Screen())
	assert.Equal(t, apperrors.CodeNotAuthenticated, apperrors.GetCode(a.Refresh(ctx)))

	_, err = a.Session.Login(ctx, "ada@example.com", "secret123", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, router.ScreenUserTabs, a.Navigator.Screen())

	require.NoError(t, a.Refresh(ctx))
	assert.Len(t, a.Incidents.Alerts(), 1)
	require.NoError(t, a.Close())

	// session survives a restart
	b, err := New(ctx, testConfig(srv, "sqlite", db))
	require.NoError(t, err)
	defer b.Close()
	assert.True(t, b.Session.IsAuthenticated())
	assert.Equal(t, router.ScreenUserTabs, b.Navigator.Screen())

	// a 401 on an authenticated call signs the user out
	require.NoError(t, b.Navigator.SelectTab(router.TabLocations))
	err = b.Refresh(ctx)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.False(t, b.Session.IsAuthenticated())
	assert.Equal(t, router.ScreenLogin, b.Navigator.Screen())
	assert.NotEmpty(t, b.Message(err))
}

func TestUnknownStore(t *testing.T) {
	srv := backend(t)
	_, err := New(context.Background(), testConfig(srv, "redis", ""))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestWatchStopsWithContext(t *testing.T) {
	srv := backend(t)
	cfg := testConfig(srv, "memory", "")
	cfg.WatchSchedule = "@every 1s"
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	ticks := make(chan error, 4)
	require.NoError(t, a.Watch(ctx, func(err error) { ticks <- err }))
	require.NotEmpty(t, ticks)
	assert.Equal(t, apperrors.CodeNotAuthenticated, apperrors.GetCode(<-ticks))

	cfg.WatchSchedule = "not a schedule"
	assert.Error(t, a.Watch(context.Background(), nil))
}

func TestMetricsRouterExportsCounters(t *testing.T) {
	srv := backend(t)
	a, err := New(context.Background(), testConfig(srv, "memory", ""))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Session.Login(context.Background(), "ada@example.com", "secret123", "Patient")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.MetricsRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `guardian_client_requests_total{method="POST",route="auth.login",status="200"} 1`)
	assert.Contains(t, body, `guardian_session_events_total{event="logged_in"} 1`)
}

func TestWatchFailsWhenMetricsAddrIsBusy(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	srv := backend(t)
	cfg := testConfig(srv, "memory", "")
	cfg.MetricsAddr = busy.Addr().String()
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, a.Watch(ctx, nil))
}
