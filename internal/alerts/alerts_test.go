package alerts

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"GuardianAngel/internal/fakebackend"
	"GuardianAngel/internal/models"
	"GuardianAngel/pkg/apiclient"
	apperrors "GuardianAngel/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) AuthToken() string { return string(s) }

func alertJSON(id string, status models.AlertStatus, typ models.AlertType, created string) gin.H {
	return gin.H{
		"_id":       id,
		"userId":    "u1",
		"status":    status,
		"type":      typ,
		"location":  gin.H{"type": "Point", "coordinates": []float64{3.39, 6.45}, "accuracy": 15, "address": "Marina"},
		"createdAt": created,
		"updatedAt": created,
	}
}

// responderBackend keeps a mutable list so that writes are observable through re-fetches.
type responderBackend struct {
	mu     sync.Mutex
	alerts []gin.H
}

func (b *responderBackend) setStatus(id string, status models.AlertStatus) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.alerts {
		if a["_id"] == id {
			a["status"] = status
			return true
		}
	}
	return false
}

func newResponderBackend(t *testing.T) (*fakebackend.Server, *responderBackend) {
	srv := fakebackend.New(t)
	b := &responderBackend{alerts: []gin.H{
		alertJSON("a1", models.StatusActive, models.AlertTypePanic, "2026-01-12T10:00:00.000Z"),
		alertJSON("a2", models.StatusResolved, models.AlertTypeManual, "2026-01-12T11:00:00.000Z"),
		alertJSON("a3", models.StatusCancelled, models.AlertTypePanic, "2026-01-12T09:00:00.000Z"),
		alertJSON("a4", models.StatusOnScene, models.AlertTypeManual, "2026-01-12T12:00:00.000Z"),
	}}
	auth := fakebackend.RequireBearer("resp-token")
	srv.Handle(http.MethodGet, "/responder/alerts/assigned-alerts", auth, func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		fakebackend.OK(c, b.alerts)
	})
	action := func(status models.AlertStatus) gin.HandlerFunc {
		return func(c *gin.Context) {
			if !b.setStatus(c.Param("id"), status) {
				fakebackend.Fail(c, http.StatusNotFound, "Alert not found")
				return
			}
			fakebackend.OK(c, gin.H{"_id": c.Param("id"), "status": status})
		}
	}
	srv.Handle(http.MethodPost, "/responder/alerts/acknowledge/:id", auth, action(models.StatusAcknowledged))
	srv.Handle(http.MethodPost, "/responder/alerts/resolve/:id", auth, action(models.StatusResolved))
	srv.Handle(http.MethodPost, "/responder/alerts/cancel/:id", auth, action(models.StatusCancelled))
	return srv, b
}

func TestAcknowledgeRefetchesExactlyOnce(t *testing.T) {
	srv, _ := newResponderBackend(t)
	client := NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("resp-token"))
	d := NewDashboard(client)

	require.NoError(t, d.Refresh(context.Background()))
	require.Equal(t, 1, srv.Count(http.MethodGet, "/responder/alerts/assigned-alerts"))

	require.NoError(t, d.Acknowledge(context.Background(), "a1"))
	assert.Equal(t, 2, srv.Count(http.MethodGet, "/responder/alerts/assigned-alerts"))
	assert.Equal(t, 1, srv.Count(http.MethodPost, "/responder/alerts/acknowledge/a1"))

	for _, a := range d.All() {
		if a.ID == "a1" {
			assert.Equal(t, models.StatusAcknowledged, a.Status)
		}
	}
}

func TestFailedActionDoesNotRefetch(t *testing.T) {
	srv, _ := newResponderBackend(t)
	d := NewDashboard(NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("resp-token")))
	require.NoError(t, d.Refresh(context.Background()))

	err := d.Resolve(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, 1, srv.Count(http.MethodGet, "/responder/alerts/assigned-alerts"))
	assert.Len(t, d.All(), 4)
}

func TestCancelSendsReason(t *testing.T) {
	srv, _ := newResponderBackend(t)
	d := NewDashboard(NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("resp-token")))

	require.NoError(t, d.Cancel(context.Background(), "a4", "patient transported"))
	hit, ok := srv.Last(http.MethodPost, "/responder/alerts/cancel/a4")
	require.True(t, ok)
	assert.Equal(t, "patient transported", hit.Body["reason"])
	assert.Equal(t, 1, srv.Count(http.MethodGet, "/responder/alerts/assigned-alerts"))
}

func TestDashboardPartitionsAndFilters(t *testing.T) {
	srv, _ := newResponderBackend(t)
	d := NewDashboard(NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("resp-token")))
	require.NoError(t, d.Refresh(context.Background()))

	ids := func(list []models.Alert) []string {
		var out []string
		for _, a := range list {
			out = append(out, a.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a4", "a1"}, ids(d.Active()))
	assert.Equal(t, []string{"a2", "a3"}, ids(d.History()))
	assert.Equal(t, []string{"a4", "a2", "a1", "a3"}, ids(d.Visible()))

	d.SetTypeFilter(TypePanic)
	assert.Equal(t, []string{"a1", "a3"}, ids(d.Visible()))

	d.SetFilter(FilterCancelled)
	assert.Equal(t, []string{"a3"}, ids(d.Visible()))

	d.SetFilter(FilterAll)
	d.SetTypeFilter(TypeAll)
	assert.False(t, d.ToggleSort())
	assert.Equal(t, []string{"a3", "a1", "a2", "a4"}, ids(d.Visible()))

	assert.Equal(t, Stats{Total: 4, Active: 2, Resolved: 1, Cancelled: 1}, d.Stats())
}

func TestSortAlertsIsStable(t *testing.T) {
	ts := models.NewTimestamp(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	list := []models.Alert{
		{ID: "x", CreatedAt: ts},
		{ID: "newer", CreatedAt: models.NewTimestamp(ts.Add(time.Hour))},
		{ID: "y", CreatedAt: ts},
		{ID: "z", CreatedAt: ts},
	}
	SortAlerts(list, true)
	assert.Equal(t, "newer", list[0].ID)
	assert.Equal(t, []string{"x", "y", "z"}, []string{list[1].ID, list[2].ID, list[3].ID})
}

func TestPanicWithoutLocationMakesNoRequest(t *testing.T) {
	srv := fakebackend.New(t)
	client := NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("user-token"))

	_, err := client.SendPanicAlert(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Equal(t, apperrors.CodeLocationUnavailable, apperrors.GetCode(err))
	assert.Empty(t, srv.Hits())
}

func TestPanicRequiresToken(t *testing.T) {
	srv := fakebackend.New(t)
	client := NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken(""))
	_, err := client.SendPanicAlert(context.Background(), &models.LocationFix{Latitude: 6.45, Longitude: 3.39})
	assert.Equal(t, apperrors.CodeNotAuthenticated, apperrors.GetCode(err))
	assert.Empty(t, srv.Hits())
}

func panicBackend(t *testing.T) *fakebackend.Server {
	srv := fakebackend.New(t)
	srv.Handle(http.MethodPost, "/alert/panic", fakebackend.RequireBearer("user-token"), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Emergency alert created",
			"data": gin.H{
				"alert":             gin.H{"status": "active", "type": "panic", "location": gin.H{"coordinates": []float64{3.39, 6.45}, "address": "Marina"}},
				"assignedResponder": gin.H{"name": "Kemi", "distance": 2.1, "estimatedTime": "6 mins"},
				"locationDetails":   gin.H{"address": "1 Marina, Lagos"},
			},
		})
	})
	srv.Handle(http.MethodPost, "/alert/manual", fakebackend.RequireBearer("user-token"), func(c *gin.Context) {
		fakebackend.OK(c, gin.H{
			"hospital":          gin.H{"name": "Lagos General"},
			"assignedResponder": gin.H{"name": "Tunde"},
			"estimatedTime":     "9 mins",
			"locationDetails":   gin.H{"address": "1 Marina, Lagos"},
		})
	})
	return srv
}

func TestSendPanicAlert(t *testing.T) {
	srv := panicBackend(t)
	client := NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("user-token"))

	res, err := client.SendPanicAlert(context.Background(), &models.LocationFix{Latitude: 6.45, Longitude: 3.39})
	require.NoError(t, err)
	assert.Equal(t, "Emergency alert created", res.Message)
	assert.Equal(t, "Kemi", res.AssignedResponder.Name)
	assert.Equal(t, "6 mins", res.ETA())
	assert.Equal(t, "1 Marina, Lagos", res.Address())

	hit, ok := srv.Last(http.MethodPost, "/alert/panic")
	require.True(t, ok)
	assert.Equal(t, []interface{}{6.45, 3.39}, hit.Body["coordinates"])
	assert.Equal(t, float64(PanicAccuracy), hit.Body["accuracy"])
}

func TestSendManualRequest(t *testing.T) {
	srv := panicBackend(t)
	client := NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("user-token"))
	fix := &models.LocationFix{Latitude: 6.45, Longitude: 3.39}

	_, err := client.SendManualRequest(context.Background(), "", fix)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	res, err := client.SendManualRequest(context.Background(), "h1", fix)
	require.NoError(t, err)
	assert.Equal(t, "Lagos General", res.Hospital.Name)
	assert.Equal(t, "9 mins", res.ETA())

	hit, _ := srv.Last(http.MethodPost, "/alert/manual")
	assert.Equal(t, "h1", hit.Body["hospitalId"])
	loc := hit.Body["location"].(map[string]interface{})
	assert.Equal(t, float64(ManualAccuracy), loc["accuracy"])
}

func TestCooldownBlocksRepeatAlerts(t *testing.T) {
	srv := panicBackend(t)
	fix := &models.LocationFix{Latitude: 6.45, Longitude: 3.39}

	failing := NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("wrong"), WithCooldown(time.Minute))
	_, err := failing.SendPanicAlert(context.Background(), fix)
	assert.True(t, apperrors.IsUnauthorized(err))
	_, err = failing.SendPanicAlert(context.Background(), fix)
	assert.True(t, apperrors.IsUnauthorized(err), "failed sends do not start the cooldown")

	client := NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("user-token"), WithCooldown(time.Minute))
	_, err = client.SendPanicAlert(context.Background(), fix)
	require.NoError(t, err)

	_, err = client.SendPanicAlert(context.Background(), fix)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAlertCooldown, apperrors.GetCode(err))
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.NotEmpty(t, e.ContextValue("retry_after"))
	assert.Equal(t, 3, srv.Count(http.MethodPost, "/alert/panic"))
}

// switchingUser mimics a session whose acting token changes while the user stays the same.
type switchingUser struct {
	token string
	user  *models.User
}

func (s *switchingUser) AuthToken() string { return s.token }

func (s *switchingUser) CurrentUser() *models.User { return s.user }

func TestCooldownFollowsUserAcrossIdentities(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Handle(http.MethodPost, "/alert/panic", func(c *gin.Context) {
		fakebackend.OK(c, gin.H{"alert": gin.H{"status": "active", "type": "panic"}})
	})
	fix := &models.LocationFix{Latitude: 6.45, Longitude: 3.39}

	src := &switchingUser{token: "user-token", user: &models.User{ID: "u1"}}
	client := NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), src, WithCooldown(time.Minute))
	_, err := client.SendPanicAlert(context.Background(), fix)
	require.NoError(t, err)

	src.token = "resp-token"
	_, err = client.SendPanicAlert(context.Background(), fix)
	assert.Equal(t, apperrors.CodeAlertCooldown, apperrors.GetCode(err))

	src.user = &models.User{ID: "u2"}
	_, err = client.SendPanicAlert(context.Background(), fix)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Count(http.MethodPost, "/alert/panic"))
}

func TestUserAlertsWithoutDataIsEmpty(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Handle(http.MethodGet, "/alert/user-alerts", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "No alerts"})
	})
	client := NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("user-token"))

	list, err := client.ListUserAlerts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func userAlertsBackend(t *testing.T) *fakebackend.Server {
	srv := fakebackend.New(t)
	srv.Handle(http.MethodGet, "/alert/user-alerts", func(c *gin.Context) {
		fakebackend.OK(c, []gin.H{
			alertJSON("old", models.StatusResolved, models.AlertTypePanic, "2026-01-10T10:00:00.000Z"),
			alertJSON("new", models.StatusActive, models.AlertTypePanic, "2026-01-12T10:00:00.000Z"),
			alertJSON("gone", models.StatusCancelled, models.AlertTypeManual, "2026-01-11T10:00:00.000Z"),
		})
	})
	srv.Handle(http.MethodDelete, "/alert/user-alerts/:id", func(c *gin.Context) {
		switch c.Param("id") {
		case "gone":
			fakebackend.Fail(c, http.StatusNotFound, "Alert not found")
		case "old":
			fakebackend.OK(c, gin.H{})
		default:
			fakebackend.Fail(c, http.StatusForbidden, "Not allowed")
		}
	})
	return srv
}

func TestIncidentLog(t *testing.T) {
	srv := userAlertsBackend(t)
	log := NewIncidentLog(NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("user-token")))
	require.NoError(t, log.Refresh(context.Background()))

	list := log.Alerts()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"new", "gone", "old"}, []string{list[0].ID, list[1].ID, list[2].ID})

	err := log.Delete(context.Background(), "new")
	assert.Equal(t, apperrors.CodeAlertNotDeletable, apperrors.GetCode(err))
	assert.Zero(t, srv.Count(http.MethodDelete, "/alert/user-alerts/new"))

	require.NoError(t, log.Delete(context.Background(), "gone"))
	require.NoError(t, log.Delete(context.Background(), "old"))
	assert.Len(t, log.Alerts(), 1)

	assert.True(t, apperrors.IsKind(log.Delete(context.Background(), "unknown"), apperrors.KindValidation))
}

func TestDeleteRejectedKeepsLocalCopy(t *testing.T) {
	srv := userAlertsBackend(t)
	client := NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("user-token"))
	err := client.DeleteUserAlert(context.Background(), models.Alert{ID: "other", Status: models.StatusResolved})
	assert.Equal(t, http.StatusForbidden, apperrors.StatusOf(err))
}
