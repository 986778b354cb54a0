package contacts

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

func contactBackend(t *testing.T) *fakebackend.Server {
	srv := fakebackend.New(t)
	var mu sync.Mutex
	contacts := []gin.H{
		{"_id": "c1", "name": "Mum", "phone": "+2348000000001", "relationship": "Mother"},
		{"_id": "c2", "name": "Tobi", "phone": "+2348000000002", "relationship": "Brother"},
	}
	auth := fakebackend.RequireBearer("user-token")

	srv.Handle(http.MethodGet, "/auth/profile", auth, func(c *gin.Context) {
		mu.Lock()
		defer mu.Unlock()
		fakebackend.OK(c, gin.H{"_id": "u1", "email": "ada@example.com", "emergencyContacts": contacts})
	})
	srv.Handle(http.MethodPost, "/user/emergency-contacts", auth, func(c *gin.Context) {
		var in models.ContactInput
		assert.NoError(t, c.ShouldBindJSON(&in))
		mu.Lock()
		created := gin.H{"_id": "c3", "name": in.Name, "phone": in.Phone, "relationship": in.Relationship}
		contacts = append(contacts, created)
		mu.Unlock()
		fakebackend.OK(c, created)
	})
	srv.Handle(http.MethodPatch, "/user/emergency-contacts/:id", auth, func(c *gin.Context) {
		fakebackend.OK(c, nil)
	})
	srv.Handle(http.MethodDelete, "/user/emergency-contacts/:id", auth, func(c *gin.Context) {
		switch c.Param("id") {
		case "c1":
			fakebackend.OK(c, gin.H{})
		case "c2":
			fakebackend.Fail(c, http.StatusInternalServerError, "database unavailable")
		default:
			fakebackend.Fail(c, http.StatusNotFound, "Contact not found")
		}
	})
	return srv
}

func newClient(srv *fakebackend.Server, token string) *Client {
	return NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken(token))
}

func TestListReadsProfileContacts(t *testing.T) {
	srv := contactBackend(t)
	list, err := newClient(srv, "user-token").List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Mum", list[0].Name)
}

func TestCreateValidatesBeforeSending(t *testing.T) {
	srv := contactBackend(t)
	c := newClient(srv, "user-token")

	_, err := c.Create(context.Background(), models.ContactInput{Name: "  ", Phone: "1", Relationship: "Friend"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Zero(t, srv.Count(http.MethodPost, "/user/emergency-contacts"))

	created, err := c.Create(context.Background(), models.ContactInput{Name: " Bisi ", Phone: "+234", Relationship: "Friend"})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "c3", created.ID)

	hit, _ := srv.Last(http.MethodPost, "/user/emergency-contacts")
	assert.Equal(t, "Bisi", hit.Body["name"])
	assert.Equal(t, "Bearer user-token", hit.Authorization)
}

func TestUpdateWithoutEcho(t *testing.T) {
	srv := contactBackend(t)
	out, err := newClient(srv, "user-token").Update(context.Background(), "c1", models.ContactInput{Name: "Mama", Phone: "1", Relationship: "Mother"})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 1, srv.Count(http.MethodPatch, "/user/emergency-contacts/c1"))
}

func TestRequiresSession(t *testing.T) {
	srv := contactBackend(t)
	_, err := newClient(srv, "").List(context.Background())
	assert.Equal(t, apperrors.CodeNotAuthenticated, apperrors.GetCode(err))
	assert.Empty(t, srv.Hits())
}

func TestBookDelete(t *testing.T) {
	srv := contactBackend(t)
	b := NewBook(newClient(srv, "user-token"))
	require.NoError(t, b.Refresh(context.Background()))

	err := b.Delete(context.Background(), "c2")
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusOf(err))
	assert.Len(t, b.Contacts(), 2)

	require.NoError(t, b.Delete(context.Background(), "c1"))
	require.NoError(t, b.Delete(context.Background(), "missing"))
	list := b.Contacts()
	require.Len(t, list, 1)
	assert.Equal(t, "c2", list[0].ID)
}

func TestBookAddRefreshes(t *testing.T) {
	srv := contactBackend(t)
	b := NewBook(newClient(srv, "user-token"))
	require.NoError(t, b.Add(context.Background(), models.ContactInput{Name: "Bisi", Phone: "+234", Relationship: "Friend"}))
	assert.Len(t, b.Contacts(), 3)
	assert.Equal(t, 1, srv.Count(http.MethodGet, "/auth/profile"))
}
