package profile

import (
	"context"
	"net/http"
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

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParseList("a, b,,c "))
	assert.Equal(t, []string{}, ParseList(""))
}

func TestNormalize(t *testing.T) {
	blank := "  "
	upd := Normalize(models.ProfileUpdate{FullName: " Ada ", MedicalInfo: models.MedicalInfo{BloodType: &blank}})
	assert.Equal(t, "Ada", upd.FullName)
	assert.Nil(t, upd.MedicalInfo.BloodType)
	assert.NotNil(t, upd.MedicalInfo.Allergies)

	bt := "o+"
	upd = Normalize(models.ProfileUpdate{MedicalInfo: models.MedicalInfo{BloodType: &bt}})
	assert.Equal(t, "O+", *upd.MedicalInfo.BloodType)
}

func TestUpdateRefetchesWhenNotEchoed(t *testing.T) {
	srv := fakebackend.New(t)
	auth := fakebackend.RequireBearer("user-token")
	profile := gin.H{"_id": "u1", "fullName": "Ada Obi", "phone": "+234", "medicalInfo": gin.H{"allergies": []string{"peanuts"}, "conditions": []string{}}}
	srv.Handle(http.MethodGet, "/auth/profile", auth, func(c *gin.Context) { fakebackend.OK(c, profile) })
	srv.Handle(http.MethodPut, "/auth/profile", auth, func(c *gin.Context) { fakebackend.OK(c, nil) })

	c := NewClient(apiclient.New(srv.BaseURL(), time.Second, nil), staticToken("user-token"))

	_, err := c.Update(context.Background(), models.ProfileUpdate{FullName: " ", Phone: "1"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Zero(t, srv.Count(http.MethodPut, "/auth/profile"))

	out, err := c.Update(context.Background(), models.ProfileUpdate{
		FullName:    "Ada Obi",
		Phone:       "+234",
		MedicalInfo: models.MedicalInfo{Allergies: ParseList("peanuts")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", out.FullName)
	assert.Equal(t, []string{"peanuts"}, out.MedicalInfo.Allergies)
	assert.Equal(t, 1, srv.Count(http.MethodGet, "/auth/profile"))

	hit, _ := srv.Last(http.MethodPut, "/auth/profile")
	med := hit.Body["medicalInfo"].(map[string]interface{})
	assert.Equal(t, []interface{}{}, med["conditions"])
	assert.NotContains(t, med, "bloodType")
}
