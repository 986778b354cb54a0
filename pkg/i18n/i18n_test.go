package i18n

import (
	"fmt"
	"net/http"
	"testing"

	apperrors "GuardianAngel/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	tr, err := NewI18nSupport("en")
	require.NoError(t, err)

	assert.Equal(t, "Your session has expired. Please log in again.",
		tr.ErrorMessage("en", apperrors.SessionExpired("")))
	assert.Equal(t, "Votre session a expiré. Veuillez vous reconnecter.",
		tr.ErrorMessage("fr", apperrors.SessionExpired("jwt expired")))
	assert.Equal(t, "Invalid credentials",
		tr.ErrorMessage("en", apperrors.HTTPStatus(http.StatusUnauthorized, "Invalid credentials")))
	assert.Equal(t, "Invalid credentials",
		tr.ErrorMessage("en", apperrors.API("Invalid credentials")))
	assert.Equal(t, "Unable to reach Guardian Angel. Check your connection.",
		tr.ErrorMessage("en", apperrors.Transport(fmt.Errorf("refused"))))
	assert.Equal(t, "Something went wrong. Please try again.",
		tr.ErrorMessage("en", fmt.Errorf("plain")))
	assert.Empty(t, tr.ErrorMessage("en", nil))
}

func TestCooldownTemplate(t *testing.T) {
	tr, err := NewI18nSupport("en")
	require.NoError(t, err)

	e := apperrors.Validationf(apperrors.CodeAlertCooldown, "cooldown").WithContext("retry_after", "7")
	assert.Contains(t, tr.ErrorMessage("en", e), "wait 7 seconds")
}

func TestUnknownKeyFallsBack(t *testing.T) {
	tr, err := NewI18nSupport("en")
	require.NoError(t, err)
	assert.Equal(t, "NoSuchKey", tr.T("de", "NoSuchKey", nil))
	assert.Equal(t, "Emergency alert sent. Help is on the way.", tr.TWithDefaultLang("PanicSent", nil))
}
