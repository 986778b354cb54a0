// Package responder covers responder registration and the responder's own profile.
package responder

import (
	"context"
	"net/http"
	"strings"

	"GuardianAngel/internal/models"
	"GuardianAngel/pkg/apiclient"
	apperrors "GuardianAngel/pkg/errors"
	"GuardianAngel/pkg/logger"
	"GuardianAngel/pkg/metrics"

	"go.uber.org/zap"
)

const DefaultMaxDistance = 25

// Identity is the part of the session registration updates.
type Identity interface {
	apiclient.TokenSource
	SaveResponderToken(token string) error
	MarkAsResponder() error
}

type Client struct {
	api      apiclient.Doer
	identity Identity
	metrics  *metrics.Metrics
}

func NewClient(api apiclient.Doer, identity Identity, m *metrics.Metrics) *Client {
	return &Client{api: api, identity: identity, metrics: m}
}

// Profile fetches the acting responder's profile.
func (c *Client) Profile(ctx context.Context) (*models.ResponderProfile, error) {
	token, err := apiclient.RequireToken(c.identity)
	if err != nil {
		return nil, err
	}
	out := &models.ResponderProfile{}
	if _, err := c.api.Do(ctx, &apiclient.Request{
		Route:  "responder.profile",
		Method: http.MethodGet,
		Path:   "/responder/profile",
		Token:  token,
	}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Form 注册表单；坐标为设备当前位置
type Form struct {
	Hospital        string
	Certifications  []string
	ExperienceYears int
	VehicleType     string
	LicenseNumber   string
	MaxDistance     int
	Bio             string
	Latitude        float64
	Longitude       float64
	Availability    models.Availability
}

// Request builds the registration payload. Blank certifications are dropped and the
// location is encoded as a GeoJSON point.
func (f Form) Request() models.ResponderRegistration {
	var certs []string
	for _, c := range f.Certifications {
		if c = strings.TrimSpace(c); c != "" {
			certs = append(certs, c)
		}
	}
	maxDistance := f.MaxDistance
	if maxDistance == 0 {
		maxDistance = DefaultMaxDistance
	}
	return models.ResponderRegistration{
		Hospital:        strings.TrimSpace(f.Hospital),
		Certifications:  certs,
		ExperienceYears: f.ExperienceYears,
		VehicleType:     strings.ToLower(strings.TrimSpace(f.VehicleType)),
		LicenseNumber:   strings.TrimSpace(f.LicenseNumber),
		MaxDistance:     maxDistance,
		Bio:             strings.TrimSpace(f.Bio),
		CurrentLocation: models.NewGeoPoint(f.Latitude, f.Longitude),
		Availability:    f.Availability,
	}
}

// Register submits the registration and promotes the session. A returned access
// token becomes the acting identity; without one the role still changes.
func (c *Client) Register(ctx context.Context, req models.ResponderRegistration) (*models.RegistrationResult, error) {
	if err := apiclient.Validate(req); err != nil {
		return nil, err
	}
	if len(req.CurrentLocation.Coordinates) != 2 {
		return nil, apperrors.Validationf(apperrors.CodeLocationUnavailable, "location unavailable")
	}
	token, err := apiclient.RequireToken(c.identity)
	if err != nil {
		return nil, err
	}

	env, err := c.api.Do(ctx, &apiclient.Request{
		Route:  "responder.register",
		Method: http.MethodPost,
		Path:   "/responder/register",
		Body:   req,
		Token:  token,
	}, nil)
	c.metrics.RecordBusinessOperation("responder.register", err)
	if apperrors.StatusOf(err) == http.StatusConflict {
		conflict := apperrors.API("already registered as a responder")
		conflict.Status = http.StatusConflict
		conflict.Err = err
		return nil, conflict
	}
	if err != nil {
		return nil, err
	}

	res := &models.RegistrationResult{}
	if _, err := apiclient.DecodeData(env, res); err != nil {
		logger.Warn("registration response not understood", zap.Error(err))
	}
	if res.Tokens != nil && res.Tokens.AccessToken != "" {
		if err := c.identity.SaveResponderToken(res.Tokens.AccessToken); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("registration returned no responder token")
	}
	if err := c.identity.MarkAsResponder(); err != nil {
		return nil, err
	}
	return res, nil
}

// NewAvailability returns an empty weekly schedule.
func NewAvailability() models.Availability {
	return models.Availability{}
}
