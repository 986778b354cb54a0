package alerts

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"GuardianAngel/internal/models"
	"GuardianAngel/pkg/apiclient"
	apperrors "GuardianAngel/pkg/errors"
	"GuardianAngel/pkg/logger"
	"GuardianAngel/pkg/metrics"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

const (
	PanicAccuracy  = 15
	ManualAccuracy = 50
)

type Option func(*Client)

// WithCooldown rejects a new alert from the same user within d of a successful one.
// Zero disables the guard.
func WithCooldown(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.cooldown = nil
			return
		}
		c.cooldown = limiter.New(memory.NewStore(), limiter.Rate{Period: d, Limit: 1})
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client covers the alert lifecycle for both reporters and responders.
type Client struct {
	api      apiclient.Doer
	tokens   apiclient.TokenSource
	cooldown *limiter.Limiter
	metrics  *metrics.Metrics
}

// userSource is implemented by token sources that also know the signed in user.
type userSource interface {
	CurrentUser() *models.User
}

func NewClient(api apiclient.Doer, tokens apiclient.TokenSource, opts ...Option) *Client {
	c := &Client{api: api, tokens: tokens}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendPanicAlert raises a panic alert at fix. A nil fix fails without contacting the backend.
func (c *Client) SendPanicAlert(ctx context.Context, fix *models.LocationFix) (*models.CreationResult, error) {
	token, key, err := c.precheck(ctx, fix)
	if err != nil {
		return nil, err
	}

	body := models.PanicRequest{
		Coordinates: [2]float64{fix.Latitude, fix.Longitude},
		Accuracy:    accuracyOr(fix.Accuracy, PanicAccuracy),
	}
	res, err := c.create(ctx, key, &apiclient.Request{
		Route:  "alert.panic",
		Method: http.MethodPost,
		Path:   "/alert/panic",
		Body:   body,
		Token:  token,
	})
	c.metrics.RecordBusinessOperation("alert.panic", err)
	if err != nil {
		return nil, err
	}
	logger.Info("panic alert sent", zap.String("address", res.Address()), zap.String("eta", res.ETA()))
	return res, nil
}

// SendManualRequest asks a specific hospital for help at fix.
func (c *Client) SendManualRequest(ctx context.Context, hospitalID string, fix *models.LocationFix) (*models.CreationResult, error) {
	token, key, err := c.precheck(ctx, fix)
	if err != nil {
		return nil, err
	}

	body := models.ManualRequest{
		HospitalID: hospitalID,
		Location: models.PanicRequest{
			Coordinates: [2]float64{fix.Latitude, fix.Longitude},
			Accuracy:    accuracyOr(fix.Accuracy, ManualAccuracy),
		},
	}
	if err := apiclient.Validate(body); err != nil {
		return nil, err
	}
	res, err := c.create(ctx, key, &apiclient.Request{
		Route:  "alert.manual",
		Method: http.MethodPost,
		Path:   "/alert/manual",
		Body:   body,
		Token:  token,
	})
	c.metrics.RecordBusinessOperation("alert.manual", err)
	if err != nil {
		return nil, err
	}
	logger.Info("manual request sent", zap.String("hospital", hospitalID))
	return res, nil
}

// precheck returns the bearer token and the cooldown key for this sender.
func (c *Client) precheck(ctx context.Context, fix *models.LocationFix) (string, string, error) {
	if fix == nil {
		return "", "", apperrors.Validationf(apperrors.CodeLocationUnavailable, "location unavailable")
	}
	if err := apiclient.Validate(fix); err != nil {
		return "", "", err
	}
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return "", "", err
	}
	key := c.cooldownKey(token)
	if c.cooldown != nil {
		lctx, err := c.cooldown.Peek(ctx, key)
		if err == nil && lctx.Remaining <= 0 {
			wait := time.Until(time.Unix(lctx.Reset, 0))
			if wait < time.Second {
				wait = time.Second
			}
			return "", "", apperrors.Validationf(apperrors.CodeAlertCooldown, "an alert was just sent, retry in %s", wait.Round(time.Second)).
				WithContext("retry_after", strconv.Itoa(int(wait.Round(time.Second).Seconds())))
		}
	}
	return token, key, nil
}

// cooldownKey 优先按用户 ID，切换身份不会绕过冷却
func (c *Client) cooldownKey(token string) string {
	if us, ok := c.tokens.(userSource); ok {
		if u := us.CurrentUser(); u != nil && u.ID != "" {
			return "user:" + u.ID
		}
	}
	return "token:" + token
}

func (c *Client) create(ctx context.Context, key string, req *apiclient.Request) (*models.CreationResult, error) {
	env, err := c.api.Do(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	res := &models.CreationResult{}
	if _, err := apiclient.DecodeData(env, res); err != nil {
		return nil, err
	}
	res.Message = env.Message
	if c.cooldown != nil {
		if _, err := c.cooldown.Get(ctx, key); err != nil {
			logger.Warn("record alert cooldown failed", zap.Error(err))
		}
	}
	return res, nil
}

// ListUserAlerts returns the reporter's alerts, newest first.
func (c *Client) ListUserAlerts(ctx context.Context) ([]models.Alert, error) {
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return nil, err
	}
	env, err := c.api.Do(ctx, &apiclient.Request{
		Route:  "alert.user-alerts",
		Method: http.MethodGet,
		Path:   "/alert/user-alerts",
		Token:  token,
	}, nil)
	if err != nil {
		return nil, err
	}
	// 没有 data 字段视为空列表
	list := []models.Alert{}
	if _, err := apiclient.DecodeData(env, &list); err != nil {
		return nil, err
	}
	SortAlerts(list, true)
	return list, nil
}

// DeleteUserAlert removes a finished alert. Open alerts are refused locally;
// a 404 means it is already gone and counts as success.
func (c *Client) DeleteUserAlert(ctx context.Context, alert models.Alert) error {
	if alert.Status.IsOpen() {
		return apperrors.Validationf(apperrors.CodeAlertNotDeletable, "alert %s is %s and cannot be deleted", alert.ID, alert.Status)
	}
	if alert.ID == "" {
		return apperrors.Validation("alert id is required")
	}
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return err
	}
	_, err = c.api.Do(ctx, &apiclient.Request{
		Route:  "alert.delete",
		Method: http.MethodDelete,
		Path:   "/alert/user-alerts/" + alert.ID,
		Token:  token,
	}, nil)
	if apperrors.IsNotFound(err) {
		return nil
	}
	return err
}

// ListAssignedAlerts returns the alerts assigned to the acting responder in server order.
func (c *Client) ListAssignedAlerts(ctx context.Context) ([]models.Alert, error) {
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return nil, err
	}
	var list []models.Alert
	if _, err := c.api.Do(ctx, &apiclient.Request{
		Route:  "responder.assigned-alerts",
		Method: http.MethodGet,
		Path:   "/responder/alerts/assigned-alerts",
		Token:  token,
	}, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) Acknowledge(ctx context.Context, id string) error {
	return c.responderAction(ctx, "acknowledge", id, nil)
}

func (c *Client) Resolve(ctx context.Context, id string) error {
	return c.responderAction(ctx, "resolve", id, nil)
}

func (c *Client) Cancel(ctx context.Context, id, reason string) error {
	return c.responderAction(ctx, "cancel", id, models.CancelRequest{Reason: reason})
}

func (c *Client) responderAction(ctx context.Context, action, id string, body interface{}) error {
	if id == "" {
		return apperrors.Validation("alert id is required")
	}
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return err
	}
	_, err = c.api.Do(ctx, &apiclient.Request{
		Route:  "responder." + action,
		Method: http.MethodPost,
		Path:   "/responder/alerts/" + action + "/" + id,
		Body:   body,
		Token:  token,
	}, nil)
	c.metrics.RecordBusinessOperation("responder."+action, err)
	return err
}

// SortAlerts orders by CreatedAt, keeping the server order for equal timestamps.
func SortAlerts(list []models.Alert, newestFirst bool) {
	sort.SliceStable(list, func(i, j int) bool {
		if newestFirst {
			return list[i].CreatedAt.After(list[j].CreatedAt.Time)
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt.Time)
	})
}

func accuracyOr(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
