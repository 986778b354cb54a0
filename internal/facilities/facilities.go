// Package facilities finds medical facilities near the user and lists hospitals
// that accept manual requests.
package facilities

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"GuardianAngel/internal/models"
	"GuardianAngel/pkg/apiclient"
	"GuardianAngel/pkg/cache"
	apperrors "GuardianAngel/pkg/errors"
	"GuardianAngel/pkg/logger"
	"GuardianAngel/pkg/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	DefaultNearbySize = 32

	hospitalsKey       = "hospitals"
	nearbyCacheName    = "nearby"
	hospitalsCacheName = "hospitals"
)

type Option func(*Client)

// WithNearbyCache keeps up to size nearby results for ttl. ttl <= 0 disables caching.
func WithNearbyCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			c.nearby = nil
			return
		}
		if size <= 0 {
			size = DefaultNearbySize
		}
		c.nearby = expirable.NewLRU[string, *models.NearbyResult](size, nil, ttl)
	}
}

// WithHospitalsTTL caches the hospital directory for ttl. ttl <= 0 disables caching.
func WithHospitalsTTL(ttl time.Duration) Option {
	return func(c *Client) { c.hospitalsTTL = ttl }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

type Client struct {
	api          apiclient.Doer
	tokens       apiclient.TokenSource
	metrics      *metrics.Metrics
	nearby       *expirable.LRU[string, *models.NearbyResult]
	hospitals    cache.Cache
	hospitalsTTL time.Duration
}

func NewClient(api apiclient.Doer, tokens apiclient.TokenSource, opts ...Option) *Client {
	c := &Client{api: api, tokens: tokens}
	for _, opt := range opts {
		opt(c)
	}
	if c.hospitalsTTL > 0 {
		c.hospitals = cache.NewGoCache(cache.LocalConfig{
			DefaultExpiration: c.hospitalsTTL,
			CleanupInterval:   2 * c.hospitalsTTL,
		})
	}
	return c
}

// Nearby returns facilities around fix ranked by distance, nearest first.
// Facilities at the same distance keep the server order.
func (c *Client) Nearby(ctx context.Context, fix *models.LocationFix) (*models.NearbyResult, error) {
	if fix == nil {
		return nil, apperrors.Validationf(apperrors.CodeLocationUnavailable, "location unavailable")
	}
	if err := apiclient.Validate(fix); err != nil {
		return nil, err
	}
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return nil, err
	}

	key := cacheKey(fix.Latitude, fix.Longitude)
	if c.nearby != nil {
		if res, ok := c.nearby.Get(key); ok {
			c.metrics.RecordCache(nearbyCacheName, true)
			return res, nil
		}
		c.metrics.RecordCache(nearbyCacheName, false)
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(fix.Latitude, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(fix.Longitude, 'f', -1, 64))

	res := &models.NearbyResult{}
	if _, err := c.api.Do(ctx, &apiclient.Request{
		Route:  "alert.available-responders",
		Method: http.MethodGet,
		Path:   "/alert/available-responders",
		Query:  q,
		Token:  token,
	}, res); err != nil {
		return nil, err
	}
	Rank(res.Facilities)

	if c.nearby != nil {
		c.nearby.Add(key, cloneNearby(res))
	}
	logger.Debug("nearby facilities", zap.Int("count", len(res.Facilities)), zap.String("at", key))
	return res, nil
}

// cloneNearby 缓存与调用方互不共享 Facilities
func cloneNearby(res *models.NearbyResult) *models.NearbyResult {
	out := *res
	out.Facilities = append([]models.NearbyFacility(nil), res.Facilities...)
	return &out
}

// Hospitals lists hospitals that can receive a manual request.
func (c *Client) Hospitals(ctx context.Context) ([]models.Hospital, error) {
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return nil, err
	}
	if c.hospitals != nil {
		if v, ok := c.hospitals.Get(ctx, hospitalsKey); ok {
			if list, ok := v.([]models.Hospital); ok {
				c.metrics.RecordCache(hospitalsCacheName, true)
				return append([]models.Hospital(nil), list...), nil
			}
		}
		c.metrics.RecordCache(hospitalsCacheName, false)
	}

	var list []models.Hospital
	if _, err := c.api.Do(ctx, &apiclient.Request{
		Route:  "hospitals.list",
		Method: http.MethodGet,
		Path:   "/hospitals",
		Token:  token,
	}, &list); err != nil {
		return nil, err
	}

	if c.hospitals != nil {
		if err := c.hospitals.Set(ctx, hospitalsKey, list, c.hospitalsTTL); err != nil {
			logger.Warn("cache hospitals failed", zap.Error(err))
		}
	}
	return append([]models.Hospital(nil), list...), nil
}

// Invalidate drops every cached result.
func (c *Client) Invalidate(ctx context.Context) {
	if c.nearby != nil {
		c.nearby.Purge()
	}
	if c.hospitals != nil {
		_ = c.hospitals.Clear(ctx)
	}
}

// Close 释放缓存
func (c *Client) Close() error {
	if c.hospitals != nil {
		return c.hospitals.Close()
	}
	return nil
}

// Rank sorts by distance ascending, stable on input order.
func Rank(list []models.NearbyFacility) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Distance < list[j].Distance
	})
}

// cacheKey 坐标保留 3 位小数（约 110 米）
func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("%.3f,%.3f", lat, lng)
}
