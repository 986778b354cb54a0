// Package locations manages trusted locations (home, work and other safe places).
package locations

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"GuardianAngel/internal/models"
	"GuardianAngel/pkg/apiclient"
	apperrors "GuardianAngel/pkg/errors"
)

const basePath = "/trusted-location"

type Client struct {
	api    apiclient.Doer
	tokens apiclient.TokenSource
}

func NewClient(api apiclient.Doer, tokens apiclient.TokenSource) *Client {
	return &Client{api: api, tokens: tokens}
}

// Validate 校验输入；同一地点不能既是家又是公司
func Validate(in models.TrustedLocationInput) error {
	if err := apiclient.Validate(in); err != nil {
		return err
	}
	if in.IsHome && in.IsWork {
		return apperrors.Validationf(apperrors.CodeHomeAndWork, "a location cannot be both home and work")
	}
	return nil
}

func (c *Client) List(ctx context.Context) ([]models.TrustedLocation, error) {
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return nil, err
	}
	var out models.TrustedLocationList
	if _, err := c.api.Do(ctx, &apiclient.Request{
		Route:  "locations.list",
		Method: http.MethodGet,
		Path:   basePath,
		Token:  token,
	}, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

// Create stores a new trusted location; the backend geocodes the address.
func (c *Client) Create(ctx context.Context, in models.TrustedLocationInput) (*models.TrustedLocation, error) {
	return c.write(ctx, "locations.create", http.MethodPost, basePath, in)
}

func (c *Client) Update(ctx context.Context, id string, in models.TrustedLocationInput) (*models.TrustedLocation, error) {
	if id == "" {
		return nil, apperrors.Validation("location id is required")
	}
	return c.write(ctx, "locations.update", http.MethodPut, basePath+"/"+id, in)
}

// Delete removes location id; a 404 counts as success.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.Validation("location id is required")
	}
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return err
	}
	_, err = c.api.Do(ctx, &apiclient.Request{
		Route:  "locations.delete",
		Method: http.MethodDelete,
		Path:   basePath + "/" + id,
		Token:  token,
	}, nil)
	if apperrors.IsNotFound(err) {
		return nil
	}
	return err
}

func (c *Client) write(ctx context.Context, route, method, path string, in models.TrustedLocationInput) (*models.TrustedLocation, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	if in.Notes != nil && strings.TrimSpace(*in.Notes) == "" {
		in.Notes = nil
	}
	if err := Validate(in); err != nil {
		return nil, err
	}
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return nil, err
	}
	env, err := c.api.Do(ctx, &apiclient.Request{
		Route:  route,
		Method: method,
		Path:   path,
		Body:   in,
		Token:  token,
	}, nil)
	if err != nil {
		return nil, err
	}
	var out models.TrustedLocation
	ok, err := apiclient.DecodeData(env, &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

// Registry 可信地点列表
type Registry struct {
	client *Client

	mu        sync.RWMutex
	locations []models.TrustedLocation
}

func NewRegistry(client *Client) *Registry {
	return &Registry{client: client}
}

func (r *Registry) Refresh(ctx context.Context) error {
	list, err := r.client.List(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.locations = list
	r.mu.Unlock()
	return nil
}

func (r *Registry) Locations() []models.TrustedLocation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.TrustedLocation(nil), r.locations...)
}

// Home returns the location flagged as home, if any.
func (r *Registry) Home() (models.TrustedLocation, bool) {
	return r.first(func(l models.TrustedLocation) bool { return l.IsHome })
}

func (r *Registry) Work() (models.TrustedLocation, bool) {
	return r.first(func(l models.TrustedLocation) bool { return l.IsWork })
}

func (r *Registry) Add(ctx context.Context, in models.TrustedLocationInput) error {
	if _, err := r.client.Create(ctx, in); err != nil {
		return err
	}
	return r.Refresh(ctx)
}

func (r *Registry) Edit(ctx context.Context, id string, in models.TrustedLocationInput) error {
	if _, err := r.client.Update(ctx, id, in); err != nil {
		return err
	}
	return r.Refresh(ctx)
}

// Delete drops location id locally once the backend confirmed it.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.locations {
		if r.locations[i].ID == id {
			r.locations = append(r.locations[:i], r.locations[i+1:]...)
			break
		}
	}
	return nil
}

func (r *Registry) first(match func(models.TrustedLocation) bool) (models.TrustedLocation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.locations {
		if match(l) {
			return l, true
		}
	}
	return models.TrustedLocation{}, false
}
