// Package profile reads and edits the signed-in user's profile and medical info.
package profile

import (
	"context"
	"net/http"
	"strings"

	"GuardianAngel/internal/models"
	"GuardianAngel/pkg/apiclient"
)

type Client struct {
	api    apiclient.Doer
	tokens apiclient.TokenSource
}

func NewClient(api apiclient.Doer, tokens apiclient.TokenSource) *Client {
	return &Client{api: api, tokens: tokens}
}

func (c *Client) Get(ctx context.Context) (*models.UserProfile, error) {
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return nil, err
	}
	out := &models.UserProfile{}
	if _, err := c.api.Do(ctx, &apiclient.Request{
		Route:  "auth.profile",
		Method: http.MethodGet,
		Path:   "/auth/profile",
		Token:  token,
	}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update 保存资料；返回后端最新的资料，后端未回显时重新拉取
func (c *Client) Update(ctx context.Context, upd models.ProfileUpdate) (*models.UserProfile, error) {
	upd = Normalize(upd)
	if err := apiclient.Validate(upd); err != nil {
		return nil, err
	}
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return nil, err
	}
	env, err := c.api.Do(ctx, &apiclient.Request{
		Route:  "auth.profile.update",
		Method: http.MethodPut,
		Path:   "/auth/profile",
		Body:   upd,
		Token:  token,
	}, nil)
	if err != nil {
		return nil, err
	}
	out := &models.UserProfile{}
	ok, err := apiclient.DecodeData(env, out)
	if err != nil {
		return nil, err
	}
	if !ok || out.ID == "" {
		return c.Get(ctx)
	}
	return out, nil
}

// Normalize trims text fields, drops an empty blood type and never sends null lists.
func Normalize(upd models.ProfileUpdate) models.ProfileUpdate {
	upd.FullName = strings.TrimSpace(upd.FullName)
	upd.Phone = strings.TrimSpace(upd.Phone)
	if upd.MedicalInfo.BloodType != nil {
		bt := strings.ToUpper(strings.TrimSpace(*upd.MedicalInfo.BloodType))
		if bt == "" {
			upd.MedicalInfo.BloodType = nil
		} else {
			upd.MedicalInfo.BloodType = &bt
		}
	}
	upd.MedicalInfo.Allergies = clean(upd.MedicalInfo.Allergies)
	upd.MedicalInfo.Conditions = clean(upd.MedicalInfo.Conditions)
	return upd
}

// ParseList splits comma separated input, e.g. "peanuts, penicillin".
func ParseList(s string) []string {
	return clean(strings.Split(s, ","))
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
