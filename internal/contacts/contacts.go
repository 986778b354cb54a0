// Package contacts manages the user's emergency contacts.
package contacts

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"GuardianAngel/internal/models"
	"GuardianAngel/pkg/apiclient"
	apperrors "GuardianAngel/pkg/errors"
	"GuardianAngel/pkg/logger"

	"go.uber.org/zap"
)

const basePath = "/user/emergency-contacts"

// Client 紧急联系人 CRUD
type Client struct {
	api    apiclient.Doer
	tokens apiclient.TokenSource
}

func NewClient(api apiclient.Doer, tokens apiclient.TokenSource) *Client {
	return &Client{api: api, tokens: tokens}
}

// List reads the contacts embedded in the user profile.
func (c *Client) List(ctx context.Context) ([]models.EmergencyContact, error) {
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return nil, err
	}
	var profile models.UserProfile
	if _, err := c.api.Do(ctx, &apiclient.Request{
		Route:  "contacts.list",
		Method: http.MethodGet,
		Path:   "/auth/profile",
		Token:  token,
	}, &profile); err != nil {
		return nil, err
	}
	return profile.EmergencyContacts, nil
}

// Create adds a contact. The created contact is returned when the backend echoes it.
func (c *Client) Create(ctx context.Context, in models.ContactInput) (*models.EmergencyContact, error) {
	in = normalize(in)
	if err := apiclient.Validate(in); err != nil {
		return nil, err
	}
	return c.write(ctx, "contacts.create", http.MethodPost, basePath, in)
}

// Update replaces the fields of contact id.
func (c *Client) Update(ctx context.Context, id string, in models.ContactInput) (*models.EmergencyContact, error) {
	if id == "" {
		return nil, apperrors.Validation("contact id is required")
	}
	in = normalize(in)
	if err := apiclient.Validate(in); err != nil {
		return nil, err
	}
	return c.write(ctx, "contacts.update", http.MethodPatch, basePath+"/"+id, in)
}

// Delete removes contact id; a 404 counts as success.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.Validation("contact id is required")
	}
	token, err := apiclient.RequireToken(c.tokens)
	if err != nil {
		return err
	}
	_, err = c.api.Do(ctx, &apiclient.Request{
		Route:  "contacts.delete",
		Method: http.MethodDelete,
		Path:   basePath + "/" + id,
		Token:  token,
	}, nil)
	if apperrors.IsNotFound(err) {
		logger.Debug("contact already gone", zap.String("id", id))
		return nil
	}
	return err
}

func (c *Client) write(ctx context.Context, route, method, path string, in models.ContactInput) (*models.EmergencyContact, error) {
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
	var out models.EmergencyContact
	ok, err := apiclient.DecodeData(env, &out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &out, nil
}

func normalize(in models.ContactInput) models.ContactInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Relationship = strings.TrimSpace(in.Relationship)
	return in
}

// Book 联系人列表，供联系人页面使用
type Book struct {
	client *Client

	mu       sync.RWMutex
	contacts []models.EmergencyContact
}

func NewBook(client *Client) *Book {
	return &Book{client: client}
}

// Refresh replaces the list; on error the previous list is kept.
func (b *Book) Refresh(ctx context.Context) error {
	list, err := b.client.List(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.contacts = list
	b.mu.Unlock()
	return nil
}

func (b *Book) Contacts() []models.EmergencyContact {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.EmergencyContact(nil), b.contacts...)
}

// Add creates a contact and re-reads the list.
func (b *Book) Add(ctx context.Context, in models.ContactInput) error {
	if _, err := b.client.Create(ctx, in); err != nil {
		return err
	}
	return b.Refresh(ctx)
}

// Edit updates a contact and re-reads the list.
func (b *Book) Edit(ctx context.Context, id string, in models.ContactInput) error {
	if _, err := b.client.Update(ctx, id, in); err != nil {
		return err
	}
	return b.Refresh(ctx)
}

// Delete drops contact id locally once the backend confirmed it.
func (b *Book) Delete(ctx context.Context, id string) error {
	if err := b.client.Delete(ctx, id); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.contacts {
		if b.contacts[i].ID == id {
			b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
			break
		}
	}
	return nil
}
