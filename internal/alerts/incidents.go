package alerts

import (
	"context"
	"sync"

	"GuardianAngel/internal/models"
	apperrors "GuardianAngel/pkg/errors"
)

// IncidentLog holds the reporter's own alerts for the incident history screen.
type IncidentLog struct {
	client *Client

	mu     sync.RWMutex
	alerts []models.Alert
}

func NewIncidentLog(client *Client) *IncidentLog {
	return &IncidentLog{client: client}
}

// Refresh replaces the list with a fresh fetch, newest first.
func (l *IncidentLog) Refresh(ctx context.Context) error {
	list, err := l.client.ListUserAlerts(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.alerts = list
	l.mu.Unlock()
	return nil
}

func (l *IncidentLog) Alerts() []models.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Alert(nil), l.alerts...)
}

// Delete removes alert id. The local copy is dropped only when the backend
// confirmed the deletion or no longer knows the alert.
func (l *IncidentLog) Delete(ctx context.Context, id string) error {
	alert, ok := l.find(id)
	if !ok {
		return apperrors.Validationf(apperrors.CodeValidation, "alert %s is not in the incident log", id)
	}
	if err := l.client.DeleteUserAlert(ctx, alert); err != nil {
		return err
	}
	l.mu.Lock()
	for i := range l.alerts {
		if l.alerts[i].ID == id {
			l.alerts = append(l.alerts[:i], l.alerts[i+1:]...)
			break
		}
	}
	l.mu.Unlock()
	return nil
}

func (l *IncidentLog) find(id string) (models.Alert, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, a := range l.alerts {
		if a.ID == id {
			return a, true
		}
	}
	return models.Alert{}, false
}
