package alerts

import (
	"context"
	"sync"

	"GuardianAngel/internal/models"
)

// Filter narrows the responder dashboard by status.
type Filter string

const (
	FilterAll          Filter = "all"
	FilterActive       Filter = "active"
	FilterAcknowledged Filter = "acknowledged"
	FilterResolved     Filter = "resolved"
	FilterCancelled    Filter = "cancelled"
)

// TypeFilter narrows the responder dashboard by alert type.
type TypeFilter string

const (
	TypeAll    TypeFilter = "all"
	TypePanic  TypeFilter = "panic"
	TypeManual TypeFilter = "manual"
)

// Matches reports whether a passes the status filter.
func (f Filter) Matches(a models.Alert) bool {
	switch f {
	case FilterAll, "":
		return true
	}
	return string(a.Status) == string(f)
}

// Matches reports whether a passes the type filter.
func (f TypeFilter) Matches(a models.Alert) bool {
	if f == TypeAll || f == "" {
		return true
	}
	return string(a.Type) == string(f)
}

// Stats counts alerts per status bucket.
type Stats struct {
	Total        int
	Active       int
	Acknowledged int
	Resolved     int
	Cancelled    int
}

// Dashboard is the responder's view of assigned alerts. The list is only ever
// replaced by a fetch; writes never patch it locally.
type Dashboard struct {
	client *Client

	mu              sync.RWMutex
	alerts          []models.Alert
	filter          Filter
	typeFilter      TypeFilter
	sortNewestFirst bool
}

func NewDashboard(client *Client) *Dashboard {
	return &Dashboard{
		client:          client,
		filter:          FilterAll,
		typeFilter:      TypeAll,
		sortNewestFirst: true,
	}
}

// Refresh re-fetches assigned alerts. On error the previous list is kept.
func (d *Dashboard) Refresh(ctx context.Context) error {
	list, err := d.client.ListAssignedAlerts(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.alerts = list
	d.mu.Unlock()
	return nil
}

// Acknowledge posts the acknowledgement and then re-fetches once.
func (d *Dashboard) Acknowledge(ctx context.Context, id string) error {
	if err := d.client.Acknowledge(ctx, id); err != nil {
		return err
	}
	return d.Refresh(ctx)
}

func (d *Dashboard) Resolve(ctx context.Context, id string) error {
	if err := d.client.Resolve(ctx, id); err != nil {
		return err
	}
	return d.Refresh(ctx)
}

func (d *Dashboard) Cancel(ctx context.Context, id, reason string) error {
	if err := d.client.Cancel(ctx, id, reason); err != nil {
		return err
	}
	return d.Refresh(ctx)
}

func (d *Dashboard) SetFilter(f Filter) {
	d.mu.Lock()
	d.filter = f
	d.mu.Unlock()
}

func (d *Dashboard) SetTypeFilter(f TypeFilter) {
	d.mu.Lock()
	d.typeFilter = f
	d.mu.Unlock()
}

func (d *Dashboard) SetSortNewestFirst(v bool) {
	d.mu.Lock()
	d.sortNewestFirst = v
	d.mu.Unlock()
}

// ToggleSort flips the sort direction and returns the new value.
func (d *Dashboard) ToggleSort() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sortNewestFirst = !d.sortNewestFirst
	return d.sortNewestFirst
}

// All returns every fetched alert in server order.
func (d *Dashboard) All() []models.Alert {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Alert(nil), d.alerts...)
}

// Active returns alerts that still need the responder: active, acknowledged or on-scene.
func (d *Dashboard) Active() []models.Alert {
	return d.partition(func(a models.Alert) bool { return a.Status.IsOpen() })
}

// History returns resolved and cancelled alerts.
func (d *Dashboard) History() []models.Alert {
	return d.partition(func(a models.Alert) bool { return a.Status.IsTerminal() })
}

// Visible applies the status filter, the type filter and the sort order.
func (d *Dashboard) Visible() []models.Alert {
	d.mu.RLock()
	f, tf, newest := d.filter, d.typeFilter, d.sortNewestFirst
	d.mu.RUnlock()
	return Apply(d.All(), f, tf, newest)
}

// Stats counts the fetched alerts.
func (d *Dashboard) Stats() Stats {
	return Count(d.All())
}

func (d *Dashboard) partition(keep func(models.Alert) bool) []models.Alert {
	d.mu.RLock()
	newest := d.sortNewestFirst
	d.mu.RUnlock()

	var out []models.Alert
	for _, a := range d.All() {
		if keep(a) {
			out = append(out, a)
		}
	}
	SortAlerts(out, newest)
	return out
}

// Apply filters and sorts a copy of list.
func Apply(list []models.Alert, f Filter, tf TypeFilter, newestFirst bool) []models.Alert {
	out := make([]models.Alert, 0, len(list))
	for _, a := range list {
		if f.Matches(a) && tf.Matches(a) {
			out = append(out, a)
		}
	}
	SortAlerts(out, newestFirst)
	return out
}

// Count buckets alerts by status. on-scene counts as active.
func Count(list []models.Alert) Stats {
	s := Stats{Total: len(list)}
	for _, a := range list {
		switch a.Status {
		case models.StatusActive, models.StatusOnScene:
			s.Active++
		case models.StatusAcknowledged:
			s.Acknowledged++
		case models.StatusResolved:
			s.Resolved++
		case models.StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}
