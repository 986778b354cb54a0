package listeners

import (
	"GuardianAngel/internal/session"
	"GuardianAngel/pkg/logger"
	"GuardianAngel/pkg/metrics"

	"go.uber.org/zap"
)

// Subscriber is satisfied by *session.Store.
type Subscriber interface {
	Subscribe(fn func(session.Event)) func()
}

// InitSessionListeners logs and counts every session event. The returned func detaches it.
func InitSessionListeners(src Subscriber, m *metrics.Metrics) func() {
	return src.Subscribe(func(ev session.Event) {
		m.RecordSessionEvent(string(ev.Type))

		fields := []zap.Field{
			zap.String("event", string(ev.Type)),
			zap.Bool("authenticated", ev.State.IsAuthenticated),
			zap.String("acting", string(ev.State.Acting)),
		}
		if ev.State.CurrentUser != nil {
			fields = append(fields, zap.String("user_id", ev.State.CurrentUser.ID), zap.String("role", string(ev.State.CurrentUser.Role)))
		}

		switch ev.Type {
		case session.EventSessionExpired:
			// 401 强制登出
			logger.Warn("session expired, signed out", fields...)
		case session.EventNavigationReset:
			logger.Debug("session event", fields...)
		default:
			logger.Info("session event", fields...)
		}
	})
}
