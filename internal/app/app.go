// Package app wires configuration, persistence, the backend executor and every
// feature client into one object for the command line front end.
package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"GuardianAngel/internal/alerts"
	"GuardianAngel/internal/contacts"
	"GuardianAngel/internal/facilities"
	"GuardianAngel/internal/listeners"
	"GuardianAngel/internal/locations"
	"GuardianAngel/internal/profile"
	"GuardianAngel/internal/responder"
	"GuardianAngel/internal/router"
	"GuardianAngel/internal/session"
	"GuardianAngel/pkg/apiclient"
	"GuardianAngel/pkg/config"
	apperrors "GuardianAngel/pkg/errors"
	"GuardianAngel/pkg/i18n"
	"GuardianAngel/pkg/logger"
	"GuardianAngel/pkg/metrics"
	"GuardianAngel/pkg/scheduler"
	"GuardianAngel/pkg/storage"
	"GuardianAngel/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// App 客户端运行时
type App struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	I18n    *i18n.I18nSupport

	API        *apiclient.Client
	Session    *session.Store
	Navigator  *router.Navigator
	Alerts     *alerts.Client
	Dashboard  *alerts.Dashboard
	Incidents  *alerts.IncidentLog
	Contacts   *contacts.Book
	Locations  *locations.Registry
	Facilities *facilities.Client
	Responder  *responder.Client
	Profile    *profile.Client

	store  storage.Store
	detach func()
}

// New builds the App and restores the persisted session.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.FromEnv()
	}
	a := &App{Config: cfg}

	// 1. 指标
	if cfg.MetricsEnabled {
		a.Metrics = metrics.NewMetrics()
		metrics.SetGlobal(a.Metrics)
	}

	// 2. 文案
	tr, err := i18n.NewI18nSupport(cfg.Language)
	if err != nil {
		return nil, apperrors.Wrap(err, "load translations")
	}
	a.I18n = tr

	// 3. 会话存储
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.store = store

	// 4. 请求执行器
	a.API = apiclient.New(cfg.BaseURL, cfg.RequestTimeout, requestLogger(cfg), apiclient.WithMetrics(a.Metrics))

	// 5. 会话；当前 token 收到 401 时强制登出
	a.Session = session.New(a.API, store)
	a.API.SetUnauthorizedHandler(a.Session.ExpireToken)
	a.detach = listeners.InitSessionListeners(a.Session, a.Metrics)
	if err := a.Session.Restore(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	a.Navigator = router.NewNavigator(a.Session)

	// 6. 业务客户端
	a.Alerts = alerts.NewClient(a.API, a.Session, alerts.WithCooldown(cfg.PanicCooldown), alerts.WithMetrics(a.Metrics))
	a.Dashboard = alerts.NewDashboard(a.Alerts)
	a.Incidents = alerts.NewIncidentLog(a.Alerts)
	a.Contacts = contacts.NewBook(contacts.NewClient(a.API, a.Session))
	a.Locations = locations.NewRegistry(locations.NewClient(a.API, a.Session))
	a.Facilities = facilities.NewClient(a.API, a.Session,
		facilities.WithNearbyCache(cfg.NearbyCacheSize, cfg.NearbyCacheTTL),
		facilities.WithHospitalsTTL(cfg.HospitalsCacheTTL),
		facilities.WithMetrics(a.Metrics))
	a.Responder = responder.NewClient(a.API, a.Session, a.Metrics)
	a.Profile = profile.NewClient(a.API, a.Session)

	logger.Info("app ready",
		zap.String("base_url", cfg.BaseURL),
		zap.String("session_store", cfg.SessionStore),
		zap.Bool("authenticated", a.Session.IsAuthenticated()))
	return a, nil
}

// Message renders err for the user in the configured language.
func (a *App) Message(err error) string {
	return a.I18n.ErrorMessage(a.Config.Language, err)
}

// Refresh reloads the list behind the current screen, padded to the configured minimum delay.
func (a *App) Refresh(ctx context.Context) error {
	return util.PullToRefresh(ctx, a.Config.RefreshMinDelay, func(ctx context.Context) error {
		switch a.Navigator.Screen() {
		case router.ScreenResponderDashboard:
			return a.Dashboard.Refresh(ctx)
		case router.ScreenUserTabs:
			switch a.Navigator.Tab() {
			case router.TabContacts:
				return a.Contacts.Refresh(ctx)
			case router.TabLocations:
				return a.Locations.Refresh(ctx)
			default:
				return a.Incidents.Refresh(ctx)
			}
		}
		return apperrors.Validationf(apperrors.CodeNotAuthenticated, "not authenticated")
	})
}

// Watch refreshes on cfg.WatchSchedule until ctx is done. onTick sees each result.
func (a *App) Watch(ctx context.Context, onTick func(error)) error {
	cr := scheduler.NewCron(time.Local)
	if _, err := cr.AddWithCtx(a.Config.WatchSchedule, func(jobCtx context.Context) {
		err := a.Refresh(jobCtx)
		if err != nil {
			logger.Warn("watch refresh failed", zap.Error(err))
		}
		if onTick != nil {
			onTick(err)
		}
	}); err != nil {
		return apperrors.Validationf(apperrors.CodeValidation, "invalid watch schedule %q: %v", a.Config.WatchSchedule, err)
	}
	stopExporter, err := a.serveMetrics()
	if err != nil {
		return err
	}
	defer stopExporter()

	cr.Start()
	<-ctx.Done()
	cr.Stop()
	return nil
}

// MetricsRouter 导出指标的路由；未启用指标时 /metrics 返回 404
func (a *App) MetricsRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	return r
}

// serveMetrics 在 cfg.MetricsAddr 上监听，返回的函数负责关闭
func (a *App) serveMetrics() (func(), error) {
	if a.Metrics == nil || a.Config.MetricsAddr == "" {
		return func() {}, nil
	}
	srv := &http.Server{Addr: a.Config.MetricsAddr, Handler: a.MetricsRouter(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 端口冲突等监听失败会很快返回
	select {
	case err := <-errCh:
		return nil, apperrors.Wrapf(err, "serve metrics on %s", a.Config.MetricsAddr)
	case <-time.After(50 * time.Millisecond):
	}
	logger.Info("metrics exporter listening", zap.String("addr", a.Config.MetricsAddr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics exporter shutdown failed", zap.Error(err))
		}
	}, nil
}

// Close releases storage and detaches listeners.
func (a *App) Close() error {
	if a.Navigator != nil {
		a.Navigator.Close()
	}
	if a.detach != nil {
		a.detach()
	}
	if a.Facilities != nil {
		_ = a.Facilities.Close()
	}
	_ = logger.Sync()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.SessionStore {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite", "":
		st, err := storage.OpenSQLStore(cfg.SessionDB)
		if err != nil {
			return nil, apperrors.Wrapf(err, "open session db %s", cfg.SessionDB)
		}
		return st, nil
	}
	return nil, apperrors.Validationf(apperrors.CodeValidation, "unknown session store %q", cfg.SessionStore)
}

// requestLogger 请求级日志使用 logrus，debug 级别时输出到 stderr
func requestLogger(cfg *config.Config) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	if level >= logrus.DebugLevel {
		l.SetOutput(os.Stderr)
	} else {
		l.SetOutput(io.Discard)
	}
	return l
}
