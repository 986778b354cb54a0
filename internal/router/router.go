// Package router decides which top-level screen the app shows for a session.
package router

import (
	"sync"

	"GuardianAngel/internal/models"
	"GuardianAngel/internal/session"
	apperrors "GuardianAngel/pkg/errors"
	"GuardianAngel/pkg/logger"

	"go.uber.org/zap"
)

// Screen 顶层页面
type Screen string

const (
	ScreenLogin              Screen = "login"
	ScreenUserTabs           Screen = "user_tabs"
	ScreenResponderDashboard Screen = "responder_dashboard"
)

// Tab 普通用户的标签页
type Tab string

const (
	TabHome      Tab = "home"
	TabContacts  Tab = "contacts"
	TabIncidents Tab = "incidents"
	TabLocations Tab = "locations"
	TabProfile   Tab = "profile"
)

// Tabs returns the user tab bar in display order.
func Tabs() []Tab {
	return []Tab{TabHome, TabContacts, TabIncidents, TabLocations, TabProfile}
}

// Resolve maps a session snapshot to a screen.
func Resolve(st session.State) Screen {
	if !st.IsAuthenticated || st.CurrentUser == nil {
		return ScreenLogin
	}
	if st.CurrentUser.Role == models.RoleRespondent {
		return ScreenResponderDashboard
	}
	return ScreenUserTabs
}

// Source is the session surface the navigator needs.
type Source interface {
	State() session.State
	Subscribe(fn func(session.Event)) func()
	ResetNavigationState()
}

// Navigator tracks the current screen and tab and follows session changes.
type Navigator struct {
	src         Source
	unsubscribe func()

	mu        sync.RWMutex
	screen    Screen
	tab       Tab
	listeners []func(Screen, Tab)
}

func NewNavigator(src Source) *Navigator {
	n := &Navigator{src: src, tab: TabHome}
	n.screen = Resolve(src.State())
	n.unsubscribe = src.Subscribe(n.onEvent)
	n.consumeNavigationFlag(src.State())
	return n
}

// Close stops following the session.
func (n *Navigator) Close() {
	if n.unsubscribe != nil {
		n.unsubscribe()
		n.unsubscribe = nil
	}
}

func (n *Navigator) Screen() Screen {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.screen
}

func (n *Navigator) Tab() Tab {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.tab
}

// SelectTab switches tabs; only valid on the user tab screen.
func (n *Navigator) SelectTab(tab Tab) error {
	valid := false
	for _, t := range Tabs() {
		if t == tab {
			valid = true
			break
		}
	}
	if !valid {
		return apperrors.Validationf(apperrors.CodeValidation, "unknown tab %q", tab)
	}

	n.mu.Lock()
	if n.screen != ScreenUserTabs {
		screen := n.screen
		n.mu.Unlock()
		return apperrors.Validationf(apperrors.CodeValidation, "tabs are not available on %s", screen)
	}
	changed := n.tab != tab
	n.tab = tab
	screen := n.screen
	listeners := append([]func(Screen, Tab){}, n.listeners...)
	n.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(screen, tab)
		}
	}
	return nil
}

// OnChange registers fn for screen or tab changes.
func (n *Navigator) OnChange(fn func(Screen, Tab)) {
	n.mu.Lock()
	n.listeners = append(n.listeners, fn)
	n.mu.Unlock()
}

func (n *Navigator) onEvent(ev session.Event) {
	next := Resolve(ev.State)

	n.mu.Lock()
	changed := next != n.screen
	if changed {
		logger.Debug("navigate", zap.String("from", string(n.screen)), zap.String("to", string(next)), zap.String("event", string(ev.Type)))
		n.screen = next
		n.tab = TabHome
	}
	tab := n.tab
	listeners := append([]func(Screen, Tab){}, n.listeners...)
	n.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(next, tab)
		}
	}
	n.consumeNavigationFlag(ev.State)
}

// consumeNavigationFlag 已显示急救员面板后清除跳转标记
func (n *Navigator) consumeNavigationFlag(st session.State) {
	if st.ShouldNavigateToResponderDashboard && n.Screen() == ScreenResponderDashboard {
		n.src.ResetNavigationState()
	}
}
