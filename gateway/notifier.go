package gateway

import (
	"time"

	"github.com/rs/zerolog"
)

// Notifier is the user-facing message channel (toasts in the original clients).
// The gateway always notifies before returning a failure, so call sites need no
// error UI of their own.
type Notifier interface {
	Error(message string)
	Warn(message string, duration time.Duration)
}

// Navigator moves the client to its login surface.
type Navigator interface {
	RedirectToLogin(route string)
}

// NavigatorFunc adapts a function to a Navigator
type NavigatorFunc func(route string)

func (f NavigatorFunc) RedirectToLogin(route string) {
	f(route)
}

// LogNotifier writes notifications to a zerolog logger. It is the default for
// headless clients.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Error(message string) {
	n.Logger.Error().Str("notice", message).Msg("request failed")
}

func (n LogNotifier) Warn(message string, duration time.Duration) {
	n.Logger.Warn().Str("notice", message).Dur("duration", duration).Msg("session notice")
}

// LogNavigator records redirects in the log.
type LogNavigator struct {
	Logger zerolog.Logger
}

func (n LogNavigator) RedirectToLogin(route string) {
	n.Logger.Info().Str("route", route).Msg("redirect to login")
}
