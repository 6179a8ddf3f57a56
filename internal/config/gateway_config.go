package config

import (
	"time"
)

type GatewayConfig interface {
	GetRequestTimeout() time.Duration
	GetRedirectDelay() time.Duration
	GetForbiddenPolicy() string
}

type Gateway struct{}

var _ GatewayConfig = Gateway{}

// GetRequestTimeout returns zero when unset so the client's own timeout applies.
func (Gateway) GetRequestTimeout() time.Duration {
	return getDuration("REQUEST_TIMEOUT", 0)
}

func (Gateway) GetRedirectDelay() time.Duration {
	return getDuration("REDIRECT_DELAY", 0)
}

// GetForbiddenPolicy returns "teardown", "permission" or "" (client default).
func (Gateway) GetForbiddenPolicy() string {
	return GetEnv("FORBIDDEN_POLICY", "")
}

func getDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
