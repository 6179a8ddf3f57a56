package config

import (
	"os"
	"strings"
)

const (
	appNameVar  = "APP_NAME"
	logLevelVar = "LOG_LEVEL"
	clientVar   = "CLIENT"
	baseURLVar  = "API_BASE_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Session Client")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetClientID selects which client runtime (admin, pc, mini) this process acts as.
func (EnvVars) GetClientID() string {
	return strings.ToLower(GetEnv(clientVar, "pc"))
}

// GetAPIBaseURL overrides the client's default API base URL when set.
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, ""), "/")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
