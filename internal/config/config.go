package config

type Config interface {
	EnvConfig
	StorageConfig
	GatewayConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetClientID() string
	GetAPIBaseURL() string
}

type mainConfig struct {
	EnvVars
	Storage
	Gateway
}

func New() Config {
	return mainConfig{}
}
