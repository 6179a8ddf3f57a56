package config

import (
	"path/filepath"
	"strings"
)

type StorageBackend string

const (
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
	StorageMemory StorageBackend = "memory"
)

type StorageConfig interface {
	GetStorageBackend() StorageBackend
	GetDataFolder() string
	GetStoragePath(clientID string) string
	GetStoragePassphrase() string
	GetRedisAddr() string
	GetRedisPrefix() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStorageBackend() StorageBackend {
	switch StorageBackend(strings.ToLower(GetEnv("STORAGE_BACKEND", string(StorageFile)))) {
	case StorageRedis:
		return StorageRedis
	case StorageMemory:
		return StorageMemory
	default:
		return StorageFile
	}
}

func (Storage) GetDataFolder() string {
	return GetEnv("FOLDER", "./data")
}

// GetStoragePath keeps one file per client so the admin and user sessions never share keys.
func (s Storage) GetStoragePath(clientID string) string {
	return filepath.Join(s.GetDataFolder(), clientID+"-session.db")
}

func (Storage) GetStoragePassphrase() string {
	return GetEnv("STORAGE_PASSPHRASE", "")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "session-client")
}
