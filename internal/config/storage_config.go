package config

import "path/filepath"

type StorageConfig interface {
	GetDataFolder() string
	GetCachePath() string
	GetCacheKey() string
}

type Storage struct {
	source
}

var _ StorageConfig = Storage{}

func (s Storage) GetDataFolder() string {
	return s.getString("FOLDER", "./data")
}

func (s Storage) GetCachePath() string {
	return s.getString("CACHE_PATH", filepath.Join(s.GetDataFolder(), "cache"))
}

// GetCacheKey returns the optional secret used to seal cached values at rest.
func (s Storage) GetCacheKey() string {
	return s.getString("CACHE_KEY", "")
}
