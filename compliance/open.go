package compliance

import (
	"bytes"
	"fmt"
	"os"

	"github.com/adrg/xdg"
	"go.uber.org/zap"

	"inliner/config"
	"inliner/misc"
)

// Open loads matrix according to configuration: from external file or
// built-in data, going through persistent cache when it is enabled. Cache
// problems are not fatal, matrix is parsed directly in this case.
func Open(cfg *config.ComplianceConfig, log *zap.Logger) (*Matrix, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("compliance")

	data, source := defaultMatrix, "built-in"
	if len(cfg.MatrixPath) > 0 {
		var err error
		if data, err = os.ReadFile(cfg.MatrixPath); err != nil {
			return nil, fmt.Errorf("unable to read compliance matrix: %w", err)
		}
		source = cfg.MatrixPath
	}

	if !cfg.Cache.Enable {
		return load(data, source, log)
	}

	path := cfg.Cache.Path
	if len(path) == 0 {
		var err error
		if path, err = xdg.CacheFile(misc.GetAppName() + "/compliance.db"); err != nil {
			log.Warn("Unable to locate compliance cache, ignoring", zap.Error(err))
			return load(data, source, log)
		}
	}

	cache, err := OpenCache(path, log)
	if err != nil {
		log.Warn("Unable to open compliance cache, ignoring", zap.String("path", path), zap.Error(err))
		return load(data, source, log)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.Warn("Unable to close compliance cache", zap.Error(err))
		}
	}()

	digest := Digest(data)
	m, ok, err := cache.Get(digest)
	if err != nil {
		log.Warn("Unable to read compliance cache, ignoring", zap.String("path", path), zap.Error(err))
	} else if ok {
		log.Debug("Compliance matrix loaded from cache", zap.String("source", source), zap.String("path", path))
		return m, nil
	}

	if m, err = load(data, source, log); err != nil {
		return nil, err
	}
	if err := cache.Put(digest, m); err != nil {
		log.Warn("Unable to update compliance cache", zap.String("path", path), zap.Error(err))
	}
	return m, nil
}

func load(data []byte, source string, log *zap.Logger) (*Matrix, error) {
	m, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to load compliance matrix (%s): %w", source, err)
	}
	log.Debug("Compliance matrix loaded", zap.String("source", source),
		zap.Int("clients", m.ClientCount()), zap.Int("properties", len(m.properties)))
	return m, nil
}
