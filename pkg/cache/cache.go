// Package cache persists expensive pipeline outputs (tracks, camera movement) in a local
// SQLite database. Entries are keyed by a caller chosen name and kind, and are only served
// back for the same input content hash and pipeline version.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

//ErrCacheMiss is returned by Load when there is no usable entry
var ErrCacheMiss = errors.New("cache miss")

//Kind is what an entry holds
type Kind string

const (
	KindTracks Kind = "tracks"
	KindCamera Kind = "camera"
)

//Entry is one cached blob
type Entry struct {
	CacheKey    string `gorm:"primaryKey"`
	Kind        Kind   `gorm:"primaryKey"`
	ContentHash string `gorm:"index"`
	Version     string
	Payload     datatypes.JSON
	UpdatedAt   time.Time
}

type Cache struct {
	db      *gorm.DB
	version string
	logger  zerolog.Logger
}

//Open opens (or creates) the cache database at path. Entries written by another pipeline
//version are never served.
func Open(path, version string, logger zerolog.Logger) (*Cache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cache: open %s", path)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			logger.Warn().Err(err).Str("pragma", pragma).Msg("cache: could not set pragma")
		}
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, errors.Wrap(err, "cache: migrate")
	}

	return &Cache{db: db, version: version, logger: logger.With().Str("component", "cache").Logger()}, nil
}

//Load decodes the entry (key, kind) into out. Any problem, including an entry computed from
//different content or by a different version, is reported as ErrCacheMiss.
func (c *Cache) Load(key string, kind Kind, contentHash string, out interface{}) error {
	var entry Entry
	err := c.db.Where("cache_key = ? AND kind = ?", key, kind).Take(&entry).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrapf(ErrCacheMiss, "%s/%s: absent", key, kind)
	case err != nil:
		c.logger.Warn().Err(err).Str("key", key).Str("kind", string(kind)).Msg("cache read failed")
		return errors.Wrapf(ErrCacheMiss, "%s/%s: %v", key, kind, err)
	case entry.ContentHash != contentHash:
		return errors.Wrapf(ErrCacheMiss, "%s/%s: content changed", key, kind)
	case entry.Version != c.version:
		return errors.Wrapf(ErrCacheMiss, "%s/%s: version %q, want %q", key, kind, entry.Version, c.version)
	}

	if err := json.Unmarshal(entry.Payload, out); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Str("kind", string(kind)).Msg("cache payload undecodable")
		return errors.Wrapf(ErrCacheMiss, "%s/%s: %v", key, kind, err)
	}
	return nil
}

//Save encodes v and stores it for (key, kind), replacing any previous entry
func (c *Cache) Save(key string, kind Kind, contentHash string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "cache: encode %s/%s", key, kind)
	}

	entry := Entry{
		CacheKey:    key,
		Kind:        kind,
		ContentHash: contentHash,
		Version:     c.version,
		Payload:     datatypes.JSON(payload),
	}
	err = c.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
	if err != nil {
		return errors.Wrapf(err, "cache: save %s/%s", key, kind)
	}
	c.logger.Debug().Str("key", key).Str("kind", string(kind)).Int("bytes", len(payload)).Msg("cache entry saved")
	return nil
}

func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

//HashFile returns the hex SHA-256 of a file's content
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "HashFile: %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "HashFile: %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
