package badger

import (
	"os"
	"time"

	"github.com/jrsteele09/go-insta-auth/internal/config"
	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/timshannon/badgerhold/v4"
)

// DB is the local key/value store behind the session cache and the CMS token store.
type DB struct {
	store  *badgerhold.Store
	sealer *sealer
	logger zerolog.Logger
}

type openOptions struct {
	inMemory bool
	cacheKey *string
	logger   zerolog.Logger
}

// Option defines a function type to modify how the store is opened.
type Option func(*openOptions)

// WithInMemory keeps everything in memory; nothing is written to disk.
func WithInMemory() Option {
	return func(o *openOptions) {
		o.inMemory = true
	}
}

// WithCacheKey overrides the configured sealing secret. An empty secret disables sealing.
func WithCacheKey(secret string) Option {
	return func(o *openOptions) {
		o.cacheKey = &secret
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *openOptions) {
		o.logger = logger
	}
}

// Open opens the store at cfg.GetCachePath().
func Open(cfg config.StorageConfig, options ...Option) (*DB, error) {
	opts := openOptions{logger: log.Logger}
	for _, opt := range options {
		opt(&opts)
	}

	secret := cfg.GetCacheKey()
	if opts.cacheKey != nil {
		secret = *opts.cacheKey
	}
	s, err := newSealer(secret)
	if err != nil {
		return nil, err
	}

	bhOptions := badgerhold.DefaultOptions
	bhOptions.Logger = nil
	if opts.inMemory {
		bhOptions.InMemory = true
		bhOptions.Dir = ""
		bhOptions.ValueDir = ""
	} else {
		path := cfg.GetCachePath()
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, errors.Wrapf(err, "Open create %s", path)
		}
		bhOptions.Dir = path
		bhOptions.ValueDir = path
	}

	store, err := badgerhold.Open(bhOptions)
	if err != nil {
		return nil, errors.Wrapf(err, "Open badgerhold")
	}
	opts.logger.Debug().Bool("in_memory", opts.inMemory).Bool("sealed", s != nil).Msg("Local store opened")

	return &DB{store: store, sealer: s, logger: opts.logger}, nil
}

func (db *DB) Close() error {
	if db.store != nil {
		return db.store.Close()
	}
	return nil
}

// record is the stored form of every value.
type record struct {
	Key       string `badgerhold:"key"`
	Value     []byte
	Sealed    bool
	UpdatedAt time.Time
}

func (db *DB) get(key string) ([]byte, error) {
	var rec record
	err := db.store.Get(key, &rec)
	if err == badgerhold.ErrNotFound {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", key)
	}
	if !rec.Sealed {
		return rec.Value, nil
	}
	if db.sealer == nil {
		return nil, errors.Wrapf(errSealed, "get %s", key)
	}
	plain, err := db.sealer.open(rec.Value, []byte(key))
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", key)
	}
	return plain, nil
}

func (db *DB) put(key string, value []byte) error {
	rec := record{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	if db.sealer != nil {
		sealed, err := db.sealer.seal(value, []byte(key))
		if err != nil {
			return errors.Wrapf(err, "put %s", key)
		}
		rec.Value, rec.Sealed = sealed, true
	}
	if err := db.store.Upsert(key, &rec); err != nil {
		return errors.Wrapf(err, "put %s", key)
	}
	return nil
}

func (db *DB) remove(key string) error {
	err := db.store.Delete(key, &record{})
	if err == nil || err == badgerhold.ErrNotFound {
		return nil
	}
	return errors.Wrapf(err, "remove %s", key)
}
