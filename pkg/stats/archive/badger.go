package archive

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerConfig configures a Badger-backed archive.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool
}

// Badger is an Archive stored in a BadgerDB. The database is safe for
// concurrent use but the context cursor is not; share the DB, not the Badger.
type Badger struct {
	cursor
	db     *badger.DB
	logger *zap.Logger
}

var _ Archive = (*Badger)(nil)

type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.logger.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }

// OpenBadger opens, or creates, the database described by cfg.
func OpenBadger(cfg BadgerConfig, logger *zap.Logger) (*Badger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("archive: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create archive directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{logger: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	logger.Debug("archive opened", zap.String("path", cfg.Path), zap.Bool("in_memory", cfg.InMemory))
	return &Badger{db: db, logger: logger}, nil
}

func (b *Badger) set(key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *Badger) get(key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

func (b *Badger) WriteUint(key string, v uint64) error {
	full := b.key(key)
	raw, err := encodeUint(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", full, err)
	}
	if err := b.set(full, raw); err != nil {
		return fmt.Errorf("write %s: %w", full, err)
	}
	return nil
}

func (b *Badger) WriteColumn(key string, col []float64) error {
	full := b.key(key)
	raw, err := encodeColumn(col)
	if err != nil {
		return fmt.Errorf("encode %s: %w", full, err)
	}
	if err := b.set(full, raw); err != nil {
		return fmt.Errorf("write %s: %w", full, err)
	}
	return nil
}

func (b *Badger) ReadUint(key string) (uint64, error) {
	full := b.key(key)
	raw, err := b.get(full)
	if err != nil {
		return 0, err
	}
	return decodeUint(full, raw)
}

func (b *Badger) ReadColumn(key string) ([]float64, error) {
	full := b.key(key)
	raw, err := b.get(full)
	if err != nil {
		return nil, err
	}
	return decodeColumn(full, raw)
}

// Keys lists the stored keys below prefix in lexical order.
func (b *Badger) Keys(prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	return keys, nil
}

func (b *Badger) Close() error {
	b.logger.Debug("archive closed")
	return b.db.Close()
}
