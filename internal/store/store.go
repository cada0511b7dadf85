package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Driver selects a storage backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverBolt     Driver = "bolt"
)

// Record is one stored item of a collection.
type Record struct {
	Key  string
	Data []byte
}

// Backend persists ordered record collections and singleton values.
// Records keep insertion order; PutRecord keeps an existing record's
// position and appends new ones.
type Backend interface {
	Records(ctx context.Context, collection string) ([]Record, error)
	ReplaceRecords(ctx context.Context, collection string, recs []Record) error
	PutRecord(ctx context.Context, collection string, rec Record) error
	// Value returns nil, nil when the key is missing.
	Value(ctx context.Context, key string) ([]byte, error)
	SetValue(ctx context.Context, key string, data []byte) error
	Collections(ctx context.Context) ([]string, error)
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Options configures Open.
type Options struct {
	Driver Driver
	DSN    string
	// MaxWriteBytes caps the payload of a single write. Zero means unlimited.
	MaxWriteBytes int
}

// Store is the single shared document store. Collections are read and
// replaced whole; there is no concurrent writer.
type Store struct {
	backend       Backend
	maxWriteBytes int
}

// Open opens the backend selected by opts.Driver.
func Open(ctx context.Context, opts Options) (*Store, error) {
	var (
		b   Backend
		err error
	)
	switch opts.Driver {
	case DriverSQLite, DriverPostgres, "":
		driver := opts.Driver
		if driver == "" {
			driver = DriverSQLite
		}
		b, err = OpenSQL(ctx, driver, opts.DSN)
	case DriverBolt:
		b, err = OpenBolt(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	slog.Debug("opened store", "driver", opts.Driver, "dsn", opts.DSN)
	return New(b, opts.MaxWriteBytes), nil
}

// New wraps an already opened backend.
func New(b Backend, maxWriteBytes int) *Store {
	return &Store{backend: b, maxWriteBytes: maxWriteBytes}
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) checkQuota(collection string, size int) error {
	if s.maxWriteBytes > 0 && size > s.maxWriteBytes {
		return &CapacityError{Collection: collection, Size: size, Limit: s.maxWriteBytes}
	}
	return nil
}

func (s *Store) records(ctx context.Context, collection string) ([]Record, error) {
	recs, err := s.backend.Records(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", collection, err)
	}
	return recs, nil
}

func (s *Store) replace(ctx context.Context, collection string, recs []Record) error {
	size := 0
	for _, r := range recs {
		size += len(r.Data)
	}
	if err := s.checkQuota(collection, size); err != nil {
		return err
	}
	if err := s.backend.ReplaceRecords(ctx, collection, recs); err != nil {
		return fmt.Errorf("write collection %s: %w", collection, err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, collection string, rec Record) error {
	if err := s.checkQuota(collection, len(rec.Data)); err != nil {
		return err
	}
	if err := s.backend.PutRecord(ctx, collection, rec); err != nil {
		return fmt.Errorf("write record %s/%s: %w", collection, rec.Key, err)
	}
	return nil
}

func (s *Store) value(ctx context.Context, key string) ([]byte, error) {
	data, err := s.backend.Value(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) setValue(ctx context.Context, key string, data []byte) error {
	if err := s.checkQuota(key, len(data)); err != nil {
		return err
	}
	if err := s.backend.SetValue(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func decode[T any](name string, data []byte, out *T) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w: %w", name, ErrCorrupt, err)
	}
	return nil
}
