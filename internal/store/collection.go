package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// GetCollection reads a whole collection. A missing collection is empty.
func GetCollection[T any](ctx context.Context, s *Store, name string) ([]T, error) {
	recs, err := s.records(ctx, name)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(recs))
	for _, r := range recs {
		var item T
		if err := decode(name+"/"+r.Key, r.Data, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// SetCollection replaces a whole collection. key names each record.
func SetCollection[T any](ctx context.Context, s *Store, name string, items []T, key func(T) string) error {
	recs, err := encodeAll(items, key)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.replace(ctx, name, recs)
}

// SaveRecord writes a collection after changed was added or modified in items.
// When the whole-collection write exceeds the storage quota, it retries once
// writing only changed, then gives up with a narrowed CapacityError.
func SaveRecord[T any](ctx context.Context, s *Store, name string, items []T, changed T, key func(T) string) error {
	err := SetCollection(ctx, s, name, items, key)
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		return err
	}
	slog.Warn("collection write exceeds quota, retrying with single record",
		"collection", name, "key", key(changed), "size", capErr.Size, "limit", capErr.Limit)

	data, err := json.Marshal(changed)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", name, key(changed), err)
	}
	err = s.put(ctx, name, Record{Key: key(changed), Data: data})
	if errors.As(err, &capErr) {
		capErr.Narrowed = true
		slog.Error("narrowed write failed", "collection", name, "key", key(changed), "error", capErr)
		return capErr
	}
	return err
}

// GetData reads a singleton. ok is false when it was never written.
func GetData[T any](ctx context.Context, s *Store, key string) (v T, ok bool, err error) {
	data, err := s.value(ctx, key)
	if err != nil || data == nil {
		return v, false, err
	}
	if err := decode(key, data, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}

// SetData replaces a singleton.
func SetData[T any](ctx context.Context, s *Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.setValue(ctx, key, data)
}

func encodeAll[T any](items []T, key func(T) string) ([]Record, error) {
	recs := make([]Record, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		recs = append(recs, Record{Key: key(item), Data: data})
	}
	return recs, nil
}
