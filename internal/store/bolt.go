package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketCollections = []byte("collections")
	bucketSingletons  = []byte("singletons")
	bucketOrder       = []byte("order")
	bucketData        = []byte("data")
)

// Bolt stores documents in an embedded bbolt file. Each collection is a
// bucket holding an order bucket (sequence -> key) and a data bucket
// (key -> JSON).
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) the bbolt file at path.
func OpenBolt(path string) (*Bolt, error) {
	if path == "" {
		path = "classbook.bolt"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketCollections, bucketSingletons} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

// collectionBuckets returns the order and data buckets, creating them when create is set.
func collectionBuckets(tx *bbolt.Tx, collection string, create bool) (order, data *bbolt.Bucket, err error) {
	root := tx.Bucket(bucketCollections)
	c := root.Bucket([]byte(collection))
	if c == nil {
		if !create {
			return nil, nil, nil
		}
		if c, err = root.CreateBucket([]byte(collection)); err != nil {
			return nil, nil, err
		}
	}
	if order, err = bucketIn(c, bucketOrder, create); err != nil {
		return nil, nil, err
	}
	if data, err = bucketIn(c, bucketData, create); err != nil {
		return nil, nil, err
	}
	return order, data, nil
}

func bucketIn(parent *bbolt.Bucket, name []byte, create bool) (*bbolt.Bucket, error) {
	if create {
		return parent.CreateBucketIfNotExists(name)
	}
	return parent.Bucket(name), nil
}

// Records returns a collection's records in insertion order.
func (b *Bolt) Records(_ context.Context, collection string) ([]Record, error) {
	var recs []Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		order, data, err := collectionBuckets(tx, collection, false)
		if err != nil || order == nil || data == nil {
			return err
		}
		return order.ForEach(func(_, key []byte) error {
			v := data.Get(key)
			if v == nil {
				return nil
			}
			recs = append(recs, Record{Key: string(key), Data: append([]byte(nil), v...)})
			return nil
		})
	})
	return recs, err
}

// ReplaceRecords drops and rebuilds the collection bucket in one transaction.
func (b *Bolt) ReplaceRecords(_ context.Context, collection string, recs []Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketCollections)
		if root.Bucket([]byte(collection)) != nil {
			if err := root.DeleteBucket([]byte(collection)); err != nil {
				return err
			}
		}
		order, data, err := collectionBuckets(tx, collection, true)
		if err != nil {
			return err
		}
		for _, r := range recs {
			seq, err := order.NextSequence()
			if err != nil {
				return err
			}
			if err := order.Put(seqKey(seq), []byte(r.Key)); err != nil {
				return err
			}
			if err := data.Put([]byte(r.Key), r.Data); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutRecord updates a record in place or appends it.
func (b *Bolt) PutRecord(_ context.Context, collection string, rec Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		order, data, err := collectionBuckets(tx, collection, true)
		if err != nil {
			return err
		}
		if data.Get([]byte(rec.Key)) == nil {
			seq, err := order.NextSequence()
			if err != nil {
				return err
			}
			if err := order.Put(seqKey(seq), []byte(rec.Key)); err != nil {
				return err
			}
		}
		return data.Put([]byte(rec.Key), rec.Data)
	})
}

// Value returns a singleton, or nil if it was never written.
func (b *Bolt) Value(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketSingletons).Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

// SetValue writes a singleton.
func (b *Bolt) SetValue(_ context.Context, key string, data []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSingletons).Put([]byte(key), data)
	})
}

// Collections lists collection bucket names.
func (b *Bolt) Collections(_ context.Context) ([]string, error) {
	var names []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCollections).ForEach(func(k, v []byte) error {
			if v == nil {
				names = append(names, string(k))
			}
			return nil
		})
	})
	return names, err
}

// Keys lists singleton keys.
func (b *Bolt) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSingletons).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}
