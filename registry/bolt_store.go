// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	bbolt "go.etcd.io/bbolt"

	"github.com/actorgrid/actorgrid/actor"
)

const (
	boltFileMode   os.FileMode = 0o600
	servicesBucket             = "services"
	actorsBucket               = "actors"
)

var (
	defaultBoltOptions = &bbolt.Options{Timeout: 5 * time.Second, NoGrowSync: true}
	errBoltStoreClosed = errors.New("registry: boltdb store is closed")
)

// actorRecord is the persisted shape of an ActorEntry. The state is kept by
// name so that reordering the State constants never corrupts a database.
type actorRecord struct {
	ActorID    string    `cbor:"1,keyasint"`
	ActorType  string    `cbor:"2,keyasint"`
	ServiceID  string    `cbor:"3,keyasint"`
	ServiceURL string    `cbor:"4,keyasint"`
	State      string    `cbor:"5,keyasint"`
	CreatedAt  time.Time `cbor:"6,keyasint"`
	UpdatedAt  time.Time `cbor:"7,keyasint"`
}

type serviceRecord struct {
	ID            string    `cbor:"1,keyasint"`
	URL           string    `cbor:"2,keyasint"`
	RegisteredAt  time.Time `cbor:"3,keyasint"`
	LastHeartbeat time.Time `cbor:"4,keyasint"`
	Active        bool      `cbor:"5,keyasint"`
}

// BoltStore is a durable Store backed by go.etcd.io/bbolt.
//
// Entries are CBOR encoded in two buckets. bbolt serializes writers, the
// store only guards its closed flag.
type BoltStore struct {
	db     *bbolt.DB
	path   string
	enc    cbor.EncMode
	closed atomic.Bool
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens or creates the database file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, errors.New("registry: boltdb path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("registry: unable to create boltdb directory: %w", err)
	}

	optionsCopy := *defaultBoltOptions
	db, err := bbolt.Open(path, boltFileMode, &optionsCopy)
	if err != nil {
		return nil, fmt.Errorf("registry: opening boltdb: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{servicesBucket, actorsBucket} {
			if _, e := tx.CreateBucketIfNotExists([]byte(name)); e != nil {
				return e
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: initializing boltdb buckets: %w", err)
	}

	enc, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db, path: path, enc: enc}, nil
}

// Path returns the database file path.
func (s *BoltStore) Path() string { return s.path }

// PutService implements Store.
func (s *BoltStore) PutService(ctx context.Context, service ServiceInfo) error {
	data, err := s.enc.Marshal(serviceRecord(service))
	if err != nil {
		return err
	}
	return s.put(ctx, servicesBucket, service.ID, data)
}

// DeleteService implements Store.
func (s *BoltStore) DeleteService(ctx context.Context, serviceID string) error {
	return s.delete(ctx, servicesBucket, serviceID)
}

// Services implements Store.
func (s *BoltStore) Services(ctx context.Context) ([]ServiceInfo, error) {
	var out []ServiceInfo
	err := s.scan(ctx, servicesBucket, func(raw []byte) error {
		var record serviceRecord
		if err := cbor.Unmarshal(raw, &record); err != nil {
			return err
		}
		out = append(out, ServiceInfo(record))
		return nil
	})
	return out, err
}

// PutActor implements Store.
func (s *BoltStore) PutActor(ctx context.Context, entry ActorEntry) error {
	data, err := s.enc.Marshal(actorRecord{
		ActorID:    entry.ActorID,
		ActorType:  entry.ActorType,
		ServiceID:  entry.ServiceID,
		ServiceURL: entry.ServiceURL,
		State:      entry.State.String(),
		CreatedAt:  entry.CreatedAt,
		UpdatedAt:  entry.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return s.put(ctx, actorsBucket, entry.ActorID, data)
}

// DeleteActor implements Store.
func (s *BoltStore) DeleteActor(ctx context.Context, actorID string) error {
	return s.delete(ctx, actorsBucket, actorID)
}

// Actors implements Store.
func (s *BoltStore) Actors(ctx context.Context) ([]ActorEntry, error) {
	var out []ActorEntry
	err := s.scan(ctx, actorsBucket, func(raw []byte) error {
		var record actorRecord
		if err := cbor.Unmarshal(raw, &record); err != nil {
			return err
		}
		state, ok := actor.ParseState(record.State)
		if !ok {
			return fmt.Errorf("registry: actor %s has unknown state %q", record.ActorID, record.State)
		}
		out = append(out, ActorEntry{
			ActorID:    record.ActorID,
			ActorType:  record.ActorType,
			ServiceID:  record.ServiceID,
			ServiceURL: record.ServiceURL,
			State:      state,
			CreatedAt:  record.CreatedAt,
			UpdatedAt:  record.UpdatedAt,
		})
		return nil
	})
	return out, err
}

// Close releases the database handle. The file is kept.
func (s *BoltStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) put(ctx context.Context, bucketName, key string, data []byte) error {
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("registry: bucket %q missing", bucketName)
		}
		return bucket.Put([]byte(key), data)
	})
}

func (s *BoltStore) delete(ctx context.Context, bucketName, key string) error {
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("registry: bucket %q missing", bucketName)
		}
		return bucket.Delete([]byte(key))
	})
}

func (s *BoltStore) scan(ctx context.Context, bucketName string, fn func(raw []byte) error) error {
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("registry: bucket %q missing", bucketName)
		}
		return bucket.ForEach(func(_, value []byte) error {
			return fn(value)
		})
	})
}

func (s *BoltStore) ensureOpen(ctx context.Context) error {
	if s.closed.Load() {
		return errBoltStoreClosed
	}
	return contextErr(ctx)
}
