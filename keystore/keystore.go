// Package keystore keeps the secret seeds a node derives its key pairs from.
//
// Seeds are stored in a bbolt bucket, either in a file of their own or in the
// bucket onet gives every service. A seed is created once, the first time its
// name is asked for, and never changes afterwards.
package keystore

import (
	"errors"
	"fmt"
	"time"

	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	bolt "go.etcd.io/bbolt"
)

// SeedSize is the length of every seed held by a Store.
const SeedSize = 32

var (
	// ErrCorruptSeed is returned when a stored value is not SeedSize long.
	ErrCorruptSeed = errors.New("stored seed has wrong length")
	// ErrEmptyName is returned for an empty seed name.
	ErrEmptyName = errors.New("seed name is empty")
)

var defaultBucket = []byte("identity-seeds")

// Store maps seed names to seeds with get-or-create semantics.
type Store interface {
	GetOrCreate(name string) ([]byte, error)
}

// BoltStore is a Store on top of a bbolt bucket.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
	// owned is true when Close has to close db.
	owned bool
}

// Open opens or creates the seed file at path.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening seed store %s: %w", path, err)
	}
	s := &BoltStore{db: db, bucket: defaultBucket, owned: true}
	if err := s.ensureBucket(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// FromContext returns a Store that lives in the service's own database. The
// database is closed by onet, Close is a no-op for such a store.
func FromContext(c *onet.Context) (*BoltStore, error) {
	db, bucket := c.GetAdditionalBucket(defaultBucket)
	if db == nil {
		return nil, errors.New("service has no database")
	}
	s := &BoltStore{db: db, bucket: bucket}
	if err := s.ensureBucket(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) ensureBucket() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
}

// GetOrCreate returns the seed stored under name. If there is none, a fresh
// random seed is stored and returned. Lookup and creation happen in the same
// write transaction, and the transaction is synced to disk before this
// returns.
func (s *BoltStore) GetOrCreate(name string) ([]byte, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	var seed []byte
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s is missing", s.bucket)
		}
		if v := b.Get([]byte(name)); v != nil {
			if len(v) != SeedSize {
				return fmt.Errorf("%s: %w", name, ErrCorruptSeed)
			}
			seed = append([]byte{}, v...)
			return nil
		}
		seed = make([]byte, SeedSize)
		random.New().XORKeyStream(seed, seed)
		log.Lvl2("Created new seed", name)
		return b.Put([]byte(name), seed)
	})
	if err != nil {
		return nil, err
	}
	return seed, nil
}

// Has reports whether a seed is stored under name, without creating it.
func (s *BoltStore) Has(name string) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(s.bucket); b != nil {
			found = b.Get([]byte(name)) != nil
		}
		return nil
	})
	return found, err
}

// Close releases the file of a store created with Open.
func (s *BoltStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
