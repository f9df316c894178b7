package storage

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket = []byte("config") // version, timestamps, vault id
	ItemsBucket  = []byte("items")  // record strings, one per item key
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigVaultID  = []byte("vault_id")
	ConfigEnvelope = []byte("envelope")
)

var ErrNotInitialized = errors.New("database not initialized")

// Storage provides BBolt-based storage for seedvault
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a seedvault database
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure. It is safe to call on an
// initialized database.
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, ItemsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

func timeValue(tx *bolt.Tx, key []byte) (time.Time, error) {
	var t time.Time
	config := tx.Bucket(ConfigBucket)
	if config == nil {
		return t, ErrNotInitialized
	}
	data := config.Get(key)
	if data == nil {
		return t, fmt.Errorf("%s not found", key)
	}
	return t, t.UnmarshalBinary(data)
}

// GetCreated retrieves the creation timestamp
func (s *Storage) GetCreated() (time.Time, error) {
	var created time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		created, err = timeValue(tx, ConfigCreated)
		return err
	})
	return created, err
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		modified, err = timeValue(tx, ConfigModified)
		return err
	})
	return modified, err
}

// GetVaultID retrieves the vault ID from config bucket
func (s *Storage) GetVaultID() (string, error) {
	var vaultID string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigVaultID)
		if data == nil {
			return fmt.Errorf("vault_id not found")
		}
		vaultID = string(data)
		return nil
	})
	return vaultID, err
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (s *Storage) GetOrCreateVaultID() (string, error) {
	vaultID, err := s.GetVaultID()
	if err == nil {
		return vaultID, nil
	}

	vaultID = uuid.NewString()
	err = s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		return config.Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", err
	}

	return vaultID, nil
}

// PutEnvelope stores the sealed vault envelope, replacing any previous one
func (s *Storage) PutEnvelope(data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		if err := config.Put(ConfigEnvelope, data); err != nil {
			return err
		}
		return touch(tx)
	})
}

// GetEnvelope retrieves the sealed vault envelope
func (s *Storage) GetEnvelope() ([]byte, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		if v := config.Get(ConfigEnvelope); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	return data, data != nil, err
}

// PutItem stores a record string under key
func (s *Storage) PutItem(key, record string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		items := tx.Bucket(ItemsBucket)
		if items == nil {
			return ErrNotInitialized
		}
		if err := items.Put([]byte(key), []byte(record)); err != nil {
			return err
		}
		return touch(tx)
	})
}

// GetItem retrieves the record stored under key
func (s *Storage) GetItem(key string) (string, bool, error) {
	var (
		record string
		found  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		items := tx.Bucket(ItemsBucket)
		if items == nil {
			return ErrNotInitialized
		}
		data := items.Get([]byte(key))
		if data == nil {
			return nil
		}
		// string() copies; the slice is only valid during the transaction
		record = string(data)
		found = true
		return nil
	})
	return record, found, err
}

// HasItem checks if a record exists under key
func (s *Storage) HasItem(key string) (bool, error) {
	_, found, err := s.GetItem(key)
	return found, err
}

// DeleteItem removes the record stored under key
func (s *Storage) DeleteItem(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		items := tx.Bucket(ItemsBucket)
		if items == nil {
			return ErrNotInitialized
		}
		if err := items.Delete([]byte(key)); err != nil {
			return err
		}
		return touch(tx)
	})
}

// ListItems returns all item keys
func (s *Storage) ListItems() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		items := tx.Bucket(ItemsBucket)
		if items == nil {
			return nil
		}
		return items.ForEach(func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Compact creates a compacted copy of the database, removing unused space.
// Deleted records may otherwise linger in free pages.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	// Create new database
	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	// Reopen database
	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
