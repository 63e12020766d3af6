package common

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	json "github.com/goccy/go-json"
	"github.com/samber/do/v2"
	bolt "go.etcd.io/bbolt"
)

const (
	RegistryAssetsBucket = "registry:assets"

	LedgerVotersBucket = "ledger:voters"
	LedgerVotesBucket  = "ledger:votes"
	LedgerReplayBucket = "ledger:replay"
	LedgerStatsBucket  = "ledger:stats"

	LotteryAwardsBucket = "lottery:awards"

	TreasuryStateBucket = "treasury:state"
)

var ErrBucketNotFound = errors.New("bucket doesn't exist")

type DatabaseService struct {
	DB *bolt.DB
}

func NewDatabaseService(i do.Injector) (*DatabaseService, error) {
	dataDir := do.MustInvokeNamed[string](i, "data-dir")

	return OpenDatabase(dataDir)
}

func OpenDatabase(dataDir string) (*DatabaseService, error) {
	err := os.MkdirAll(dataDir, 0750)
	if err != nil {
		return nil, fmt.Errorf("failed to create database path: %w", err)
	}

	dbPath := path.Join(dataDir, "shiki-arena.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{
			RegistryAssetsBucket,
			LedgerVotersBucket,
			LedgerVotesBucket,
			LedgerReplayBucket,
			LedgerStatsBucket,
			LotteryAwardsBucket,
			TreasuryStateBucket,
		} {
			_, err := tx.CreateBucketIfNotExists([]byte(bucket))
			if err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", bucket, err)
			}
		}

		return nil
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to initialize database buckets: %w", err)
	}

	return &DatabaseService{
		DB: db,
	}, nil
}

func (s *DatabaseService) Shutdown() error {
	//nolint:wrapcheck
	return s.DB.Close()
}

// Bucket returns the named top-level bucket or ErrBucketNotFound.
func Bucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, name)
	}

	return b, nil
}

func PutJSON(b *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	err = b.Put(key, data)
	if err != nil {
		return fmt.Errorf("failed to put row: %w", err)
	}

	return nil
}

// GetJSON decodes the row stored under key into v and reports whether it existed.
func GetJSON(b *bolt.Bucket, key []byte, v any) (bool, error) {
	data := b.Get(key)
	if data == nil {
		return false, nil
	}

	err := json.Unmarshal(data, v)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal row: %w", err)
	}

	return true, nil
}

// AddCounter adds delta to a named counter in the stats bucket and returns the new value.
func AddCounter(tx *bolt.Tx, name string, delta int64) (int64, error) {
	stats, err := Bucket(tx, LedgerStatsBucket)
	if err != nil {
		return 0, err
	}

	value := BytesToInt64(stats.Get([]byte(name)), 0) + delta

	err = stats.Put([]byte(name), Int64ToBytes(value))
	if err != nil {
		return 0, fmt.Errorf("failed to put %s counter: %w", name, err)
	}

	return value, nil
}

func Counter(tx *bolt.Tx, name string) (int64, error) {
	stats, err := Bucket(tx, LedgerStatsBucket)
	if err != nil {
		return 0, err
	}

	return BytesToInt64(stats.Get([]byte(name)), 0), nil
}

// Uint64Key encodes big-endian so that cursor order follows numeric order.
func Uint64Key(u uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, u)

	return buf
}

func KeyToUint64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}

	return binary.BigEndian.Uint64(b)
}

func Int64ToBytes(i int64) []byte {
	buf := make([]byte, 8)
	//nolint:gosec // Intentional conversion for binary encoding
	binary.LittleEndian.PutUint64(buf, uint64(i))

	return buf
}

func BytesToInt64(b []byte, _default int64) int64 {
	if len(b) == 0 {
		return _default
	}

	//nolint:gosec // Intentional conversion from binary encoding
	return int64(binary.LittleEndian.Uint64(b))
}
