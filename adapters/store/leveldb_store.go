package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
)

var leveldbPrefix = []byte("nonce/")

// LevelDBStore is an embedded durable implementation of the NonceStore
// interface for single-node deployments. LevelDB has no conditional
// delete, so Consume serializes the read-then-delete under a process
// mutex; the store is owned by one process, which makes the mutex a
// valid unique-claim primitive.
type LevelDBStore struct {
	db *leveldb.DB
	mu sync.Mutex
}

// OpenLevelDBStore opens (creating if needed) a store at path.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open nonce store: %w", err)
	}
	return &LevelDBStore{db: db}, nil
}

var _ ports.NonceStore = (*LevelDBStore)(nil)

// Close closes the underlying database.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

// Create stores a record for the token
func (s *LevelDBStore) Create(ctx context.Context, token string, expiresAt time.Time) error {
	if err := s.db.Put(leveldbKey(token), encodeExpiry(expiresAt), nil); err != nil {
		return fmt.Errorf("failed to create nonce record: %w", err)
	}
	return nil
}

// FindUnexpired returns the record for the token if it has not expired
func (s *LevelDBStore) FindUnexpired(ctx context.Context, token string, now time.Time) (*core.NonceRecord, error) {
	val, err := s.db.Get(leveldbKey(token), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find nonce record: %w", err)
	}

	expiresAt, err := decodeExpiry(val)
	if err != nil {
		return nil, fmt.Errorf("corrupt nonce record %q: %w", token, err)
	}
	if !expiresAt.After(now) {
		return nil, nil
	}

	return &core.NonceRecord{Token: token, ExpiresAt: expiresAt}, nil
}

// Consume deletes the token's record if it exists and is unexpired.
func (s *LevelDBStore) Consume(ctx context.Context, token string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := leveldbKey(token)

	val, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce record: %w", err)
	}

	expiresAt, err := decodeExpiry(val)
	if err != nil {
		return false, fmt.Errorf("corrupt nonce record %q: %w", token, err)
	}
	if !expiresAt.After(now) {
		return false, nil
	}

	if err := s.db.Delete(key, nil); err != nil {
		return false, fmt.Errorf("failed to consume nonce record: %w", err)
	}

	return true, nil
}

// DeleteIfPresent removes the token's record regardless of expiry
func (s *LevelDBStore) DeleteIfPresent(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := leveldbKey(token)

	if _, err := s.db.Get(key, nil); err == leveldb.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to delete nonce record: %w", err)
	}

	if err := s.db.Delete(key, nil); err != nil {
		return false, fmt.Errorf("failed to delete nonce record: %w", err)
	}

	return true, nil
}

// DeleteAllExpired removes every record expired at now in one batch.
func (s *LevelDBStore) DeleteAllExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := new(leveldb.Batch)
	count := 0

	iter := s.db.NewIterator(util.BytesPrefix(leveldbPrefix), nil)
	defer iter.Release()

	for iter.Next() {
		expiresAt, err := decodeExpiry(iter.Value())
		if err != nil {
			continue
		}
		if !expiresAt.After(now) {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			batch.Delete(key)
			count++
		}
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("failed to sweep nonce records: %w", err)
	}

	if count > 0 {
		if err := s.db.Write(batch, nil); err != nil {
			return 0, fmt.Errorf("failed to sweep nonce records: %w", err)
		}
	}

	return count, nil
}

func leveldbKey(token string) []byte {
	return append(append([]byte{}, leveldbPrefix...), token...)
}

func encodeExpiry(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))
	return buf
}

func decodeExpiry(val []byte) (time.Time, error) {
	if len(val) != 8 {
		return time.Time{}, fmt.Errorf("expected 8-byte expiry, got %d bytes", len(val))
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(val))), nil
}
