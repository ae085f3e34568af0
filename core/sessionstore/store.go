package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrNotFound = errors.New("session record not found")

var latestKey = []byte("session/latest")

func recordKey(sessionID string) []byte {
	return []byte("session/" + sessionID)
}

// Store persists session records in badger.
type Store struct {
	db *badger.DB
}

// Open opens the store at path. An empty path keeps everything in memory.
func Open(path string) (*Store, error) {
	options := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		options = options.WithInMemory(true)
	}

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the record and marks it as the latest session.
func (s *Store) Save(ctx context.Context, record Record) error {
	_, span := tracer.Start(ctx, "save session record")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", record.SessionID))

	if record.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(record.SessionID), data); err != nil {
			return err
		}
		return txn.Set(latestKey, []byte(record.SessionID))
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to save session record: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, sessionID string) (Record, error) {
	_, span := tracer.Start(ctx, "load session record")
	defer span.End()

	var record Record
	err := s.db.View(func(txn *badger.Txn) error {
		return readRecord(txn, sessionID, &record)
	})
	if err != nil {
		return Record{}, err
	}
	return record, nil
}

// Latest returns the most recently saved record.
func (s *Store) Latest(ctx context.Context) (Record, error) {
	_, span := tracer.Start(ctx, "load latest session record")
	defer span.End()

	var record Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(latestKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		sessionID, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return readRecord(txn, string(sessionID), &record)
	})
	if err != nil {
		return Record{}, err
	}
	return record, nil
}

// Clear deletes a record. Clearing the latest record also drops the latest
// marker.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	_, span := tracer.Start(ctx, "clear session record")
	defer span.End()

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(recordKey(sessionID)); err != nil {
			return err
		}

		item, err := txn.Get(latestKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		latest, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(latest) == sessionID {
			return txn.Delete(latestKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear session record: %w", err)
	}
	logger.Debug("cleared session record", "session", sessionID)
	return nil
}

func readRecord(txn *badger.Txn, sessionID string, record *Record) error {
	item, err := txn.Get(recordKey(sessionID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	} else if err != nil {
		return err
	}

	return item.Value(func(data []byte) error {
		if err := json.Unmarshal(data, record); err != nil {
			return fmt.Errorf("failed to decode session record: %w", err)
		}
		return nil
	})
}
