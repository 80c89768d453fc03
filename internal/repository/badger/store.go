// Package badger implements the chat, message and user stores on an embedded
// Badger key-value database. Values are BSON documents.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/bson"
)

const backend = "badger"

const (
	chatPrefix     = "chat:"
	messagePrefix  = "message:"
	userPrefix     = "user:"
	usernamePrefix = "username:"
)

// maxConflictRetries bounds how often a read-modify-write transaction is
// replayed after losing a race with a concurrent writer.
const maxConflictRetries = 64

func chatKey(id string) []byte { return []byte(chatPrefix + id) }
func messageKey(id string) []byte { return []byte(messagePrefix + id) }
func userKey(id string) []byte { return []byte(userPrefix + id) }
func usernameKey(n string) []byte { return []byte(usernamePrefix + n) }

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// getDoc decodes the value at key into out. It returns badger.ErrKeyNotFound
// unchanged so callers can map it to their own not-found error.
func getDoc(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return bson.Unmarshal(val, out)
	})
}

func setDoc(txn *badger.Txn, key []byte, doc any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return txn.Set(key, raw)
}

// updateWithRetry runs fn in an update transaction, replaying it when the
// commit conflicts with another writer.
func updateWithRetry(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction gave up after %d conflicts: %w", maxConflictRetries, err)
}
