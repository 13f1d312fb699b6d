// Package redisstore implements the shared credential store on Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/cookierelay/internal/domain/model"
	"github.com/ericfisherdev/cookierelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*Store)(nil)

// Store is the Redis implementation of the CredentialStore port. Records are
// single keyed JSON values with last-write-wins semantics; serialization of
// writers is guaranteed by the trigger service, not here.
//
// When an encryption key is configured the credential value is sealed with
// AES-256-GCM before SET and opened after GET. Outcome records are stored in
// plaintext; they carry no secret fields.
type Store struct {
	client *redis.Client
	prefix string
	key    []byte        // 32-byte AES-256 key; nil disables encryption.
	ttl    time.Duration // 0 means records never expire.
}

// Option configures a Store.
type Option func(*Store)

// WithEncryptionKey seals credential values with AES-256-GCM. key must be
// 32 bytes.
func WithEncryptionKey(key []byte) Option {
	return func(s *Store) { s.key = key }
}

// WithRecordTTL applies a Redis TTL to credential records. Zero keeps them
// forever.
func WithRecordTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New creates a Store on an existing Redis client. prefix namespaces all keys
// ("cookierelay:" in production).
func New(client *redis.Client, prefix string, opts ...Option) *Store {
	s := &Store{client: client, prefix: prefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a Redis client without verifying the connection. The refresh
// CLI uses this: it must keep working from the bootstrap cache when the store
// is unreachable, so connection errors surface per-operation instead.
func Open(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Connect opens a Redis client and verifies the connection with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := Open(addr, password, db)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *Store) credentialKey(name string) string {
	return s.prefix + "credential:" + name
}

func (s *Store) outcomeKey(name string) string {
	return s.prefix + "last_refresh:" + name
}

// GetCredential returns the current record, or (nil, nil) when absent.
func (s *Store) GetCredential(ctx context.Context, name string) (*model.CredentialRecord, error) {
	val, err := s.client.Get(ctx, s.credentialKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential %q: %w", name, err)
	}

	if s.key != nil {
		val, err = s.decrypt(val)
		if err != nil {
			return nil, fmt.Errorf("decrypt credential %q: %w", name, err)
		}
	}

	var rec model.CredentialRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal credential %q: %w", name, err)
	}
	return &rec, nil
}

// PutCredential fully replaces the record for the named credential.
func (s *Store) PutCredential(ctx context.Context, name string, rec model.CredentialRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal credential %q: %w", name, err)
	}

	val := string(data)
	if s.key != nil {
		val, err = s.encrypt(val)
		if err != nil {
			return fmt.Errorf("encrypt credential %q: %w", name, err)
		}
	}

	if err := s.client.Set(ctx, s.credentialKey(name), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("put credential %q: %w", name, err)
	}
	return nil
}

// GetLastOutcome returns the most recent trigger outcome, or (nil, nil) when
// none has been recorded.
func (s *Store) GetLastOutcome(ctx context.Context, name string) (*model.TriggerOutcome, error) {
	val, err := s.client.Get(ctx, s.outcomeKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get last outcome %q: %w", name, err)
	}

	var out model.TriggerOutcome
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		return nil, fmt.Errorf("unmarshal last outcome %q: %w", name, err)
	}
	return &out, nil
}

// PutLastOutcome overwrites the most recent trigger outcome.
func (s *Store) PutLastOutcome(ctx context.Context, name string, out model.TriggerOutcome) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal last outcome %q: %w", name, err)
	}
	if err := s.client.Set(ctx, s.outcomeKey(name), data, 0).Err(); err != nil {
		return fmt.Errorf("put last outcome %q: %w", name, err)
	}
	return nil
}
