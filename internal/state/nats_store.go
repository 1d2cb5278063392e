package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"certwatch/internal/config"
	"certwatch/internal/domain"

	"github.com/nats-io/nats.go"
)

// NATSStore persists the snapshot in a JetStream KV bucket.
// Params: NATS connection and KV bucket handle.
// Returns: KV-backed state store shared across monitor hosts.
type NATSStore struct {
	nc     *nats.Conn
	kv     nats.KeyValue
	logger *slog.Logger
}

// NewNATSStore connects to NATS and opens (or creates) the state bucket.
// Params: NATS state settings and logger.
// Returns: initialized NATS store or setup error.
func NewNATSStore(settings config.NATSStateConfig, logger *slog.Logger) (*NATSStore, error) {
	nc, err := nats.Connect(strings.Join(settings.URL, ","))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	kv, err := js.KeyValue(settings.Bucket)
	if err != nil {
		if !settings.AllowCreateBucket {
			nc.Close()
			return nil, fmt.Errorf("open state bucket %q: %w", settings.Bucket, err)
		}
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: settings.Bucket})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create state bucket %q: %w", settings.Bucket, err)
		}
	}

	return &NATSStore{nc: nc, kv: kv, logger: logger}, nil
}

// Site keys contain a colon, which is not a legal KV key character.
// The bucket stores "host/port" and the mapping is reversed on load.

// encodeKey converts a site key to a KV-safe key.
// Params: site key (host:port).
// Returns: KV bucket key.
func encodeKey(siteKey string) string {
	return strings.ReplaceAll(siteKey, ":", "/")
}

// decodeKey converts a KV bucket key back to a site key.
// Params: KV bucket key (host/port).
// Returns: site key.
func decodeKey(kvKey string) string {
	idx := strings.LastIndex(kvKey, "/")
	if idx < 0 {
		return kvKey
	}
	return kvKey[:idx] + ":" + kvKey[idx+1:]
}

// Load reads every key in the bucket into one snapshot.
// Params: context (unused by the KV client calls).
// Returns: decoded snapshot; undecodable entries are skipped with a warning.
func (s *NATSStore) Load(_ context.Context) (domain.Snapshot, error) {
	snapshot := domain.Snapshot{}
	keys, err := s.kv.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return snapshot, nil
		}
		return snapshot, fmt.Errorf("list state keys: %w", err)
	}

	for _, key := range keys {
		entry, err := s.kv.Get(key)
		if err != nil {
			if err == nats.ErrKeyNotFound {
				continue
			}
			return snapshot, fmt.Errorf("get state key %q: %w", key, err)
		}
		var siteState domain.SiteState
		if err := json.Unmarshal(entry.Value(), &siteState); err != nil {
			s.logger.Warn("skipping undecodable state entry", "key", key, "error", err.Error())
			continue
		}
		snapshot[decodeKey(key)] = siteState
	}
	return snapshot, nil
}

// Save writes every snapshot entry and deletes bucket keys no longer present.
// Params: context (unused) and snapshot to persist.
// Returns: first encode or KV error.
func (s *NATSStore) Save(_ context.Context, snapshot domain.Snapshot) error {
	wanted := make(map[string]struct{}, len(snapshot))
	for siteKey, siteState := range snapshot {
		key := encodeKey(siteKey)
		wanted[key] = struct{}{}
		body, err := json.Marshal(siteState)
		if err != nil {
			return fmt.Errorf("encode state for %q: %w", siteKey, err)
		}
		if _, err := s.kv.Put(key, body); err != nil {
			return fmt.Errorf("put state for %q: %w", siteKey, err)
		}
	}

	keys, err := s.kv.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil
		}
		return fmt.Errorf("list state keys: %w", err)
	}
	for _, key := range keys {
		if _, ok := wanted[key]; ok {
			continue
		}
		if err := s.kv.Delete(key); err != nil && err != nats.ErrKeyNotFound {
			return fmt.Errorf("delete stale state key %q: %w", key, err)
		}
	}
	return nil
}

// Close closes the underlying NATS connection.
// Params: none.
// Returns: nil after connection close.
func (s *NATSStore) Close() error {
	s.nc.Close()
	return nil
}
