// Package interactions coordinates the durable interaction log with the
// short-lived per-user cache. The store is the source of truth; the cache
// is a read accelerator and every cache failure degrades to a store read.
package interactions

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/israrulhaq-IFL/task-assignment-system/internal/cache"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/otel"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/store"
	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
)

// Service logs and serves user interactions.
type Service struct {
	store store.Store
	cache cache.Cache
	log   *slog.Logger
}

// NewService wires the durable log to the cache. logger may be nil.
func NewService(st store.Store, c cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, cache: c, log: logger}
}

// Log appends the interaction to the durable log, then overwrites the
// (user, task) cache entry with the just-logged interaction. The write
// succeeds even when the cache refresh fails.
func (s *Service) Log(ctx context.Context, in models.Interaction) (models.Interaction, error) {
	stored, err := s.store.LogInteraction(ctx, in)
	if err != nil {
		return models.Interaction{}, err
	}
	otel.RecordInteraction(ctx, stored.Type)
	s.refreshCache(ctx, stored)
	return stored, nil
}

func (s *Service) refreshCache(ctx context.Context, in models.Interaction) {
	payload, err := json.Marshal(in)
	if err != nil {
		s.log.Warn("interaction cache refresh: encode", "user_id", in.UserID, "task_id", in.TaskID, "err", err)
		return
	}
	key := cache.InteractionKey(in.UserID, in.TaskID)
	if err := s.cache.Set(ctx, key, string(payload), cache.InteractionTTL); err != nil {
		s.log.Warn("interaction cache refresh: set", "key", key, "err", err)
	}
}

// Get returns the user's interactions for a task, cache-first. A hit holds
// the user's most recently logged interaction and is returned as a
// single-element list. On a miss (or any cache failure) it falls back to the
// durable log: the task's full interaction history in ascending timestamp
// order, so a viewer with no interactions of their own still sees the task's
// activity.
func (s *Service) Get(ctx context.Context, userID, taskID int64) ([]models.Interaction, error) {
	key := cache.InteractionKey(userID, taskID)
	val, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		otel.RecordCacheLookup(ctx, otel.CacheError)
		s.log.Warn("interaction cache get", "key", key, "err", err)
	case ok:
		var in models.Interaction
		if err := json.Unmarshal([]byte(val), &in); err != nil {
			// Stale or corrupt entry; treat as a miss.
			otel.RecordCacheLookup(ctx, otel.CacheError)
			s.log.Warn("interaction cache decode", "key", key, "err", err)
		} else {
			otel.RecordCacheLookup(ctx, otel.CacheHit)
			return []models.Interaction{in}, nil
		}
	default:
		otel.RecordCacheLookup(ctx, otel.CacheMiss)
	}
	return s.store.ListTaskInteractions(ctx, taskID)
}

// AttachCached replaces each view's interactions with the user's cached
// most-recent interaction, as a single-element list, when one is fresh.
// Views whose cache lookup fails keep the store-joined interactions they
// already carry.
func (s *Service) AttachCached(ctx context.Context, userID int64, views []models.TaskView) {
	for i := range views {
		key := cache.InteractionKey(userID, views[i].TaskID)
		val, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			otel.RecordCacheLookup(ctx, otel.CacheError)
			s.log.Warn("interaction cache get", "key", key, "err", err)
			continue
		}
		if !ok {
			otel.RecordCacheLookup(ctx, otel.CacheMiss)
			continue
		}
		var in models.Interaction
		if err := json.Unmarshal([]byte(val), &in); err != nil {
			otel.RecordCacheLookup(ctx, otel.CacheError)
			s.log.Warn("interaction cache decode", "key", key, "err", err)
			continue
		}
		otel.RecordCacheLookup(ctx, otel.CacheHit)
		views[i].Interactions = []models.Interaction{in}
	}
}
