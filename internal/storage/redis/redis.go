// internal/storage/redis/redis.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/storage"
	"github.com/FurmanovVitaliy/ims-dashboard/pkg/clients/redis"
	"github.com/FurmanovVitaliy/logger"
	goredis "github.com/go-redis/redis/v8"
)

// Storage keeps cached responses in Redis with one set per tag.
// Keys never expire; tags are the only way out.
type Storage struct {
	client redis.RedisClient
	log    *slog.Logger
	prefix string
}

func NewStorage(log *slog.Logger, client redis.RedisClient, prefix string) *Storage {
	if prefix == "" {
		prefix = "ims"
	}
	return &Storage{client: client, log: log, prefix: prefix}
}

func (s *Storage) entryKey(key string) string {
	return strings.Join([]string{s.prefix, "entry", key}, ":")
}

func (s *Storage) tagKey(tag string) string {
	return strings.Join([]string{s.prefix, "tag", tag}, ":")
}

func (s *Storage) Get(ctx context.Context, key string) (storage.Entry, error) {
	const op = "redis.Storage.Get"

	data, err := s.client.Get(ctx, s.entryKey(key))
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return storage.Entry{}, storage.ErrCacheMiss
		}
		return storage.Entry{}, fmt.Errorf("%s: %w", op, err)
	}

	var entry storage.Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		s.log.With(logger.StringAttr("operation", op)).
			Warn("dropping unreadable cache entry", logger.ErrAttr(err))
		_ = s.client.Del(ctx, s.entryKey(key))
		return storage.Entry{}, fmt.Errorf("%s: %w", op, storage.ErrInvalidEntry)
	}
	return entry, nil
}

func (s *Storage) genKey(tag string) string {
	return strings.Join([]string{s.prefix, "gen", tag}, ":")
}

func (s *Storage) genKeys(tags []string) []string {
	keys := make([]string, 0, len(tags))
	for _, tag := range tags {
		keys = append(keys, s.genKey(tag))
	}
	return keys
}

// sumGenerations adds up MGET replies; missing keys count as zero.
func sumGenerations(values []interface{}) (uint64, error) {
	var gen uint64
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(str, 10, 64)
		if err != nil {
			return 0, err
		}
		gen += n
	}
	return gen, nil
}

func (s *Storage) Generation(ctx context.Context, tags ...string) (uint64, error) {
	const op = "redis.Storage.Generation"

	if len(tags) == 0 {
		return 0, nil
	}
	values, err := s.client.MGet(ctx, s.genKeys(tags)...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	gen, err := sumGenerations(values)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return gen, nil
}

// Set stores the entry and its tag index in one MULTI. The generation keys
// are watched, so an Invalidate racing the write aborts it.
func (s *Storage) Set(ctx context.Context, key string, entry storage.Entry, tags []string) error {
	const op = "redis.Storage.Set"
	log := s.log.With(
		logger.StringAttr("operation", op),
	)

	entry.Tags = tags
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error("failed to marshal cache entry", logger.ErrAttr(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	genKeys := s.genKeys(tags)
	err = s.client.Watch(ctx, func(tx *goredis.Tx) error {
		if len(genKeys) > 0 {
			values, err := tx.MGet(ctx, genKeys...).Result()
			if err != nil {
				return err
			}
			gen, err := sumGenerations(values)
			if err != nil {
				return err
			}
			if gen != entry.Generation {
				return storage.ErrStale
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, s.entryKey(key), string(data), 0)
			for _, tag := range tags {
				pipe.SAdd(ctx, s.tagKey(tag), key)
			}
			return nil
		})
		return err
	}, genKeys...)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrStale), errors.Is(err, goredis.TxFailedErr):
		log.Debug("skipping stale cache entry")
		return fmt.Errorf("%s: %w", op, storage.ErrStale)
	default:
		log.Error("failed to set cache entry", logger.ErrAttr(err))
		return fmt.Errorf("%s: %w", op, err)
	}
}

// Invalidate bumps each tag's generation before dropping its entries.
func (s *Storage) Invalidate(ctx context.Context, tags ...string) error {
	const op = "redis.Storage.Invalidate"
	log := s.log.With(
		logger.StringAttr("operation", op),
	)

	for _, tag := range tags {
		if _, err := s.client.Incr(ctx, s.genKey(tag)); err != nil {
			log.Error("failed to bump tag generation", logger.StringAttr("tag", tag), logger.ErrAttr(err))
			return fmt.Errorf("%s: %w", op, err)
		}

		members, err := s.client.SMembers(ctx, s.tagKey(tag))
		if err != nil {
			log.Error("failed to read tag index", logger.StringAttr("tag", tag), logger.ErrAttr(err))
			return fmt.Errorf("%s: %w", op, err)
		}

		keys := make([]string, 0, len(members)+1)
		for _, m := range members {
			keys = append(keys, s.entryKey(m))
		}
		keys = append(keys, s.tagKey(tag))

		if err := s.client.Del(ctx, keys...); err != nil {
			log.Error("failed to drop tagged entries", logger.StringAttr("tag", tag), logger.ErrAttr(err))
			return fmt.Errorf("%s: %w", op, err)
		}
		log.Debug("tag invalidated", logger.StringAttr("tag", tag), slog.Int("entries", len(members)))
	}
	return nil
}
