package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// minRetentionTTL keeps an already-expired session readable for long enough that the engine
// can tell "credential existed but expired" apart from "never installed".
const minRetentionTTL = time.Minute

// RedisStore is a Redis-backed [Store]. Each session lives under prefix:id and is indexed in a
// per-shop set so [RedisStore.FindByShop] does not need to scan the keyspace.
//
//	Performance: Load is one GET; Store and Delete are one MULTI/EXEC round-trip.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a store using prefix as the key namespace ("ss" when empty).
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ss"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisStore) shopKey(shop string) string {
	return s.prefix + "h:" + normalizeShop(shop)
}

// retention returns how long Redis should keep the session; zero means no expiry.
// A session is worth keeping while either its access token or its refresh token is usable.
func (s *RedisStore) retention(sess *Session) time.Duration {
	if sess.Expires == nil {
		return 0
	}
	until := *sess.Expires
	if sess.RefreshToken != "" {
		if sess.RefreshTokenExpires == nil {
			return 0
		}
		if sess.RefreshTokenExpires.After(until) {
			until = *sess.RefreshTokenExpires
		}
	}
	ttl := until.Sub(s.now())
	if ttl < minRetentionTTL {
		ttl = minRetentionTTL
	}
	return ttl
}

// Load implements [Store].
func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return Decode(data)
}

// Store implements [Store].
func (s *RedisStore) Store(ctx context.Context, sess *Session) error {
	if err := validateForStore(sess); err != nil {
		return err
	}
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	ttl := s.retention(sess)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.ID), data, ttl)
		pipe.SAdd(ctx, s.shopKey(sess.Shop), sess.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Delete implements [Store]. The shop index is read from each stored blob; blobs that no longer
// decode are still removed.
func (s *RedisStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, raw := range values {
			str, ok := raw.(string)
			if !ok {
				continue
			}
			if sess, decodeErr := Decode([]byte(str)); decodeErr == nil {
				pipe.SRem(ctx, s.shopKey(sess.Shop), ids[i])
			}
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// FindByShop implements [Store]. IDs whose session has expired out of Redis are pruned from
// the shop index as a side effect.
func (s *RedisStore) FindByShop(ctx context.Context, shop string) ([]*Session, error) {
	shopKey := s.shopKey(shop)
	ids, err := s.redis.SMembers(ctx, shopKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]*Session, 0, len(values))
	stale := make([]interface{}, 0)
	for i, raw := range values {
		str, ok := raw.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		sess, err := Decode([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}

	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, shopKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return out, nil
}

var _ Store = (*RedisStore)(nil)
