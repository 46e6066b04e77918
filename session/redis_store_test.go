package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, "ss")
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func testOfflineSession(shop string) *Session {
	return &Session{
		ID:          OfflineID(shop),
		Shop:        shop,
		State:       "state-1",
		Scope:       "write_products",
		AccessToken: "shpat_offline",
	}
}

func testOnlineSession(shop string, userID int64, expires time.Time) *Session {
	return &Session{
		ID:          OnlineID(shop, userID),
		Shop:        shop,
		IsOnline:    true,
		Scope:       "read_products",
		AccessToken: "shpua_online",
		Expires:     &expires,
		OnlineAccessInfo: &OnlineAccessInfo{
			ExpiresIn:           86399,
			AssociatedUserScope: "read_products",
			AssociatedUser:      AssociatedUser{ID: userID, Email: "staff@example.com"},
		},
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	sess := testOnlineSession("test-shop.myshopify.com", 42, expires)
	if err := store.Store(ctx, sess); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, err := store.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.AccessToken != sess.AccessToken || !got.IsOnline || got.Scope != sess.Scope {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.Expires == nil || !got.Expires.Equal(expires) {
		t.Fatalf("expires mismatch: got %v want %v", got.Expires, expires)
	}
	if got.OnlineAccessInfo == nil || got.OnlineAccessInfo.AssociatedUser.ID != 42 {
		t.Fatalf("online access info lost: %+v", got.OnlineAccessInfo)
	}
}

func TestRedisStoreLoadMissingReturnsNil(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()

	got, err := store.Load(context.Background(), "offline_missing.myshopify.com")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil session, got %+v", got)
	}
}

func TestRedisStoreRejectsInvalidSession(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()

	sess := testOfflineSession("test-shop.myshopify.com")
	sess.AccessToken = ""
	if err := store.Store(context.Background(), sess); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestRedisStoreRetentionPolicy(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()
	shop := "test-shop.myshopify.com"

	offline := testOfflineSession(shop)
	if err := store.Store(ctx, offline); err != nil {
		t.Fatalf("store offline: %v", err)
	}
	if ttl := mr.TTL(store.key(offline.ID)); ttl != 0 {
		t.Fatalf("non-expiring session should have no TTL, got %v", ttl)
	}

	online := testOnlineSession(shop, 7, time.Now().Add(-time.Hour))
	if err := store.Store(ctx, online); err != nil {
		t.Fatalf("store online: %v", err)
	}
	if ttl := mr.TTL(store.key(online.ID)); ttl != minRetentionTTL {
		t.Fatalf("expired session should be kept for %v, got %v", minRetentionTTL, ttl)
	}

	accessExp := time.Now().Add(time.Hour)
	refreshExp := time.Now().Add(30 * 24 * time.Hour)
	expiring := testOfflineSession("other-shop.myshopify.com")
	expiring.Expires = &accessExp
	expiring.RefreshToken = "shprt_refresh"
	expiring.RefreshTokenExpires = &refreshExp
	if err := store.Store(ctx, expiring); err != nil {
		t.Fatalf("store expiring: %v", err)
	}
	if ttl := mr.TTL(store.key(expiring.ID)); ttl < 29*24*time.Hour {
		t.Fatalf("expected TTL to follow refresh token expiry, got %v", ttl)
	}
}

func TestRedisStoreFindByShopPrunesExpired(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()
	shop := "test-shop.myshopify.com"

	if err := store.Store(ctx, testOfflineSession(shop)); err != nil {
		t.Fatalf("store offline: %v", err)
	}
	if err := store.Store(ctx, testOnlineSession(shop, 1, time.Now().Add(-time.Minute))); err != nil {
		t.Fatalf("store online: %v", err)
	}
	if err := store.Store(ctx, testOfflineSession("other-shop.myshopify.com")); err != nil {
		t.Fatalf("store other: %v", err)
	}

	found, err := store.FindByShop(ctx, "TEST-SHOP.myshopify.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(found))
	}

	mr.FastForward(2 * minRetentionTTL)

	found, err = store.FindByShop(ctx, shop)
	if err != nil {
		t.Fatalf("find after expiry: %v", err)
	}
	if len(found) != 1 || found[0].ID != OfflineID(shop) {
		t.Fatalf("expected only the offline session, got %+v", found)
	}
	members, err := mr.SMembers(store.shopKey(shop))
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected stale index entry to be pruned, got %v", members)
	}
}

func TestRedisStoreDeleteIdempotent(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()
	shop := "test-shop.myshopify.com"
	sess := testOfflineSession(shop)

	if err := store.Store(ctx, sess); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, sess.ID, "offline_never.myshopify.com"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if mr.Exists(store.key(sess.ID)) {
		t.Fatal("session key still present")
	}
	if mr.Exists(store.shopKey(shop)) {
		t.Fatal("shop index still present")
	}
	got, err := store.Load(ctx, sess.ID)
	if err != nil || got != nil {
		t.Fatalf("expected clean miss, got %+v err=%v", got, err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	store := NewRedisStore(rdb, "")
	mr.Close()

	_, err = store.Load(context.Background(), "offline_test-shop.myshopify.com")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	err = store.Store(context.Background(), testOfflineSession("test-shop.myshopify.com"))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable on store, got %v", err)
	}
}
