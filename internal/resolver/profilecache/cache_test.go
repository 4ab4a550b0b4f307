package profilecache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/models"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

var janeKey = models.ProfileKey{Source: "CountyRecords", Reference: "doc-1"}

func janeProfile() *models.DetailProfile {
	return &models.DetailProfile{
		ResolvedFullName: "Jane Smith",
		AllPhones:        []string{"2065551234"},
		AllRelatives:     []models.Relative{{Name: "John Smith"}},
		Deceased:         models.DeceasedNo,
	}
}

// ==========================
// In-memory layer
// ==========================

func TestFetch_MemoizesPerKey(t *testing.T) {
	c := New(nil, logger.NewTestLogger(t))
	calls := 0
	fetch := func(ctx context.Context) (*models.DetailProfile, error) {
		calls++
		return janeProfile(), nil
	}

	p1, origin1 := c.Fetch(context.Background(), janeKey, fetch)
	p2, origin2 := c.Fetch(context.Background(), janeKey, fetch)

	assert.Equal(t, 1, calls)
	assert.Equal(t, OriginSource, origin1)
	assert.Equal(t, OriginMemory, origin2)
	assert.Equal(t, p1, p2)
	assert.Equal(t, Stats{Entries: 1, Hits: 1, Misses: 1}, c.Stats())
}

func TestFetch_SameReferenceDifferentSourceIsDistinct(t *testing.T) {
	c := New(nil, nil)
	calls := 0
	fetch := func(ctx context.Context) (*models.DetailProfile, error) {
		calls++
		return janeProfile(), nil
	}

	c.Fetch(context.Background(), janeKey, fetch)
	c.Fetch(context.Background(), models.ProfileKey{Source: "PeopleFinder", Reference: "doc-1"}, fetch)

	assert.Equal(t, 2, calls)
}

func TestFetch_NilProfileIsMemoized(t *testing.T) {
	c := New(nil, nil)
	calls := 0
	fetch := func(ctx context.Context) (*models.DetailProfile, error) {
		calls++
		return nil, nil
	}

	p, _ := c.Fetch(context.Background(), janeKey, fetch)
	assert.Nil(t, p)
	_, origin := c.Fetch(context.Background(), janeKey, fetch)
	assert.Equal(t, OriginMemory, origin)
	assert.Equal(t, 1, calls)
}

func TestFetch_ErrorIsNotMemoized(t *testing.T) {
	c := New(nil, nil)
	calls := 0
	fetch := func(ctx context.Context) (*models.DetailProfile, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("budget exhausted")
		}
		return janeProfile(), nil
	}

	p, origin := c.Fetch(context.Background(), janeKey, fetch)
	assert.Nil(t, p)
	assert.Equal(t, OriginFailed, origin)

	p, origin = c.Fetch(context.Background(), janeKey, fetch)
	require.NotNil(t, p)
	assert.Equal(t, OriginSource, origin)
	assert.Equal(t, 2, calls)
}

func TestFetch_ConcurrentCallersShareOneFetch(t *testing.T) {
	c := New(nil, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (*models.DetailProfile, error) {
		calls.Add(1)
		<-release
		return janeProfile(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, _ := c.Fetch(context.Background(), janeKey, fetch)
			assert.NotNil(t, p)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

// ==========================
// Redis-backed layer
// ==========================

func TestRedisStore_RoundTripWithTTL(t *testing.T) {
	mr, client := setupMiniredis(t)
	store := NewRedisStore(client, "profile", time.Hour)

	require.NoError(t, store.Save(context.Background(), janeKey, janeProfile()))

	assert.True(t, mr.Exists("profile:CountyRecords:doc-1"))
	assert.Equal(t, time.Hour, mr.TTL("profile:CountyRecords:doc-1"))

	got, ok, err := store.Load(context.Background(), janeKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, janeProfile(), got)

	_, ok, err = store.Load(context.Background(), models.ProfileKey{Source: "x", Reference: "missing"})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestFetch_WarmsFromStoreAcrossCaches(t *testing.T) {
	_, client := setupMiniredis(t)
	store := NewRedisStore(client, "profile", time.Hour)

	first := New(store, nil)
	first.Fetch(context.Background(), janeKey, func(ctx context.Context) (*models.DetailProfile, error) {
		return janeProfile(), nil
	})

	second := New(store, nil)
	p, origin := second.Fetch(context.Background(), janeKey, func(ctx context.Context) (*models.DetailProfile, error) {
		t.Fatal("should be served from the store")
		return nil, nil
	})

	assert.Equal(t, OriginStore, origin)
	assert.Equal(t, "Jane Smith", p.ResolvedFullName)
}

func TestRedisStore_ExpiredEntryIsMiss(t *testing.T) {
	mr, client := setupMiniredis(t)
	store := NewRedisStore(client, "profile", time.Minute)
	require.NoError(t, store.Save(context.Background(), janeKey, janeProfile()))

	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Load(context.Background(), janeKey)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Failures(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "profile", time.Hour)

	mock.ExpectGet("profile:CountyRecords:doc-1").SetErr(errors.New("connection refused"))
	_, _, err := store.Load(context.Background(), janeKey)
	assert.ErrorIs(t, err, apperrors.ErrCacheUnavailable)

	mock.ExpectGet("profile:CountyRecords:doc-1").SetVal("{not json")
	_, _, err = store.Load(context.Background(), janeKey)
	assert.ErrorIs(t, err, apperrors.ErrCacheUnavailable)

	data, _ := json.Marshal(janeProfile())
	mock.ExpectSet("profile:CountyRecords:doc-1", data, time.Hour).SetErr(errors.New("READONLY"))
	err = store.Save(context.Background(), janeKey, janeProfile())
	assert.ErrorIs(t, err, apperrors.ErrCacheUnavailable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetch_StoreFailureFallsBackToSource(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectGet("profile:CountyRecords:doc-1").SetErr(errors.New("connection refused"))
	mock.Regexp().ExpectSet("profile:CountyRecords:doc-1", `.*`, time.Hour).SetErr(errors.New("connection refused"))

	c := New(NewRedisStore(client, "profile", time.Hour), logger.NewTestLogger(t))
	p, origin := c.Fetch(context.Background(), janeKey, func(ctx context.Context) (*models.DetailProfile, error) {
		return janeProfile(), nil
	})

	assert.Equal(t, OriginSource, origin)
	assert.NotNil(t, p)
}
