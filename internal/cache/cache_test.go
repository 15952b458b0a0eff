package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(c)
	t.Cleanup(func() {
		SetClient(nil)
		_ = c.Close()
	})
	return mr
}

func TestAside_LoadsOnMissThenHits(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	loads := 0
	load := func(dest *cachedThing) func() error {
		return func() error {
			loads++
			*dest = cachedThing{ID: 7, Name: "Mindful Living"}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, LibraryBookKey(7), &first, time.Minute, load(&first)))
	assert.Equal(t, "Mindful Living", first.Name)
	assert.True(t, mr.Exists("library:book:7"))

	var second cachedThing
	require.NoError(t, Aside(ctx, LibraryBookKey(7), &second, time.Minute, load(&second)))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("library:book:7"))
}

func TestAside_LoadErrorIsNotCached(t *testing.T) {
	mr := useMiniredis(t)

	var dest cachedThing
	err := Aside(context.Background(), UserKey(1), &dest, time.Minute, func() error {
		return errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists("user:1"))
}

func TestAside_WithoutClientJustLoads(t *testing.T) {
	SetClient(nil)

	var dest cachedThing
	err := Aside(context.Background(), UserKey(2), &dest, time.Minute, func() error {
		dest.ID = 2
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(2), dest.ID)
}

func TestAside_ReadFailureFallsBackToLoad(t *testing.T) {
	db, mock := redismock.NewClientMock()
	SetClient(db)
	t.Cleanup(func() { SetClient(nil) })

	mock.ExpectGet(UserKey(3)).SetErr(errors.New("connection reset"))

	var dest cachedThing
	err := Aside(context.Background(), UserKey(3), &dest, time.Minute, func() error {
		dest = cachedThing{ID: 3}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(3), dest.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateLibrary_DropsListingsAndBook(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, LibraryListKey("", ""), []cachedThing{{ID: 1}}, time.Minute))
	require.NoError(t, SetJSON(ctx, LibraryListKey("anxiety", "Calm"), []cachedThing{{ID: 1}}, time.Minute))
	require.NoError(t, SetJSON(ctx, LibraryBookKey(1), cachedThing{ID: 1}, time.Minute))
	require.NoError(t, SetJSON(ctx, UserKey(1), cachedThing{ID: 1}, time.Minute))

	InvalidateLibrary(ctx, 1)

	assert.False(t, mr.Exists("library:list:-:-"))
	assert.False(t, mr.Exists("library:list:anxiety:calm"))
	assert.False(t, mr.Exists("library:book:1"))
	assert.True(t, mr.Exists("user:1"))
}

func TestRevokeToken(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	revoked, err := IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, RevokeToken(ctx, "abc", time.Hour))
	revoked, err = IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Cleanup(func() { SetClient(nil) })

	assert.NotNil(t, InitRedis("redis://"+mr.Addr()+"/0"))
	assert.NotNil(t, GetClient())

	assert.Nil(t, InitRedis(""))
	assert.Nil(t, GetClient())

	assert.Nil(t, InitRedis("redis://%zz"))
}

func TestLibraryListKey(t *testing.T) {
	assert.Equal(t, "library:list:-:-", LibraryListKey("", "  "))
	assert.Equal(t, "library:list:self_help:calm mind", LibraryListKey("self_help", " Calm Mind "))
	assert.Equal(t, "library", keyFamily("library:list:-:-"))
}
