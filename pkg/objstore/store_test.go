package objstore

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(client, "test"), mr
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "a/b.json", []byte(`{"x":1}`)))
	got, err := s.Get(ctx, "a/b.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(got))

	require.NoError(t, s.Put(ctx, "a/b.json", []byte(`{"x":2}`)))
	got, err = s.Get(ctx, "a/b.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":2}`, string(got))

	ok, err := s.Exists(ctx, "a/b.json")
	require.NoError(t, err)
	assert.True(t, ok)

	wrote, err := s.PutIfAbsent(ctx, "a/b.json", []byte(`{"x":3}`))
	require.NoError(t, err)
	assert.False(t, wrote)
	got, err = s.Get(ctx, "a/b.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":2}`, string(got))

	wrote, err = s.PutIfAbsent(ctx, "a/c.json", []byte(`{"x":4}`))
	require.NoError(t, err)
	assert.True(t, wrote)
	require.NoError(t, s.Delete(ctx, "a/c.json"))

	require.NoError(t, s.Delete(ctx, "a/b.json"))
	ok, err = s.Exists(ctx, "a/b.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func exercisePutIfAbsentRace(t *testing.T, s Store) {
	ctx := context.Background()
	const writers = 16

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.PutIfAbsent(ctx, "race", []byte(strconv.Itoa(i)))
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestPutIfAbsentSingleWinner(t *testing.T) {
	exercisePutIfAbsentRace(t, NewMemoryStore())
	s, _ := newRedisStore(t)
	exercisePutIfAbsentRace(t, s)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(context.Background(), "k", buf))
	buf[0] = 'z'

	got, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, []string{"k"}, s.Keys())
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedisStore(t)
	exerciseStore(t, s)
}

func TestRedisStorePrefixesKeys(t *testing.T) {
	s, mr := newRedisStore(t)
	require.NoError(t, s.Put(context.Background(), "latest.json", []byte("v")))

	raw, err := mr.Get("test:latest.json")
	require.NoError(t, err)
	assert.Equal(t, "v", raw)
}

func TestNewRedisStoreDialsAddr(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(WithRedisAddr(mr.Addr()), WithRedisPrefix("p"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(context.Background(), "k", []byte("v")))
	assert.True(t, mr.Exists("p:k"))
}
