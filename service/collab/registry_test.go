package collab

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nullConn struct{}

func (nullConn) Send([]byte) error  { return nil }
func (nullConn) Close() error       { return nil }
func (nullConn) RemoteAddr() string { return "test" }

func newTestSession(id string, pictureID, userID int64) *Session {
	u := &User{ID: userID, Name: fmt.Sprintf("u%d", userID)}
	return NewSession(id, pictureID, u, DefaultPresenter(u), nullConn{})
}

func TestRegistryJoinLeave(t *testing.T) {
	r := NewRegistry()
	a := newTestSession("a", 1, 10)
	b := newTestSession("b", 1, 11)

	r.Join(1, a)
	r.Join(1, a)
	r.Join(1, b)
	assert.Equal(t, 2, r.Count(1))
	assert.Len(t, r.SessionsFor(1), 2)
	assert.Empty(t, r.SessionsFor(2))

	assert.True(t, r.Leave(1, a))
	assert.False(t, r.Leave(1, a))
	assert.True(t, r.Leave(1, b))
	assert.Equal(t, 0, r.Count(1))
	assert.Equal(t, 0, r.Total())

	sh := r.shard(1)
	sh.mu.RLock()
	_, present := sh.byPicture[1]
	sh.mu.RUnlock()
	assert.False(t, present, "empty picture entry should be removed")
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pic := int64(i % 7)
			s := newTestSession(fmt.Sprintf("s%d", i), pic, int64(i))
			r.Join(pic, s)
			_ = r.SessionsFor(pic)
			if i%2 == 0 {
				r.Leave(pic, s)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, r.Total())
	assert.Len(t, r.All(), 100)
}

func TestEditLockSingleWinner(t *testing.T) {
	l := NewEditLock()
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for uid := int64(1); uid <= 64; uid++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			<-start
			if l.TryAcquire(7, uid) {
				wins.Add(1)
			}
		}(uid)
	}
	close(start)
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
	_, held := l.HolderOf(7)
	assert.True(t, held)
}

func TestEditLockRelease(t *testing.T) {
	l := NewEditLock()
	require.True(t, l.TryAcquire(1, 10))
	assert.False(t, l.TryAcquire(1, 10), "re-acquire by holder is not granted")
	assert.False(t, l.TryAcquire(1, 11))
	assert.False(t, l.Release(1, 11), "non holder cannot release")
	assert.True(t, l.IsHolder(1, 10))
	assert.True(t, l.Release(1, 10))
	assert.False(t, l.Release(1, 10))
	_, held := l.HolderOf(1)
	assert.False(t, held)
	assert.False(t, l.TryAcquire(1, 0))
}

func TestEditLockReleaseAll(t *testing.T) {
	l := NewEditLock()
	for pic := int64(1); pic <= 5; pic++ {
		require.True(t, l.TryAcquire(pic, pic*10))
	}
	assert.Equal(t, 5, l.ReleaseAll())
	for pic := int64(1); pic <= 5; pic++ {
		_, held := l.HolderOf(pic)
		assert.False(t, held)
	}
}

func TestSessionCloseOnce(t *testing.T) {
	s := newTestSession("x", 1, 1)
	assert.True(t, s.IsOpen())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.False(t, s.IsOpen())
	err := s.Write([]byte("x"))
	assert.True(t, ErrSessionClosed.Is(err))
	assert.True(t, s.markLeft())
	assert.False(t, s.markLeft())
}
