// ABOUTME: Tests for the session store's per-key locking and lifecycle.
// ABOUTME: Covers create/update/delete, terminal removal and idle listing.

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC)

func testSession(root string) Session {
	return New("sess-"+root, Key{ChannelID: "chan", RootID: root}, "user-1", "Отчёт", t0)
}

func TestStoreCreate(t *testing.T) {
	st := NewStore()
	s := testSession("r1")

	require.NoError(t, st.Create(s))
	assert.True(t, st.Exists(s.Key))
	assert.Equal(t, 1, st.Len())

	err := st.Create(s)
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestStoreCreateRejectsTerminal(t *testing.T) {
	st := NewStore()
	s := testSession("r1")
	s.Stage = StageCancelled
	assert.Error(t, st.Create(s))
	assert.Equal(t, 0, st.Len())
}

func TestStoreUpdate(t *testing.T) {
	st := NewStore()
	s := testSession("r1")
	require.NoError(t, st.Create(s))

	got, err := st.Update(context.Background(), s.Key, func(cur Session) (Session, error) {
		cur.Stage = StageAwaitingBoard
		cur.ProjectID = "p1"
		return cur, nil
	})
	require.NoError(t, err)
	assert.Equal(t, StageAwaitingBoard, got.Stage)

	got, err = st.Update(context.Background(), s.Key, func(cur Session) (Session, error) {
		return cur, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ProjectID)
}

func TestStoreUpdateErrorKeepsState(t *testing.T) {
	st := NewStore()
	s := testSession("r1")
	require.NoError(t, st.Create(s))

	boom := errors.New("boom")
	_, err := st.Update(context.Background(), s.Key, func(cur Session) (Session, error) {
		cur.Stage = StageAwaitingBoard
		return cur, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := st.Update(context.Background(), s.Key, func(cur Session) (Session, error) { return cur, nil })
	require.NoError(t, err)
	assert.Equal(t, StageAwaitingProject, got.Stage)
}

func TestStoreUpdateMissing(t *testing.T) {
	st := NewStore()
	_, err := st.Update(context.Background(), Key{ChannelID: "c", RootID: "x"}, func(cur Session) (Session, error) {
		t.Fatal("fn must not run")
		return cur, nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreTerminalRemoves(t *testing.T) {
	st := NewStore()
	s := testSession("r1")
	require.NoError(t, st.Create(s))

	_, err := st.Update(context.Background(), s.Key, func(cur Session) (Session, error) {
		cur.Stage = StageFinished
		return cur, nil
	})
	require.NoError(t, err)
	assert.False(t, st.Exists(s.Key))

	_, err = st.Update(context.Background(), s.Key, func(cur Session) (Session, error) { return cur, nil })
	assert.ErrorIs(t, err, ErrNotFound)

	// The thread can start a new dialog afterwards.
	require.NoError(t, st.Create(s))
}

func TestStoreDelete(t *testing.T) {
	st := NewStore()
	s := testSession("r1")
	require.NoError(t, st.Create(s))

	require.NoError(t, st.Delete(context.Background(), s.Key))
	assert.False(t, st.Exists(s.Key))
	assert.ErrorIs(t, st.Delete(context.Background(), s.Key), ErrNotFound)
}

func TestStoreUpdateSerializesSameKey(t *testing.T) {
	st := NewStore()
	s := testSession("r1")
	require.NoError(t, st.Create(s))

	var wg sync.WaitGroup
	var mu sync.Mutex
	inside := 0
	maxInside := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Update(context.Background(), s.Key, func(cur Session) (Session, error) {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)
				cur.Title += "."

				mu.Lock()
				inside--
				mu.Unlock()
				return cur, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	got, err := st.Update(context.Background(), s.Key, func(cur Session) (Session, error) { return cur, nil })
	require.NoError(t, err)
	assert.Equal(t, "Отчёт"+strings.Repeat(".", 20), got.Title)
}

func TestStoreDifferentKeysDoNotBlock(t *testing.T) {
	st := NewStore()
	a := testSession("a")
	b := testSession("b")
	require.NoError(t, st.Create(a))
	require.NoError(t, st.Create(b))

	held := make(chan struct{})
	releaseA := make(chan struct{})
	go func() {
		_, _ = st.Update(context.Background(), a.Key, func(cur Session) (Session, error) {
			close(held)
			<-releaseA
			return cur, nil
		})
	}()
	<-held
	defer close(releaseA)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := st.Update(ctx, b.Key, func(cur Session) (Session, error) { return cur, nil })
	require.NoError(t, err)

	// a is still held, so a bounded wait on it gives up.
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	_, err = st.Update(short, a.Key, func(cur Session) (Session, error) { return cur, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStoreIdleSince(t *testing.T) {
	st := NewStore()
	old := testSession("old")
	fresh := testSession("fresh")
	fresh.LastActivity = t0.Add(10 * time.Minute)
	require.NoError(t, st.Create(old))
	require.NoError(t, st.Create(fresh))

	keys := st.IdleSince(t0.Add(5 * time.Minute))
	assert.Equal(t, []Key{old.Key}, keys)

	_, err := st.Update(context.Background(), old.Key, func(cur Session) (Session, error) {
		cur.LastActivity = t0.Add(20 * time.Minute)
		return cur, nil
	})
	require.NoError(t, err)
	assert.Empty(t, st.IdleSince(t0.Add(5*time.Minute)))
}
