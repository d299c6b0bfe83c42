package handlers_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"PPicture/service/auth"
	"PPicture/service/collab"
	"PPicture/service/collab/collabtest"
	"PPicture/service/collab/handlers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t   *testing.T
	srv *collab.Server
	act *collabtest.Activity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := collabtest.NewDirectory()
	for _, pic := range []int64{7, 42} {
		dir.Put(&collab.Resource{PictureID: pic, SpaceID: 5, SpaceType: auth.SpaceTeam})
	}
	act := &collabtest.Activity{}
	srv, err := collab.NewServer(collab.Conf{
		Pipeline: collab.PipelineConf{Workers: 2, Buffer: 16},
	}, collab.Deps{
		Identity:  collabtest.NewIdentity(),
		Directory: dir,
		Activity:  act,
		Metrics:   collab.NewMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	handlers.RegisterAll(srv)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return &fixture{t: t, srv: srv, act: act}
}

func (f *fixture) join(pictureID, userID int64) (*collab.Session, *collabtest.Conn) {
	u := &collab.User{ID: userID, Name: fmt.Sprintf("user%d", userID)}
	conn := collabtest.NewConn(fmt.Sprintf("10.0.0.%d:5000", userID))
	return f.srv.Admit(context.Background(), pictureID, u, conn), conn
}

// send 绕过流水线同步分发，便于断言
func (f *fixture) send(s *collab.Session, raw string) {
	f.t.Helper()
	msg, err := collab.DecodeInbound([]byte(raw))
	require.NoError(f.t, err)
	err = f.srv.Disp().Dispatch(context.Background(), &collab.Event{
		Message: msg, Session: s, User: s.User, PictureID: s.PictureID,
	})
	require.NoError(f.t, err)
}

func reset(conns ...*collabtest.Conn) {
	for _, c := range conns {
		c.Reset()
	}
}

func total(conns ...*collabtest.Conn) int {
	n := 0
	for _, c := range conns {
		n += len(c.Messages())
	}
	return n
}

func TestJoinBroadcastsToEveryoneIncludingSelf(t *testing.T) {
	f := newFixture(t)
	_, c1 := f.join(42, 1)
	_, c2 := f.join(42, 2)

	require.Len(t, c1.Messages(), 2)
	got := c2.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, collab.TypeInfo, got[0].Type)
	assert.Equal(t, "user user2 joined editing", got[0].Message)
	assert.Equal(t, int64(2), got[0].User.ID)
}

func TestEnterEditBroadcastsHolder(t *testing.T) {
	f := newFixture(t)
	s1, c1 := f.join(42, 1)
	_, c2 := f.join(42, 2)
	reset(c1, c2)

	f.send(s1, `{"type":"ENTER_EDIT"}`)

	holder, ok := f.srv.Locks().HolderOf(42)
	require.True(t, ok)
	assert.Equal(t, int64(1), holder)
	for _, c := range []*collabtest.Conn{c1, c2} {
		msgs := c.OfType(collab.TypeEnterEdit)
		require.Len(t, msgs, 1)
		assert.Equal(t, "user user1 started editing the picture", msgs[0].Message)
	}
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(
			[]collab.ActivityKind{collab.ActivityEnterEdit, collab.ActivityJoin, collab.ActivityJoin},
			sortedKinds(f.act.Kinds()))
	}, time.Second, 10*time.Millisecond)
}

func TestSecondEnterEditIsSilent(t *testing.T) {
	f := newFixture(t)
	s1, c1 := f.join(7, 1)
	s2, c2 := f.join(7, 2)
	f.send(s1, `{"type":"ENTER_EDIT"}`)
	reset(c1, c2)

	f.send(s2, `{"type":"ENTER_EDIT"}`)

	holder, _ := f.srv.Locks().HolderOf(7)
	assert.Equal(t, int64(1), holder)
	assert.Zero(t, total(c1, c2))
}

func TestEditActionFromNonHolderIsDropped(t *testing.T) {
	f := newFixture(t)
	s1, c1 := f.join(42, 1)
	s2, c2 := f.join(42, 2)
	_, c3 := f.join(42, 3)
	f.send(s1, `{"type":"ENTER_EDIT"}`)
	reset(c1, c2, c3)

	f.send(s2, `{"type":"EDIT_ACTION","action":"zoom_in"}`)

	assert.Zero(t, total(c1, c2, c3))
}

func TestEditActionFromHolderSkipsSender(t *testing.T) {
	f := newFixture(t)
	s1, c1 := f.join(42, 1)
	_, c2 := f.join(42, 2)
	_, c3 := f.join(42, 3)
	f.send(s1, `{"type":"ENTER_EDIT"}`)
	reset(c1, c2, c3)

	f.send(s1, `{"type":"EDIT_ACTION","action":"rotate-right"}`)

	assert.Empty(t, c1.Messages())
	for _, c := range []*collabtest.Conn{c2, c3} {
		msgs := c.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, collab.TypeEditAction, msgs[0].Type)
		assert.Equal(t, collab.ActionRotateRight, msgs[0].Action)
		assert.Equal(t, "user1 performed rotate right", msgs[0].Message)
	}
}

func TestEditActionInvalidIsDropped(t *testing.T) {
	f := newFixture(t)
	s1, c1 := f.join(42, 1)
	_, c2 := f.join(42, 2)
	f.send(s1, `{"type":"ENTER_EDIT"}`)
	reset(c1, c2)

	f.send(s1, `{"type":"EDIT_ACTION","action":"FLIP"}`)
	f.send(s1, `{"type":"EDIT_ACTION"}`)

	assert.Zero(t, total(c1, c2))
}

func TestUnknownTypeAnswersSenderOnly(t *testing.T) {
	f := newFixture(t)
	s1, c1 := f.join(42, 1)
	_, c2 := f.join(42, 2)
	reset(c1, c2)

	f.send(s1, `{"type":"BOGUS"}`)

	msgs := c1.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, collab.TypeError, msgs[0].Type)
	assert.Equal(t, "unsupported message type", msgs[0].Message)
	require.NotNil(t, msgs[0].User)
	assert.Equal(t, int64(1), msgs[0].User.ID)
	assert.Equal(t, "user1", msgs[0].User.Name)
	assert.Empty(t, c2.Messages())
}

func TestDoubleExitEditBroadcastsOnce(t *testing.T) {
	f := newFixture(t)
	s1, c1 := f.join(42, 1)
	_, c2 := f.join(42, 2)
	f.send(s1, `{"type":"ENTER_EDIT"}`)
	reset(c1, c2)

	f.send(s1, `{"type":"EXIT_EDIT"}`)
	f.send(s1, `{"type":"EXIT_EDIT"}`)

	assert.Len(t, c2.OfType(collab.TypeExitEdit), 1)
	assert.Len(t, c1.OfType(collab.TypeExitEdit), 1)
	_, held := f.srv.Locks().HolderOf(42)
	assert.False(t, held)
}

func TestExitEditByNonHolderIsNoop(t *testing.T) {
	f := newFixture(t)
	s1, c1 := f.join(42, 1)
	s2, c2 := f.join(42, 2)
	f.send(s1, `{"type":"ENTER_EDIT"}`)
	reset(c1, c2)

	f.send(s2, `{"type":"EXIT_EDIT"}`)

	assert.Zero(t, total(c1, c2))
	holder, _ := f.srv.Locks().HolderOf(42)
	assert.Equal(t, int64(1), holder)
}

func TestCloseReleasesHolderLock(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.join(42, 1)
	_, c2 := f.join(42, 2)
	f.send(s1, `{"type":"ENTER_EDIT"}`)
	c2.Reset()

	f.srv.OnClose(s1, "peer closed")

	msgs := c2.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, collab.TypeExitEdit, msgs[0].Type)
	assert.Equal(t, collab.TypeInfo, msgs[1].Type)
	assert.Equal(t, "user user1 left editing", msgs[1].Message)
	assert.True(t, f.srv.Locks().TryAcquire(42, 2))
	assert.Equal(t, 1, f.srv.Registry().Count(42))
}

func TestEnterEditAfterLeaveDoesNotKeepLock(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.join(42, 1)
	f.srv.OnClose(s1, "peer closed")

	f.send(s1, `{"type":"ENTER_EDIT"}`)

	_, held := f.srv.Locks().HolderOf(42)
	assert.False(t, held)
}

// 进入编辑与关闭并发时，旁观者最后看到的编辑状态必须是退出
func TestEnterEditRacingCloseEndsWithExit(t *testing.T) {
	f := newFixture(t)
	_, watcher := f.join(7, 2)
	for i := 0; i < 200; i++ {
		s1, _ := f.join(7, 1)
		watcher.Reset()
		msg := &collab.InboundMessage{Type: collab.TypeEnterEdit}
		h := f.srv.Disp().GetHandler(collab.TypeEnterEdit)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = h.Handle(context.Background(), msg, s1, s1.View, 7)
		}()
		go func() {
			defer wg.Done()
			f.srv.OnClose(s1, "peer closed")
		}()
		wg.Wait()

		_, held := f.srv.Locks().HolderOf(7)
		require.False(t, held, "iteration %d", i)
		var last collab.MessageType
		for _, m := range watcher.Messages() {
			if m.Type == collab.TypeEnterEdit || m.Type == collab.TypeExitEdit {
				last = m.Type
			}
		}
		if last != "" {
			require.Equal(t, collab.TypeExitEdit, last, "iteration %d", i)
		}
	}
}

func TestPipelineDeliversEndToEnd(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.join(42, 1)
	_, c2 := f.join(42, 2)
	c2.Reset()

	f.srv.OnMessage(context.Background(), s1, []byte(`{"type":"ENTER_EDIT"}`))
	f.srv.OnMessage(context.Background(), s1, []byte(`{oops`))

	assert.Eventually(t, func() bool {
		return len(c2.OfType(collab.TypeEnterEdit)) == 1
	}, time.Second, 10*time.Millisecond)
}

func sortedKinds(in []collab.ActivityKind) []collab.ActivityKind {
	out := append([]collab.ActivityKind(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
