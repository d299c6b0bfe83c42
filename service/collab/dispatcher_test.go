package collab

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordHandler struct {
	t     MessageType
	name  string
	calls []string
}

func (h *recordHandler) Type() MessageType { return h.t }

func (h *recordHandler) Handle(_ context.Context, msg *InboundMessage, _ *Session, user *UserView, _ int64) error {
	who := ""
	if user != nil {
		who = user.Name
	}
	h.calls = append(h.calls, h.name+":"+string(msg.Type)+":"+who)
	return nil
}

func TestDispatcherSkipsUntypedHandler(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(&recordHandler{t: "", name: "blank"})
	d.Register(nil)
	assert.Nil(t, d.GetHandler(""))
	assert.Empty(t, d.handlers)
}

func TestDispatcherDuplicateLaterWins(t *testing.T) {
	d := NewDispatcher(nil)
	first := &recordHandler{t: TypeEnterEdit, name: "first"}
	second := &recordHandler{t: TypeEnterEdit, name: "second"}
	d.Register(first)
	d.Register(second)
	assert.Same(t, second, d.GetHandler(TypeEnterEdit))
}

func TestDispatcherFallsBackToError(t *testing.T) {
	d := NewDispatcher(nil)
	fallback := &recordHandler{t: TypeError, name: "err"}
	d.Register(fallback)

	s := newTestSession("s", 1, 9)
	err := d.Dispatch(context.Background(), &Event{Message: &InboundMessage{Type: "BOGUS"}, Session: s, User: s.User, PictureID: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"err:BOGUS:u9"}, fallback.calls)
	assert.Nil(t, d.GetHandler("BOGUS"))
}

func TestDispatcherWithoutFallback(t *testing.T) {
	d := NewDispatcher(nil)
	err := d.Dispatch(context.Background(), &Event{Message: &InboundMessage{Type: "BOGUS"}})
	assert.Error(t, err)
	assert.Error(t, d.Dispatch(context.Background(), nil))
}

func TestDispatcherPresenterWithoutSession(t *testing.T) {
	d := NewDispatcher(func(u *User) *UserView { return &UserView{ID: u.ID, Name: "p-" + u.Account} })
	h := &recordHandler{t: TypeExitEdit, name: "exit"}
	d.Register(h)
	err := d.Dispatch(context.Background(), &Event{Message: &InboundMessage{Type: TypeExitEdit}, User: &User{ID: 3, Account: "acc"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"exit:EXIT_EDIT:p-acc"}, h.calls)
}

type failConn struct{ nullConn }

func (failConn) Send([]byte) error { return ErrSessionClosed.Wrap() }

func TestBroadcastExcept(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := NewRegistry()
	b := NewBroadcaster(r, m)

	a := newTestSession("a", 42, 1)
	bs := newTestSession("b", 42, 2)
	c := newTestSession("c", 42, 3)
	bad := NewSession("d", 42, &User{ID: 4}, nil, failConn{})
	other := newTestSession("e", 43, 5)
	for _, s := range []*Session{a, bs, c, bad, other} {
		r.Join(s.PictureID, s)
	}

	n, err := b.BroadcastExcept(42, ExitEditNotice(a.View), a)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "delivered to b and c only; d fails without aborting")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.deliveries.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.deliveries.WithLabelValues("failed")))

	n, err = b.Broadcast(99, JoinNotice(nil))
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, bs.Close())
	n, _ = b.Broadcast(42, JoinNotice(nil))
	assert.Equal(t, 2, n, "closed sessions are skipped")
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.SessionOpened()
	m.Event(TypeInfo, "ok", 0)
	m.Broadcast(1, 1)
	m.Lock(true)
	m.QueueDepth(3)
	m.Handshake("ok")
}
