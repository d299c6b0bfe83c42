package collab

import (
	"sync"
	"sync/atomic"
	"time"

	"PPicture/tools/errs"
)

var (
	ErrSessionClosed = errs.NewCodeError(errs.ClosedErr, "session closed")
	ErrSlowConsumer  = errs.NewCodeError(errs.ClosedErr, "session send queue full")
)

// Conn 会话底层传输。Send 不得长时间阻塞调用方。
type Conn interface {
	Send(data []byte) error
	Close() error
	RemoteAddr() string
}

// Session 一个已认证的图片编辑连接
type Session struct {
	ID        string
	PictureID int64
	User      *User
	View      *UserView
	JoinedAt  time.Time

	conn      Conn
	closed    atomic.Bool
	closeOnce sync.Once
	left      atomic.Bool
}

func NewSession(id string, pictureID int64, user *User, view *UserView, conn Conn) *Session {
	return &Session{
		ID:        id,
		PictureID: pictureID,
		User:      user,
		View:      view,
		JoinedAt:  time.Now(),
		conn:      conn,
	}
}

func (s *Session) IsOpen() bool { return !s.closed.Load() }

func (s *Session) UserID() int64 {
	if s.User == nil {
		return 0
	}
	return s.User.ID
}

func (s *Session) RemoteAddr() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr()
}

// Write 发送一帧；已关闭返回 ErrSessionClosed
func (s *Session) Write(data []byte) error {
	if s.closed.Load() || s.conn == nil {
		return ErrSessionClosed.Wrap()
	}
	return s.conn.Send(data)
}

// Close 关闭传输，可重复调用
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.conn != nil {
			err = s.conn.Close()
		}
	})
	return err
}

// Left 会话已进入离开流程；之后获得的编辑锁需要立即归还
func (s *Session) Left() bool { return s.left.Load() }

// markLeft 保证离开流程只执行一次
func (s *Session) markLeft() bool { return s.left.CompareAndSwap(false, true) }
