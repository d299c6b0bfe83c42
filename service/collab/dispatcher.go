package collab

import (
	"context"
	"fmt"
	"sync"

	"PPicture/logger"
	"PPicture/tools/errs"

	"go.uber.org/zap"
)

// Handler 一种消息类型的处理策略
type Handler interface {
	Type() MessageType
	Handle(ctx context.Context, msg *InboundMessage, s *Session, user *UserView, pictureID int64) error
}

// Context 处理器构造时持有，访问服务端共享组件
type Context struct {
	S *Server
}

// Event 流水线中的一条入站消息
type Event struct {
	Message   *InboundMessage
	Session   *Session
	User      *User
	PictureID int64
}

// Dispatcher 消息类型 -> 处理器；查不到时回落到 ERROR 处理器
type Dispatcher struct {
	mu        sync.RWMutex
	handlers  map[MessageType]Handler
	presenter Presenter
}

func NewDispatcher(presenter Presenter) *Dispatcher {
	if presenter == nil {
		presenter = DefaultPresenter
	}
	return &Dispatcher{handlers: make(map[MessageType]Handler), presenter: presenter}
}

// Register 重复注册时后者覆盖并告警
func (d *Dispatcher) Register(h Handler) {
	if h == nil {
		return
	}
	if h.Type() == "" {
		logger.Error("[Dispatcher] handler without type skipped", zap.String("handler", fmt.Sprintf("%T", h)))
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.handlers[h.Type()]; dup {
		logger.Warn("[Dispatcher] duplicate handler, replacing", zap.String("type", string(h.Type())))
	}
	d.handlers[h.Type()] = h
}

// GetHandler 精确查找，不回落
func (d *Dispatcher) GetHandler(t MessageType) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[t]
}

// Lookup 查找处理器，未注册的类型回落到 ERROR 处理器
func (d *Dispatcher) Lookup(t MessageType) Handler {
	d.mu.RLock()
	h, ok := d.handlers[t]
	fallback := d.handlers[TypeError]
	d.mu.RUnlock()
	if ok {
		return h
	}
	logger.Error("[Dispatcher] no handler for type, falling back", zap.String("type", string(t)))
	return fallback
}

// Dispatch 由流水线 worker 调用
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) error {
	if ev == nil || ev.Message == nil {
		return errs.ErrArgs.WrapMsg("empty event")
	}
	h := d.Lookup(ev.Message.Type)
	if h == nil {
		return errs.ErrInternalServer.WrapMsg("no fallback handler registered", "type", ev.Message.Type)
	}
	view := d.view(ev)
	return h.Handle(ctx, ev.Message, ev.Session, view, ev.PictureID)
}

func (d *Dispatcher) view(ev *Event) *UserView {
	if ev.Session != nil && ev.Session.View != nil {
		return ev.Session.View
	}
	return d.presenter(ev.User)
}
