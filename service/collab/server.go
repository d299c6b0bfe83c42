package collab

import (
	"context"
	"sync/atomic"
	"time"

	"PPicture/logger"
	"PPicture/tools/errs"
	"PPicture/tools/ids"
	"PPicture/tools/safe"

	"go.uber.org/zap"
)

// Conf 协同编辑服务配置
type Conf struct {
	NodeID   int64
	Pipeline PipelineConf
	Conn     ConnConf
	// 停机排空流水线的上限；调用方 ctx 更早到期时以 ctx 为准
	CloseWait time.Duration
}

// Deps 外部协作者；Identity / Directory 必填
type Deps struct {
	Identity  Identity
	Directory Directory
	Presenter Presenter
	Presence  PresenceSink
	Activity  ActivityPublisher
	Metrics   *Metrics
}

// Server 持有会话表、编辑锁、广播器、分发器和事件流水线
type Server struct {
	conf Conf

	identity  Identity
	directory Directory
	presenter Presenter
	presence  PresenceSink
	activity  ActivityPublisher
	metrics   *Metrics

	registry    *Registry
	locks       *EditLock
	broadcaster *Broadcaster
	disp        *Dispatcher
	pipeline    *Pipeline
	ids         *ids.Generator

	closing atomic.Bool
}

func NewServer(conf Conf, deps Deps) (*Server, error) {
	if deps.Identity == nil || deps.Directory == nil {
		return nil, errs.ErrArgs.WrapMsg("collab server needs identity and directory")
	}
	if deps.Presenter == nil {
		deps.Presenter = DefaultPresenter
	}
	if deps.Presence == nil {
		deps.Presence = nopPresence{}
	}
	if deps.Activity == nil {
		deps.Activity = nopActivity{}
	}
	conf.Conn.norm()

	s := &Server{
		conf:      conf,
		identity:  deps.Identity,
		directory: deps.Directory,
		presenter: deps.Presenter,
		presence:  deps.Presence,
		activity:  deps.Activity,
		metrics:   deps.Metrics,
		registry:  NewRegistry(),
		locks:     NewEditLock(),
		ids:       ids.NewGenerator(conf.NodeID),
	}
	s.broadcaster = NewBroadcaster(s.registry, s.metrics)
	s.disp = NewDispatcher(s.presenter)
	s.pipeline = NewPipeline(conf.Pipeline, s.disp.Dispatch, s.metrics)
	return s, nil
}

func (s *Server) Registry() *Registry       { return s.registry }
func (s *Server) Locks() *EditLock          { return s.locks }
func (s *Server) Broadcaster() *Broadcaster { return s.broadcaster }
func (s *Server) Disp() *Dispatcher         { return s.disp }
func (s *Server) Pipeline() *Pipeline       { return s.pipeline }
func (s *Server) Metrics() *Metrics         { return s.metrics }

// Register 注册处理器，一般在启动时调用
func (s *Server) Register(handlers ...Handler) {
	for _, h := range handlers {
		s.disp.Register(h)
	}
}

// PublishActivity 异步投递协同动态，失败只记日志
func (s *Server) PublishActivity(kind ActivityKind, sess *Session, pictureID int64) {
	a := &Activity{Kind: kind, PictureID: pictureID, At: time.Now()}
	if sess != nil {
		a.UserID = sess.UserID()
		a.SessionID = sess.ID
	}
	safe.Go("activity publish", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.activity.Publish(ctx, a); err != nil {
			logger.Warn("[Activity] publish failed",
				zap.String("kind", string(kind)), zap.Int64("pictureId", pictureID), zap.Error(err))
		}
	})
}

// Shutdown 拒绝新握手 -> 排空流水线 -> 关闭全部会话 -> 释放全部编辑锁
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	logger.Info("[Collab] shutting down", zap.Int("sessions", s.registry.Total()), zap.Int("queued", s.pipeline.Len()))

	if s.conf.CloseWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.conf.CloseWait)
		defer cancel()
	}
	drainErr := s.pipeline.Shutdown(ctx)
	if drainErr != nil {
		logger.Warn("[Collab] pipeline drain incomplete", zap.Error(drainErr))
	}

	for _, sess := range s.registry.All() {
		s.OnClose(sess, "server shutdown")
	}

	released := s.locks.ReleaseAll()
	logger.Info("[Collab] shutdown complete", zap.Int("releasedLocks", released))
	return drainErr
}

func (s *Server) Closing() bool { return s.closing.Load() }
