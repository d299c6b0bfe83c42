package collab

import (
	"context"
	"strconv"
	"strings"
	"time"

	"PPicture/logger"
	"PPicture/service/auth"
	"PPicture/tools/errs"
	"PPicture/tools/safe"

	"go.uber.org/zap"
)

const presenceTimeout = 2 * time.Second

// Authorize 握手鉴权；拒绝时不产生任何会话 / 锁状态
func (s *Server) Authorize(ctx context.Context, rawPictureID, credentials string) (*User, int64, error) {
	user, pictureID, err := s.authorize(ctx, rawPictureID, credentials)
	if err != nil {
		s.metrics.Handshake(handshakeResult(err))
		return nil, 0, err
	}
	s.metrics.Handshake("ok")
	return user, pictureID, nil
}

func (s *Server) authorize(ctx context.Context, rawPictureID, credentials string) (*User, int64, error) {
	if s.closing.Load() {
		return nil, 0, errs.ErrClosed.WrapMsg("server shutting down")
	}
	rawPictureID = strings.TrimSpace(rawPictureID)
	if rawPictureID == "" {
		return nil, 0, errs.ErrArgs.WrapMsg("pictureId is required")
	}
	pictureID, err := strconv.ParseInt(rawPictureID, 10, 64)
	if err != nil || pictureID <= 0 {
		return nil, 0, errs.ErrArgs.WrapMsg("pictureId is malformed", "pictureId", rawPictureID)
	}

	user, err := s.identity.Authenticate(ctx, credentials)
	if err != nil {
		return nil, 0, err
	}
	if user == nil || user.ID <= 0 {
		return nil, 0, errs.ErrNotLogin.WrapMsg("no user for credentials")
	}

	res, err := s.directory.Lookup(ctx, pictureID)
	if err != nil {
		return nil, 0, err
	}
	if res == nil {
		return nil, 0, errs.ErrRecordNotFound.WrapMsg("picture not found", "pictureId", pictureID)
	}
	if res.SpaceID == 0 {
		return nil, 0, errs.ErrNoPermission.WrapMsg("picture is not in a space", "pictureId", pictureID)
	}
	if res.SpaceType != auth.SpaceTeam {
		return nil, 0, errs.ErrNoPermission.WrapMsg("collaborative editing needs a team space",
			"pictureId", pictureID, "spaceType", res.SpaceType.String())
	}

	perms, err := s.identity.Permissions(ctx, user, res)
	if err != nil {
		return nil, 0, err
	}
	if !auth.Has(perms, auth.PictureEdit) {
		return nil, 0, errs.ErrNoPermission.WrapMsg("no edit permission", "userId", user.ID, "pictureId", pictureID)
	}
	return user, pictureID, nil
}

func handshakeResult(err error) string {
	if ce, ok := errs.AsCode(err); ok {
		switch ce.Code {
		case errs.ParamsError:
			return "bad_request"
		case errs.NotLoginErr, errs.TokenInvalid, errs.TokenExpired:
			return "unauthenticated"
		case errs.NoAuthErr:
			return "forbidden"
		case errs.NotFoundErr:
			return "not_found"
		case errs.ClosedErr:
			return "closing"
		}
	}
	return "error"
}

// Admit 为已通过鉴权的连接创建会话并执行 OnOpen
func (s *Server) Admit(ctx context.Context, pictureID int64, user *User, conn Conn) *Session {
	sess := NewSession(s.ids.NextString(), pictureID, user, s.presenter(user), conn)
	s.OnOpen(ctx, sess)
	return sess
}

// OnOpen 加入会话表，并向该图片全部会话（含自己）广播加入通知
func (s *Server) OnOpen(ctx context.Context, sess *Session) {
	s.registry.Join(sess.PictureID, sess)
	s.metrics.SessionOpened()
	logger.Info("[Gateway] session opened",
		zap.String("session", sess.ID), zap.Int64("pictureId", sess.PictureID),
		zap.Int64("userId", sess.UserID()), zap.String("remote", sess.RemoteAddr()))

	if _, err := s.broadcaster.Broadcast(sess.PictureID, JoinNotice(sess.View)); err != nil {
		logger.Warn("[Gateway] join notice failed", zap.String("session", sess.ID), zap.Error(err))
	}
	s.markPresence(ctx, sess, true)
	s.PublishActivity(ActivityJoin, sess, sess.PictureID)
}

// OnMessage 解码并入队；解码失败只记日志，连接保持
func (s *Server) OnMessage(ctx context.Context, sess *Session, raw []byte) {
	msg, err := DecodeInbound(raw)
	if err != nil {
		sample := raw
		if len(sample) > 256 {
			sample = sample[:256]
		}
		logger.Warn("[Gateway] drop malformed frame",
			zap.String("session", sess.ID), zap.ByteString("sample", sample), zap.Int("len", len(raw)), zap.Error(err))
		return
	}
	ev := &Event{Message: msg, Session: sess, User: sess.User, PictureID: sess.PictureID}
	if err := s.pipeline.Submit(ctx, ev); err != nil {
		logger.Debug("[Gateway] event not submitted",
			zap.String("session", sess.ID), zap.String("type", string(msg.Type)), zap.Error(err))
	}
}

// OnClose 同步执行强制退出编辑，再移出会话表并通知其余会话；同一会话只执行一次
func (s *Server) OnClose(sess *Session, reason string) {
	if sess == nil || !sess.markLeft() {
		return
	}
	ctx := context.Background()

	s.forceExit(ctx, sess)

	removed := s.registry.Leave(sess.PictureID, sess)
	_ = sess.Close()
	if removed {
		s.metrics.SessionClosed()
	}
	logger.Info("[Gateway] session closed",
		zap.String("session", sess.ID), zap.Int64("pictureId", sess.PictureID),
		zap.Int64("userId", sess.UserID()), zap.String("reason", reason))

	if _, err := s.broadcaster.Broadcast(sess.PictureID, LeaveNotice(sess.View)); err != nil {
		logger.Warn("[Gateway] leave notice failed", zap.String("session", sess.ID), zap.Error(err))
	}
	s.markPresence(ctx, sess, false)
	s.PublishActivity(ActivityLeave, sess, sess.PictureID)
}

func (s *Server) forceExit(ctx context.Context, sess *Session) {
	msg := &InboundMessage{Type: TypeExitEdit}
	h := s.disp.GetHandler(TypeExitEdit)
	if h == nil {
		if s.locks.Release(sess.PictureID, sess.UserID()) {
			logger.Warn("[Gateway] no exit handler, lock released directly", zap.Int64("pictureId", sess.PictureID))
		}
		return
	}
	err := safe.Call("forced exit", func() error {
		return h.Handle(ctx, msg, sess, sess.View, sess.PictureID)
	})
	if err != nil {
		logger.Error("[Gateway] forced exit failed", zap.String("session", sess.ID), zap.Error(err))
		s.locks.Release(sess.PictureID, sess.UserID())
	}
}

func (s *Server) markPresence(ctx context.Context, sess *Session, online bool) {
	ctx, cancel := context.WithTimeout(ctx, presenceTimeout)
	defer cancel()
	var err error
	if online {
		err = s.presence.Online(ctx, sess.PictureID, sess.UserID())
	} else {
		err = s.presence.Offline(ctx, sess.PictureID, sess.UserID())
	}
	if err != nil {
		logger.Warn("[Gateway] presence update failed",
			zap.Bool("online", online), zap.Int64("pictureId", sess.PictureID), zap.Error(err))
	}
}
