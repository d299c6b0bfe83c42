package handlers

import (
	"context"

	"PPicture/logger"
	"PPicture/service/collab"

	"go.uber.org/zap"
)

// EnterEditHandler 抢占编辑权；已被占用时静默忽略
type EnterEditHandler struct{ ctx *collab.Context }

func NewEnterEditHandler(ctx *collab.Context) collab.Handler { return &EnterEditHandler{ctx: ctx} }

func (h *EnterEditHandler) Type() collab.MessageType { return collab.TypeEnterEdit }

func (h *EnterEditHandler) Handle(_ context.Context, _ *collab.InboundMessage, s *collab.Session, user *collab.UserView, pictureID int64) error {
	if user == nil || user.ID <= 0 || pictureID <= 0 {
		return nil
	}
	srv := h.ctx.S
	granted := srv.Locks().TryAcquire(pictureID, user.ID)
	srv.Metrics().Lock(granted)
	if !granted {
		holder, _ := srv.Locks().HolderOf(pictureID)
		logger.Debug("[EnterEdit] picture already being edited",
			zap.Int64("pictureId", pictureID), zap.Int64("userId", user.ID), zap.Int64("holder", holder))
		return nil
	}
	// 会话已在离开流程中，锁不能留给它
	if s != nil && s.Left() {
		srv.Locks().Release(pictureID, user.ID)
		return nil
	}
	// 关闭流程的强制退出可能已抢先释放
	if !srv.Locks().IsHolder(pictureID, user.ID) {
		return nil
	}
	if _, err := srv.Broadcaster().Broadcast(pictureID, collab.EnterEditNotice(user)); err != nil {
		return err
	}
	// 广播期间会话离开且锁已被释放：退出通知可能早于本条进入通知，补发一条
	if s != nil && s.Left() && !srv.Locks().IsHolder(pictureID, user.ID) {
		_, err := srv.Broadcaster().Broadcast(pictureID, collab.ExitEditNotice(user))
		return err
	}
	srv.PublishActivity(collab.ActivityEnterEdit, s, pictureID)
	return nil
}
