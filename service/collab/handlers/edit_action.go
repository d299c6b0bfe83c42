package handlers

import (
	"context"

	"PPicture/logger"
	"PPicture/service/collab"

	"go.uber.org/zap"
)

// EditActionHandler 编辑者的操作转发给其他会话（不回发给自己）
type EditActionHandler struct{ ctx *collab.Context }

func NewEditActionHandler(ctx *collab.Context) collab.Handler { return &EditActionHandler{ctx: ctx} }

func (h *EditActionHandler) Type() collab.MessageType { return collab.TypeEditAction }

func (h *EditActionHandler) Handle(_ context.Context, msg *collab.InboundMessage, s *collab.Session, user *collab.UserView, pictureID int64) error {
	if msg == nil || user == nil {
		return nil
	}
	action, ok := collab.ParseEditAction(msg.Action)
	if !ok {
		logger.Warn("[EditAction] invalid action", zap.String("action", msg.Action), zap.Int64("pictureId", pictureID))
		return nil
	}
	srv := h.ctx.S
	if !srv.Locks().IsHolder(pictureID, user.ID) {
		return nil
	}
	_, err := srv.Broadcaster().BroadcastExcept(pictureID, collab.EditActionNotice(user, action), s)
	return err
}
