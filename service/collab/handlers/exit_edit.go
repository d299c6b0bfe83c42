package handlers

import (
	"context"

	"PPicture/service/collab"
)

// ExitEditHandler 只有当前编辑者可以退出编辑
type ExitEditHandler struct{ ctx *collab.Context }

func NewExitEditHandler(ctx *collab.Context) collab.Handler { return &ExitEditHandler{ctx: ctx} }

func (h *ExitEditHandler) Type() collab.MessageType { return collab.TypeExitEdit }

func (h *ExitEditHandler) Handle(_ context.Context, _ *collab.InboundMessage, s *collab.Session, user *collab.UserView, pictureID int64) error {
	if user == nil || pictureID <= 0 {
		return nil
	}
	srv := h.ctx.S
	if !srv.Locks().Release(pictureID, user.ID) {
		return nil
	}
	if _, err := srv.Broadcaster().Broadcast(pictureID, collab.ExitEditNotice(user)); err != nil {
		return err
	}
	srv.PublishActivity(collab.ActivityExitEdit, s, pictureID)
	return nil
}
