package handlers

import (
	"context"

	"PPicture/service/collab"
)

// ErrorHandler 未知消息类型的兜底：只回给发送方
type ErrorHandler struct{ ctx *collab.Context }

func NewErrorHandler(ctx *collab.Context) collab.Handler { return &ErrorHandler{ctx: ctx} }

func (h *ErrorHandler) Type() collab.MessageType { return collab.TypeError }

func (h *ErrorHandler) Handle(_ context.Context, _ *collab.InboundMessage, s *collab.Session, user *collab.UserView, _ int64) error {
	return h.ctx.S.Broadcaster().SendTo(s, collab.ErrorNotice(user, ""))
}
