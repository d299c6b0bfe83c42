package collab

import (
	"PPicture/logger"

	"go.uber.org/zap"
)

// Broadcaster 把一条消息编码一次，投递给图片下的会话
type Broadcaster struct {
	registry *Registry
	metrics  *Metrics
}

func NewBroadcaster(registry *Registry, metrics *Metrics) *Broadcaster {
	return &Broadcaster{registry: registry, metrics: metrics}
}

// SendTo 单播
func (b *Broadcaster) SendTo(s *Session, msg *OutboundMessage) error {
	if s == nil || !s.IsOpen() {
		return nil
	}
	payload, err := EncodeOutbound(msg)
	if err != nil {
		return err
	}
	if err := s.Write(payload); err != nil {
		logger.Warn("[Broadcaster] send failed",
			zap.String("session", s.ID), zap.Int64("pictureId", s.PictureID), zap.Error(err))
		b.metrics.Broadcast(0, 1)
		return err
	}
	b.metrics.Broadcast(1, 0)
	return nil
}

// Broadcast 发给图片下全部会话，返回成功投递数
func (b *Broadcaster) Broadcast(pictureID int64, msg *OutboundMessage) (int, error) {
	return b.BroadcastExcept(pictureID, msg, nil)
}

// BroadcastExcept 发给除 excluded 以外的会话；按会话身份排除，同一用户的其它连接仍会收到
func (b *Broadcaster) BroadcastExcept(pictureID int64, msg *OutboundMessage, excluded *Session) (int, error) {
	targets := b.registry.SessionsFor(pictureID)
	if len(targets) == 0 {
		return 0, nil
	}
	payload, err := EncodeOutbound(msg)
	if err != nil {
		return 0, err
	}
	delivered, failed := 0, 0
	for _, s := range targets {
		if s == excluded || !s.IsOpen() {
			continue
		}
		if werr := s.Write(payload); werr != nil {
			failed++
			logger.Debug("[Broadcaster] skip session",
				zap.String("session", s.ID), zap.Int64("pictureId", pictureID), zap.Error(werr))
			continue
		}
		delivered++
	}
	b.metrics.Broadcast(delivered, failed)
	return delivered, nil
}
