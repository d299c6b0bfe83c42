package activity

import (
	"context"
	"strings"
	"time"

	"PPicture/logger"
	"PPicture/service/collab"
	"PPicture/tools/errs"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type NatsConfig struct {
	Servers       []string
	Name          string
	Subject       string // 前缀，实际 subject = <Subject>.<kind>
	User          string
	Password      string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// NatsPublisher core NATS 投递，不落盘
type NatsPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNatsPublisher(cfg NatsConfig) (*NatsPublisher, error) {
	if len(cfg.Servers) == 0 {
		return nil, errs.ErrArgs.WrapMsg("nats servers missing")
	}
	if cfg.Subject == "" {
		return nil, errs.ErrArgs.WrapMsg("nats subject missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("[Activity] nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("[Activity] nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errs.WrapMsg(err, "nats connect", "servers", strings.Join(cfg.Servers, ","))
	}
	return &NatsPublisher{nc: nc, subject: cfg.Subject}, nil
}

func subjectFor(prefix string, kind collab.ActivityKind) string {
	return prefix + "." + string(kind)
}

func (p *NatsPublisher) Publish(ctx context.Context, a *collab.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(a)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(subjectFor(p.subject, a.Kind))
	msg.Data = data
	msg.Header.Set("Picture-Id", partitionKey(a))
	if err := p.nc.PublishMsg(msg); err != nil {
		return errs.WrapMsg(err, "nats publish", "subject", msg.Subject)
	}
	return nil
}

// Close 优雅关闭
func (p *NatsPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
