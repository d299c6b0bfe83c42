package collab

import (
	"context"
	"runtime"
	"sync"
	"time"

	"PPicture/logger"
	"PPicture/tools/errs"
	"PPicture/tools/safe"

	"go.uber.org/zap"
)

var ErrPipelineClosed = errs.NewCodeError(errs.ClosedErr, "pipeline closed")

type PipelineConf struct {
	Workers int // <=0 => runtime.NumCPU()
	Buffer  int // 队列容量，满时 Submit 阻塞
}

func (c *PipelineConf) norm() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Buffer <= 0 {
		c.Buffer = 4096
	}
}

// EventFunc 处理一条事件
type EventFunc func(ctx context.Context, ev *Event) error

// Pipeline 有界队列 + 固定 worker 池；读循环入队后立即返回
type Pipeline struct {
	conf    PipelineConf
	events  chan *Event
	handle  EventFunc
	metrics *Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPipeline(conf PipelineConf, handle EventFunc, metrics *Metrics) *Pipeline {
	conf.norm()
	p := &Pipeline{
		conf:    conf,
		events:  make(chan *Event, conf.Buffer),
		handle:  handle,
		metrics: metrics,
	}
	for i := 0; i < conf.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *Pipeline) worker(n int) {
	defer p.wg.Done()
	for ev := range p.events {
		p.metrics.QueueDepth(len(p.events))
		p.run(n, ev)
	}
}

// run 单条事件的错误或 panic 只记日志，worker 继续
func (p *Pipeline) run(n int, ev *Event) {
	start := time.Now()
	err := safe.Call("pipeline", func() error {
		return p.handle(context.Background(), ev)
	})
	status := "ok"
	if err != nil {
		status = "error"
		fields := []zap.Field{zap.Int("worker", n), zap.Error(err)}
		if ev != nil && ev.Session != nil {
			fields = append(fields, zap.String("session", ev.Session.ID), zap.Int64("pictureId", ev.PictureID))
		}
		logger.Error("[Pipeline] event failed", fields...)
	}
	var t MessageType
	if ev != nil && ev.Message != nil {
		t = ev.Message.Type
	}
	p.metrics.Event(t, status, time.Since(start))
}

// Submit 入队；队列满时阻塞直到有空位或 ctx 结束。关闭后返回 ErrPipelineClosed。
func (p *Pipeline) Submit(ctx context.Context, ev *Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPipelineClosed.Wrap()
	}
	select {
	case p.events <- ev:
		p.metrics.QueueDepth(len(p.events))
		return nil
	case <-ctx.Done():
		return errs.WrapMsg(ctx.Err(), "submit event")
	}
}

func (p *Pipeline) Len() int { return len(p.events) }

func (p *Pipeline) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Shutdown 停止接收新事件，等待已入队事件处理完；ctx 到期则提前返回
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errs.WrapMsg(ctx.Err(), "pipeline drain", "pending", len(p.events))
	}
}
