package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
)

// 全局单例 + once
var (
	globalMgr *MiddlewareManager
	once      sync.Once
)

type namedMiddleware struct {
	name string
	h    gin.HandlerFunc
}

// MiddlewareManager 按名字注册/注销全局中间件，运行时可调整
type MiddlewareManager struct {
	mu   sync.RWMutex
	mids []namedMiddleware
}

func NewManager() *MiddlewareManager {
	return &MiddlewareManager{}
}

// Manager 获取全局实例
func Manager() *MiddlewareManager {
	once.Do(func() {
		globalMgr = NewManager()
	})
	return globalMgr
}

// Add 注册中间件；同名覆盖，保持原顺序
func (m *MiddlewareManager) Add(name string, h gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.mids {
		if m.mids[i].name == name {
			m.mids[i].h = h
			return
		}
	}
	m.mids = append(m.mids, namedMiddleware{name: name, h: h})
}

func (m *MiddlewareManager) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.mids {
		if m.mids[i].name == name {
			m.mids = append(m.mids[:i], m.mids[i+1:]...)
			return true
		}
	}
	return false
}

func (m *MiddlewareManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.mids))
	for _, x := range m.mids {
		out = append(out, x.name)
	}
	return out
}

// Use 作为总控挂到 Engine 上
func (m *MiddlewareManager) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		handlers := append([]namedMiddleware{}, m.mids...) // 快照
		m.mu.RUnlock()

		for _, x := range handlers {
			x.h(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}
