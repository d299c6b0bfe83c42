package ids

import (
	"strconv"
	"sync"
	"time"
)

const (
	seqBits  = 12
	nodeBits = 10
	seqMask  = (1 << seqBits) - 1
	maxNode  = (1 << nodeBits) - 1
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator 雪花ID：41bit 毫秒时间戳 | 10bit 节点 | 12bit 序列
type Generator struct {
	mu       sync.Mutex
	epochMS  int64
	nodeID   int64
	seq      int64
	lastTSMS int64
	now      func() time.Time
}

func NewGenerator(nodeID int64) *Generator {
	if nodeID < 0 || nodeID > maxNode {
		nodeID = 1
	}
	return &Generator{
		epochMS: epoch.UnixMilli(),
		nodeID:  nodeID,
		now:     time.Now,
	}
}

var (
	defaultGen = NewGenerator(1)
	defaultMu  sync.RWMutex
)

// SetNodeID 设置默认生成器的 nodeID（0~1023），在 main() 初始化时调用
func SetNodeID(nodeID int64) {
	defaultMu.Lock()
	defaultGen = NewGenerator(nodeID)
	defaultMu.Unlock()
}

func Generate() int64 {
	defaultMu.RLock()
	g := defaultGen
	defaultMu.RUnlock()
	return g.Next()
}

func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

// NextString 十进制字符串形式，用作会话 id
func (g *Generator) NextString() string {
	return strconv.FormatInt(g.Next(), 10)
}

func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UnixMilli()
	if now < g.lastTSMS {
		// 时钟回拨：沿用上一个时间戳继续递增序列
		now = g.lastTSMS
	}
	if now == g.lastTSMS {
		g.seq = (g.seq + 1) & seqMask
		if g.seq == 0 {
			// 序列溢出，等到下一毫秒
			for now <= g.lastTSMS {
				time.Sleep(100 * time.Microsecond)
				now = g.now().UnixMilli()
				if now < g.lastTSMS {
					now = g.lastTSMS
				}
			}
		}
	} else {
		g.seq = 0
	}
	g.lastTSMS = now

	ts := (now - g.epochMS) & ((1 << 41) - 1)
	return (ts << (nodeBits + seqBits)) | (g.nodeID << seqBits) | g.seq
}

// NodeOf 从ID中取出节点号
func NodeOf(id int64) int64 {
	return (id >> seqBits) & maxNode
}
