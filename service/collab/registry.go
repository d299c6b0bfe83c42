package collab

import (
	"sync"

	"PPicture/global"
)

const numShards = 32

type registryShard struct {
	mu        sync.RWMutex
	byPicture map[int64]map[string]*Session
}

// Registry 图片 -> 在线会话集合，按图片分片加锁
type Registry struct {
	shards [numShards]*registryShard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &registryShard{byPicture: make(map[int64]map[string]*Session)}
	}
	return r
}

func (r *Registry) shard(pictureID int64) *registryShard {
	return r.shards[global.PictureShard(pictureID, numShards)]
}

// Join 幂等
func (r *Registry) Join(pictureID int64, s *Session) {
	if s == nil {
		return
	}
	sh := r.shard(pictureID)
	sh.mu.Lock()
	set := sh.byPicture[pictureID]
	if set == nil {
		set = make(map[string]*Session)
		sh.byPicture[pictureID] = set
	}
	set[s.ID] = s
	sh.mu.Unlock()
}

// Leave 移除会话，集合为空时删除图片条目；返回是否真的移除
func (r *Registry) Leave(pictureID int64, s *Session) bool {
	if s == nil {
		return false
	}
	sh := r.shard(pictureID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	set := sh.byPicture[pictureID]
	if _, ok := set[s.ID]; !ok {
		return false
	}
	delete(set, s.ID)
	if len(set) == 0 {
		delete(sh.byPicture, pictureID)
	}
	return true
}

// SessionsFor 返回快照，调用方可在不持锁的情况下遍历
func (r *Registry) SessionsFor(pictureID int64) []*Session {
	sh := r.shard(pictureID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	set := sh.byPicture[pictureID]
	out := make([]*Session, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Count(pictureID int64) int {
	sh := r.shard(pictureID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.byPicture[pictureID])
}

// All 所有会话快照（停机用）
func (r *Registry) All() []*Session {
	var out []*Session
	for _, sh := range r.shards {
		sh.mu.RLock()
		for _, set := range sh.byPicture {
			for _, s := range set {
				out = append(out, s)
			}
		}
		sh.mu.RUnlock()
	}
	return out
}

func (r *Registry) Total() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		for _, set := range sh.byPicture {
			n += len(set)
		}
		sh.mu.RUnlock()
	}
	return n
}

// Pictures 当前有会话的图片
func (r *Registry) Pictures() []int64 {
	var out []int64
	for _, sh := range r.shards {
		sh.mu.RLock()
		for id := range sh.byPicture {
			out = append(out, id)
		}
		sh.mu.RUnlock()
	}
	return out
}
