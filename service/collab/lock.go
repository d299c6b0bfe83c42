package collab

import (
	"sync"

	"PPicture/global"
)

type lockShard struct {
	mu      sync.Mutex
	holders map[int64]int64 // pictureID -> userID
}

// EditLock 每张图片至多一个编辑者
type EditLock struct {
	shards [numShards]*lockShard
}

func NewEditLock() *EditLock {
	l := &EditLock{}
	for i := range l.shards {
		l.shards[i] = &lockShard{holders: make(map[int64]int64)}
	}
	return l
}

func (l *EditLock) shard(pictureID int64) *lockShard {
	return l.shards[global.PictureShard(pictureID, numShards)]
}

// TryAcquire 图片无人编辑时把 userID 设为编辑者；已被占用（包括本人）返回 false
func (l *EditLock) TryAcquire(pictureID, userID int64) bool {
	if userID <= 0 {
		return false
	}
	sh := l.shard(pictureID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, held := sh.holders[pictureID]; held {
		return false
	}
	sh.holders[pictureID] = userID
	return true
}

// HolderOf 返回当前编辑者，0 表示无人编辑
func (l *EditLock) HolderOf(pictureID int64) (int64, bool) {
	sh := l.shard(pictureID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	uid, ok := sh.holders[pictureID]
	return uid, ok
}

func (l *EditLock) IsHolder(pictureID, userID int64) bool {
	uid, ok := l.HolderOf(pictureID)
	return ok && uid == userID
}

// Release 仅当 userID 为当前编辑者时释放
func (l *EditLock) Release(pictureID, userID int64) bool {
	sh := l.shard(pictureID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if uid, ok := sh.holders[pictureID]; !ok || uid != userID {
		return false
	}
	delete(sh.holders, pictureID)
	return true
}

// ReleaseAll 停机时清空，返回释放数量
func (l *EditLock) ReleaseAll() int {
	n := 0
	for _, sh := range l.shards {
		sh.mu.Lock()
		n += len(sh.holders)
		sh.holders = make(map[int64]int64)
		sh.mu.Unlock()
	}
	return n
}
