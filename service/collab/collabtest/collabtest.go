// Package collabtest provides in-memory fakes for exercising the collab
// gateway without a websocket or any backing store.
package collabtest

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"PPicture/service/auth"
	"PPicture/service/collab"
	"PPicture/tools/errs"
)

// Conn 记录发送内容的假连接
type Conn struct {
	Addr string

	mu      sync.Mutex
	frames  [][]byte
	closed  atomic.Bool
	SendErr error
}

func NewConn(addr string) *Conn { return &Conn{Addr: addr} }

func (c *Conn) Send(data []byte) error {
	if c.closed.Load() {
		return collab.ErrSessionClosed.Wrap()
	}
	if c.SendErr != nil {
		return c.SendErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.mu.Lock()
	c.frames = append(c.frames, cp)
	c.mu.Unlock()
	return nil
}

func (c *Conn) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *Conn) RemoteAddr() string { return c.Addr }

func (c *Conn) Closed() bool { return c.closed.Load() }

// Messages 解码后的已发送消息
func (c *Conn) Messages() []collab.OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]collab.OutboundMessage, 0, len(c.frames))
	for _, f := range c.frames {
		var m collab.OutboundMessage
		if err := json.Unmarshal(f, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// OfType 按类型过滤
func (c *Conn) OfType(t collab.MessageType) []collab.OutboundMessage {
	var out []collab.OutboundMessage
	for _, m := range c.Messages() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (c *Conn) Reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// Identity 凭证即 token -> 用户；权限按 Roles 表计算
type Identity struct {
	mu    sync.RWMutex
	users map[string]*collab.User
	roles map[int64]string // userID -> 团队空间角色
}

func NewIdentity() *Identity {
	return &Identity{users: make(map[string]*collab.User), roles: make(map[int64]string)}
}

func (i *Identity) AddUser(token string, u *collab.User, teamRole string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.users[token] = u
	i.roles[u.ID] = teamRole
}

func (i *Identity) Authenticate(_ context.Context, credentials string) (*collab.User, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if credentials == "" {
		return nil, errs.ErrNotLogin.Wrap()
	}
	u, ok := i.users[credentials]
	if !ok {
		return nil, errs.ErrTokenInvalid.Wrap()
	}
	return u, nil
}

func (i *Identity) Permissions(_ context.Context, user *collab.User, res *collab.Resource) ([]string, error) {
	i.mu.RLock()
	role := i.roles[user.ID]
	i.mu.RUnlock()
	var space *auth.Space
	if res.SpaceID != 0 {
		space = &auth.Space{ID: res.SpaceID, Type: res.SpaceType, OwnerID: res.SpaceOwnerID}
	}
	return auth.SpacePermissions(space, &auth.Subject{UserID: user.ID, Role: user.Role}, role), nil
}

// Directory 内存图片目录
type Directory struct {
	mu   sync.RWMutex
	pics map[int64]*collab.Resource
}

func NewDirectory() *Directory { return &Directory{pics: make(map[int64]*collab.Resource)} }

func (d *Directory) Put(r *collab.Resource) {
	d.mu.Lock()
	d.pics[r.PictureID] = r
	d.mu.Unlock()
}

func (d *Directory) Lookup(_ context.Context, pictureID int64) (*collab.Resource, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.pics[pictureID]
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("picture not found", "pictureId", pictureID)
	}
	cp := *r
	return &cp, nil
}

// Activity 记录投递的动态
type Activity struct {
	mu   sync.Mutex
	list []collab.Activity
}

func (a *Activity) Publish(_ context.Context, act *collab.Activity) error {
	a.mu.Lock()
	a.list = append(a.list, *act)
	a.mu.Unlock()
	return nil
}

func (a *Activity) Kinds() []collab.ActivityKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]collab.ActivityKind, 0, len(a.list))
	for _, x := range a.list {
		out = append(out, x.Kind)
	}
	return out
}

// Presence 记录在线编辑者
type Presence struct {
	mu     sync.Mutex
	online map[int64]map[int64]int
}

func (p *Presence) Online(_ context.Context, pictureID, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.online == nil {
		p.online = make(map[int64]map[int64]int)
	}
	if p.online[pictureID] == nil {
		p.online[pictureID] = make(map[int64]int)
	}
	p.online[pictureID][userID]++
	return nil
}

func (p *Presence) Offline(_ context.Context, pictureID, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if set := p.online[pictureID]; set != nil {
		if set[userID]--; set[userID] <= 0 {
			delete(set, userID)
		}
	}
	return nil
}

func (p *Presence) Count(pictureID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.online[pictureID])
}
