package collab

import (
	"context"
	"time"

	"PPicture/service/auth"
)

// User 已认证用户（握手时解析，挂在会话上）
type User struct {
	ID       int64
	Account  string
	Name     string
	Avatar   string
	Profile  string
	Role     string // 系统角色 user/admin
	CreateAt time.Time
}

// UserView 对外展示的用户信息，id 以字符串下发避免前端精度丢失
type UserView struct {
	ID     int64  `json:"id,string"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Presenter 把内部用户转换为对外视图
type Presenter func(u *User) *UserView

func DefaultPresenter(u *User) *UserView {
	if u == nil {
		return nil
	}
	name := u.Name
	if name == "" {
		name = u.Account
	}
	return &UserView{ID: u.ID, Name: name, Avatar: u.Avatar}
}

// Resource 被编辑图片及其所属空间
type Resource struct {
	PictureID    int64
	SpaceID      int64 // 0 表示公共图库
	SpaceType    auth.SpaceType
	SpaceOwnerID int64
}

// Identity 解析凭证并计算权限
type Identity interface {
	Authenticate(ctx context.Context, credentials string) (*User, error)
	Permissions(ctx context.Context, user *User, res *Resource) ([]string, error)
}

// Directory 图片 -> 空间
type Directory interface {
	Lookup(ctx context.Context, pictureID int64) (*Resource, error)
}

// PresenceSink 在线编辑者登记（外部可见，尽力而为）
type PresenceSink interface {
	Online(ctx context.Context, pictureID, userID int64) error
	Offline(ctx context.Context, pictureID, userID int64) error
}

type ActivityKind string

const (
	ActivityJoin      ActivityKind = "join"
	ActivityLeave     ActivityKind = "leave"
	ActivityEnterEdit ActivityKind = "enter_edit"
	ActivityExitEdit  ActivityKind = "exit_edit"
)

// Activity 协同动态，投递到下游（nats / kafka）
type Activity struct {
	Kind      ActivityKind `json:"kind"`
	PictureID int64        `json:"pictureId,string"`
	UserID    int64        `json:"userId,string"`
	SessionID string       `json:"sessionId,omitempty"`
	At        time.Time    `json:"at"`
}

type ActivityPublisher interface {
	Publish(ctx context.Context, a *Activity) error
}

type nopPresence struct{}

func (nopPresence) Online(context.Context, int64, int64) error  { return nil }
func (nopPresence) Offline(context.Context, int64, int64) error { return nil }

type nopActivity struct{}

func (nopActivity) Publish(context.Context, *Activity) error { return nil }
