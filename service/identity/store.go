// Package identity resolves handshake credentials into users and computes
// their permissions on a picture's space.
package identity

import (
	"context"
	"time"

	"PPicture/service/collab"
)

// UserRecord 用户资料（mongo user 集合）
type UserRecord struct {
	ID         int64     `bson:"_id" json:"id"`
	Account    string    `bson:"userAccount" json:"account"`
	Name       string    `bson:"userName" json:"name"`
	Avatar     string    `bson:"userAvatar" json:"avatar,omitempty"`
	Profile    string    `bson:"userProfile" json:"profile,omitempty"`
	Role       string    `bson:"userRole" json:"role"`
	IsDelete   int       `bson:"isDelete" json:"-"`
	CreateTime time.Time `bson:"createTime" json:"createTime"`
}

func (r *UserRecord) ToUser() *collab.User {
	return &collab.User{
		ID:       r.ID,
		Account:  r.Account,
		Name:     r.Name,
		Avatar:   r.Avatar,
		Profile:  r.Profile,
		Role:     r.Role,
		CreateAt: r.CreateTime,
	}
}

// UserStore 查不到时返回 errs.ErrRecordNotFound
type UserStore interface {
	GetUser(ctx context.Context, userID int64) (*UserRecord, error)
}

// RoleSource 团队空间成员角色，非成员返回空串
type RoleSource interface {
	SpaceRole(ctx context.Context, spaceID, userID int64) (string, error)
}
