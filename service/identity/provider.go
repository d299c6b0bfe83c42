package identity

import (
	"context"

	"PPicture/service/auth"
	"PPicture/service/collab"
	"PPicture/tools/errs"
	"PPicture/tools/security"
)

// Provider JWT 凭证 + 用户库 + 空间角色
type Provider struct {
	jwt   security.Options
	users UserStore
	roles RoleSource
}

func NewProvider(jwt security.Options, users UserStore, roles RoleSource) *Provider {
	return &Provider{jwt: jwt, users: users, roles: roles}
}

func (p *Provider) Authenticate(ctx context.Context, credentials string) (*collab.User, error) {
	claims, err := security.Verify(p.jwt, credentials)
	if err != nil {
		return nil, err
	}
	rec, err := p.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errs.ErrRecordNotFound.Is(err) {
			return nil, errs.ErrNotLogin.WrapMsg("user not found", "userId", claims.UserID)
		}
		return nil, err
	}
	if rec.IsDelete != 0 {
		return nil, errs.ErrNotLogin.WrapMsg("user deleted", "userId", claims.UserID)
	}
	return rec.ToUser(), nil
}

func (p *Provider) Permissions(ctx context.Context, user *collab.User, res *collab.Resource) ([]string, error) {
	if user == nil || res == nil {
		return nil, nil
	}
	subject := &auth.Subject{UserID: user.ID, Role: user.Role}
	if res.SpaceID == 0 {
		return auth.SpacePermissions(nil, subject, ""), nil
	}
	space := &auth.Space{ID: res.SpaceID, Type: res.SpaceType, OwnerID: res.SpaceOwnerID}
	role := ""
	if res.SpaceType == auth.SpaceTeam {
		var err error
		role, err = p.roles.SpaceRole(ctx, res.SpaceID, user.ID)
		if err != nil {
			return nil, err
		}
	}
	return auth.SpacePermissions(space, subject, role), nil
}
