// Package auth holds the space permission model: which permissions a user
// has on a picture space, derived from the space type and the member role.
package auth

// 空间成员权限
const (
	PictureView     = "picture:view"
	PictureUpload   = "picture:upload"
	PictureEdit     = "picture:edit"
	PictureDelete   = "picture:delete"
	SpaceUserManage = "spaceUser:manage"
)

// 空间角色
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// 系统角色
const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

type SpaceType int

const (
	SpacePrivate SpaceType = 0 // 私有空间
	SpaceTeam    SpaceType = 1 // 团队空间
)

func (t SpaceType) Valid() bool { return t == SpacePrivate || t == SpaceTeam }

func (t SpaceType) String() string {
	switch t {
	case SpacePrivate:
		return "private"
	case SpaceTeam:
		return "team"
	default:
		return "unknown"
	}
}

var rolePermissions = map[string][]string{
	RoleViewer: {PictureView},
	RoleEditor: {PictureView, PictureUpload, PictureEdit, PictureDelete},
	RoleAdmin:  {PictureView, PictureUpload, PictureEdit, PictureDelete, SpaceUserManage},
}

// PermissionsByRole returns a copy of the role's permission list; unknown roles get none.
func PermissionsByRole(role string) []string {
	perms := rolePermissions[role]
	if len(perms) == 0 {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Space 权限计算需要的空间信息；nil 表示公共图库
type Space struct {
	ID      int64
	Type    SpaceType
	OwnerID int64
}

// Subject 权限计算需要的用户信息
type Subject struct {
	UserID int64
	Role   string // 系统角色 user/admin
}

// SpacePermissions 计算用户在空间中的权限。
// memberRole 仅对团队空间有意义（space_user 表中的角色，空表示非成员）。
func SpacePermissions(space *Space, subject *Subject, memberRole string) []string {
	if subject == nil || subject.UserID <= 0 {
		return nil
	}
	isAdmin := subject.Role == UserRoleAdmin
	if space == nil {
		if isAdmin {
			return PermissionsByRole(RoleAdmin)
		}
		return []string{PictureView}
	}
	switch space.Type {
	case SpacePrivate:
		if space.OwnerID == subject.UserID || isAdmin {
			return PermissionsByRole(RoleAdmin)
		}
		return nil
	case SpaceTeam:
		return PermissionsByRole(memberRole)
	default:
		return nil
	}
}

func Has(perms []string, want string) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}
