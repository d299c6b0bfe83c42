package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"PPicture/service/auth"
	"PPicture/service/collab"
	"PPicture/tools/errs"
	"PPicture/tools/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

type memUsers struct {
	users map[int64]*UserRecord
	calls int
}

func (m *memUsers) GetUser(_ context.Context, id int64) (*UserRecord, error) {
	m.calls++
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, errs.ErrRecordNotFound.WrapMsg("user not found")
}

type memRoles map[int64]string

func (m memRoles) SpaceRole(_ context.Context, _ int64, userID int64) (string, error) {
	return m[userID], nil
}

var testJWT = security.DefaultOptions([]byte("test-secret"))

func token(t *testing.T, uid int64) string {
	t.Helper()
	tok, _, err := security.Generate(testJWT, uid, "acc", nil)
	require.NoError(t, err)
	return tok
}

func TestProviderAuthenticate(t *testing.T) {
	users := &memUsers{users: map[int64]*UserRecord{
		1: {ID: 1, Account: "alice", Name: "Alice", Role: auth.UserRoleUser},
		2: {ID: 2, Account: "gone", IsDelete: 1},
	}}
	p := NewProvider(testJWT, users, memRoles{})
	ctx := context.Background()

	u, err := p.Authenticate(ctx, token(t, 1))
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)

	_, err = p.Authenticate(ctx, token(t, 2))
	assert.True(t, errs.ErrNotLogin.Is(err))

	_, err = p.Authenticate(ctx, token(t, 3))
	assert.True(t, errs.ErrNotLogin.Is(err))

	_, err = p.Authenticate(ctx, "garbage")
	assert.True(t, errs.ErrTokenInvalid.Is(err))
}

func TestProviderPermissions(t *testing.T) {
	p := NewProvider(testJWT, &memUsers{}, memRoles{1: auth.RoleEditor, 2: auth.RoleViewer})
	ctx := context.Background()
	team := &collab.Resource{PictureID: 9, SpaceID: 3, SpaceType: auth.SpaceTeam}

	perms, err := p.Permissions(ctx, &collab.User{ID: 1}, team)
	require.NoError(t, err)
	assert.True(t, auth.Has(perms, auth.PictureEdit))

	perms, err = p.Permissions(ctx, &collab.User{ID: 2}, team)
	require.NoError(t, err)
	assert.False(t, auth.Has(perms, auth.PictureEdit))

	private := &collab.Resource{PictureID: 9, SpaceID: 4, SpaceType: auth.SpacePrivate, SpaceOwnerID: 2}
	perms, err = p.Permissions(ctx, &collab.User{ID: 2}, private)
	require.NoError(t, err)
	assert.True(t, auth.Has(perms, auth.SpaceUserManage))

	perms, err = p.Permissions(ctx, &collab.User{ID: 1}, &collab.Resource{PictureID: 9})
	require.NoError(t, err)
	assert.Equal(t, []string{auth.PictureView}, perms)
}

type memCache struct {
	data   map[string][]byte
	getErr error
}

func (c *memCache) get(_ context.Context, key string) ([]byte, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *memCache) set(_ context.Context, key string, val []byte, _ time.Duration) error {
	c.data[key] = val
	return nil
}

func TestCachedStore(t *testing.T) {
	users := &memUsers{users: map[int64]*UserRecord{1: {ID: 1, Name: "Alice"}}}
	cache := &memCache{data: map[string][]byte{}}
	s := newCachedStore(users, cache, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u, err := s.GetUser(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Alice", u.Name)
	}
	assert.Equal(t, 1, users.calls)
	assert.Contains(t, cache.data, "pp:user:1")

	cache.getErr = errors.New("redis down")
	_, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, users.calls)

	_, err = s.GetUser(ctx, 99)
	assert.True(t, errs.ErrRecordNotFound.Is(err))
}

func TestMongoUserStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "ppicture.user", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: int64(7)},
			{Key: "userAccount", Value: "alice"},
			{Key: "userName", Value: "Alice"},
			{Key: "userRole", Value: "user"},
		}))
		store := &MongoUserStore{coll: mt.Coll}
		rec, err := store.GetUser(context.Background(), 7)
		require.NoError(mt, err)
		assert.Equal(mt, int64(7), rec.ID)
		assert.Equal(mt, "Alice", rec.Name)
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ppicture.user", mtest.FirstBatch))
		store := &MongoUserStore{coll: mt.Coll}
		_, err := store.GetUser(context.Background(), 8)
		assert.True(mt, errs.ErrRecordNotFound.Is(err))
	})
}
