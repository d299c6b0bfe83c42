package directory

import (
	"context"
	"errors"
	"testing"

	"PPicture/service/auth"
	"PPicture/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.vals[i].(int64)
		case *int:
			*p = r.vals[i].(int)
		case *string:
			*p = r.vals[i].(string)
		}
	}
	return nil
}

type fakeDB struct {
	row      fakeRow
	lastSQL  string
	lastArgs []any
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArgs = sql, args
	return f.row
}

func TestLookup(t *testing.T) {
	db := &fakeDB{row: fakeRow{vals: []any{int64(42), int64(5), int64(5), 1, int64(9)}}}
	d := &PgDirectory{db: db}

	res, err := d.Lookup(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.SpaceID)
	assert.Equal(t, auth.SpaceTeam, res.SpaceType)
	assert.Equal(t, int64(9), res.SpaceOwnerID)
	assert.Equal(t, []any{int64(42)}, db.lastArgs)

	db.row = fakeRow{err: pgx.ErrNoRows}
	_, err = d.Lookup(context.Background(), 1)
	assert.True(t, errs.ErrRecordNotFound.Is(err))

	db.row = fakeRow{vals: []any{int64(42), int64(5), int64(0), 0, int64(0)}}
	_, err = d.Lookup(context.Background(), 42)
	assert.True(t, errs.ErrRecordNotFound.Is(err), "deleted space")

	db.row = fakeRow{vals: []any{int64(42), int64(0), int64(0), 0, int64(0)}}
	res, err = d.Lookup(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, res.SpaceID)

	db.row = fakeRow{vals: []any{int64(42), int64(5), int64(5), 7, int64(0)}}
	_, err = d.Lookup(context.Background(), 42)
	assert.True(t, errs.ErrArgs.Is(err))

	db.row = fakeRow{err: errors.New("conn reset")}
	_, err = d.Lookup(context.Background(), 42)
	assert.Error(t, err)
}

func TestSpaceRole(t *testing.T) {
	db := &fakeDB{row: fakeRow{vals: []any{auth.RoleEditor}}}
	d := &PgDirectory{db: db}
	role, err := d.SpaceRole(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleEditor, role)
	assert.Equal(t, []any{int64(5), int64(1)}, db.lastArgs)

	db.row = fakeRow{err: pgx.ErrNoRows}
	role, err = d.SpaceRole(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Empty(t, role)
}
