// Package directory looks up pictures, their spaces and space membership in Postgres.
package directory

import (
	"context"
	"errors"

	"PPicture/service/auth"
	"PPicture/service/collab"
	"PPicture/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const lookupPictureSQL = `
SELECT p.id,
       COALESCE(p.space_id, 0),
       COALESCE(s.id, 0),
       COALESCE(s.space_type, 0),
       COALESCE(s.user_id, 0)
FROM picture p
LEFT JOIN space s ON s.id = p.space_id AND s.is_delete = 0
WHERE p.id = $1 AND p.is_delete = 0`

const spaceRoleSQL = `SELECT space_role FROM space_user WHERE space_id = $1 AND user_id = $2`

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgDirectory struct {
	db querier
}

func New(pool *pgxpool.Pool) *PgDirectory { return &PgDirectory{db: pool} }

// Open 建连接池并 ping
func Open(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg("bad postgres dsn", "err", err.Error())
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errs.WrapMsg(err, "create pgx pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.WrapMsg(err, "ping postgres")
	}
	return pool, nil
}

func (d *PgDirectory) Lookup(ctx context.Context, pictureID int64) (*collab.Resource, error) {
	var (
		id, pictureSpace, spaceID, ownerID int64
		spaceType                          int
	)
	err := d.db.QueryRow(ctx, lookupPictureSQL, pictureID).Scan(&id, &pictureSpace, &spaceID, &spaceType, &ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrRecordNotFound.WrapMsg("picture not found", "pictureId", pictureID)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "lookup picture", "pictureId", pictureID)
	}
	if pictureSpace != 0 && spaceID == 0 {
		return nil, errs.ErrRecordNotFound.WrapMsg("space not found", "pictureId", pictureID, "spaceId", pictureSpace)
	}
	st := auth.SpaceType(spaceType)
	if spaceID != 0 && !st.Valid() {
		return nil, errs.ErrArgs.WrapMsg("unknown space type", "spaceId", spaceID, "spaceType", spaceType)
	}
	return &collab.Resource{PictureID: id, SpaceID: spaceID, SpaceType: st, SpaceOwnerID: ownerID}, nil
}

func (d *PgDirectory) SpaceRole(ctx context.Context, spaceID, userID int64) (string, error) {
	var role string
	err := d.db.QueryRow(ctx, spaceRoleSQL, spaceID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errs.WrapMsg(err, "lookup space role", "spaceId", spaceID, "userId", userID)
	}
	return role, nil
}
