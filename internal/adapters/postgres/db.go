// Package postgres is the pgx-backed core.RoomStore.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	ApplicationName string
}

// NewPool creates a pool and checks it with Ping.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.ApplicationName != "" {
		if pc.ConnConfig.RuntimeParams == nil {
			pc.ConnConfig.RuntimeParams = map[string]string{}
		}
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS lobby_rooms (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	host_id        TEXT NOT NULL,
	capacity       INT NOT NULL,
	is_private     BOOLEAN NOT NULL DEFAULT FALSE,
	is_locked      BOOLEAN NOT NULL DEFAULT FALSE,
	data           JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL,
	last_heartbeat TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS lobby_room_members (
	room_id   TEXT NOT NULL REFERENCES lobby_rooms(id) ON DELETE CASCADE,
	member_id TEXT NOT NULL,
	data      JSONB NOT NULL DEFAULT '{}',
	joined_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (room_id, member_id)
);
CREATE INDEX IF NOT EXISTS lobby_rooms_heartbeat_idx ON lobby_rooms (last_heartbeat);
`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func encodeData(d domain.Data) ([]byte, error) {
	if d == nil {
		d = domain.Data{}
	}
	return json.Marshal(d)
}

func decodeData(raw []byte) (domain.Data, error) {
	d := domain.Data{}
	if len(raw) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// mapErr keeps domain sentinels, turns missing rows into ErrRoomNotFound
// and everything else into a transient store error.
func mapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrRoomNotFound
	case isDomainErr(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return domain.NewOpError(op, domain.ErrTransient, err.Error())
}

func isDomainErr(err error) bool {
	return domain.Classify(err) != domain.KindStoreTransient ||
		errors.Is(err, domain.ErrRoomFull) ||
		errors.Is(err, domain.ErrTransient)
}
