package postgres

import (
	"context"
	"time"

	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// RoomStore keeps rooms in postgres. Capacity is enforced under a row lock
// on the room so concurrent joins cannot overfill it.
type RoomStore struct {
	db     *pgxpool.Pool
	policy app.Policy
	now    func() time.Time
}

var _ core.RoomStore = (*RoomStore)(nil)

func NewRoomStore(db *pgxpool.Pool, policy app.Policy) *RoomStore {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &RoomStore{db: db, policy: policy, now: time.Now}
}

func (s *RoomStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *RoomStore) tx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return mapErr(op, err)
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return mapErr(op, err)
	}
	return mapErr(op, tx.Commit(ctx))
}

const roomColumns = `id, name, host_id, capacity, is_private, is_locked, data, created_at, last_heartbeat`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var (
		r   domain.Room
		raw []byte
	)
	if err := row.Scan(&r.ID, &r.Name, &r.HostID, &r.Capacity, &r.IsPrivate, &r.IsLocked, &raw, &r.CreatedAt, &r.LastHeartbeat); err != nil {
		return nil, err
	}
	data, err := decodeData(raw)
	if err != nil {
		return nil, err
	}
	r.Data = data
	return &r, nil
}

func loadMembers(ctx context.Context, q querier, r *domain.Room) error {
	rows, err := q.Query(ctx,
		`SELECT member_id, data, joined_at FROM lobby_room_members WHERE room_id=$1 ORDER BY joined_at ASC`,
		r.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	r.Members = r.Members[:0]
	for rows.Next() {
		var (
			m   domain.Member
			raw []byte
		)
		if err := rows.Scan(&m.ID, &raw, &m.JoinedAt); err != nil {
			return err
		}
		if m.Data, err = decodeData(raw); err != nil {
			return err
		}
		r.Members = append(r.Members, m)
	}
	return rows.Err()
}

// load reads a room with its members. forUpdate locks the room row.
func load(ctx context.Context, q querier, id domain.RoomID, forUpdate bool) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	sql := `SELECT ` + roomColumns + ` FROM lobby_rooms WHERE id=$1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	r, err := scanRoom(q.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, err
	}
	if err := loadMembers(ctx, q, r); err != nil {
		return nil, err
	}
	return r, nil
}

func insertMember(ctx context.Context, q querier, id domain.RoomID, m domain.Member) error {
	raw, err := encodeData(m.Data)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx,
		`INSERT INTO lobby_room_members (room_id, member_id, data, joined_at) VALUES ($1, $2, $3, $4)`,
		id, m.ID, raw, m.JoinedAt)
	return err
}

func (s *RoomStore) Create(ctx context.Context, spec domain.RoomSpec, host domain.Member) (*domain.Room, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if host.ID == "" {
		return nil, domain.NewOpError("create room", domain.ErrInvalidArgument, "empty host id")
	}
	now := s.now().UTC()
	host = host.Clone()
	host.Data = domain.Data{}.Merge(host.Data)
	host.JoinedAt = now
	room := &domain.Room{
		ID:            domain.RoomID(uuid.NewString()),
		Name:          spec.Name,
		HostID:        host.ID,
		Capacity:      spec.Capacity,
		IsPrivate:     spec.IsPrivate,
		Data:          domain.Data{}.Merge(spec.Data),
		Members:       []domain.Member{host},
		CreatedAt:     now,
		LastHeartbeat: now,
	}
	raw, err := encodeData(room.Data)
	if err != nil {
		return nil, err
	}

	err = s.tx(ctx, "create room", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO lobby_rooms (`+roomColumns+`) VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $7)`,
			room.ID, room.Name, room.HostID, room.Capacity, room.IsPrivate, raw, now); err != nil {
			return err
		}
		return insertMember(ctx, tx, room.ID, host)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "adapters.postgres").Str("room_id", string(room.ID)).Str("host_id", string(host.ID)).Msg("room created")
	return room, nil
}

func (s *RoomStore) Query(ctx context.Context, filter domain.RoomFilter) ([]domain.Room, error) {
	filter = filter.Normalize()
	rows, err := s.db.Query(ctx, `
		SELECT `+roomColumns+` FROM lobby_rooms r
		WHERE NOT r.is_private AND NOT r.is_locked
		  AND r.capacity - (SELECT COUNT(*) FROM lobby_room_members m WHERE m.room_id = r.id) >= $1
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $2`, filter.MinAvailableSlots, filter.Count)
	if err != nil {
		return nil, mapErr("query rooms", err)
	}
	var out []domain.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			rows.Close()
			return nil, mapErr("query rooms", err)
		}
		out = append(out, *r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapErr("query rooms", err)
	}
	for i := range out {
		if err := loadMembers(ctx, s.db, &out[i]); err != nil {
			return nil, mapErr("query rooms", err)
		}
	}
	return out, nil
}

func (s *RoomStore) Join(ctx context.Context, id domain.RoomID, m domain.Member) (*domain.Room, error) {
	if m.ID == "" {
		return nil, domain.NewOpError("join room", domain.ErrInvalidArgument, "empty member id")
	}
	var out *domain.Room
	err := s.tx(ctx, "join room", func(tx pgx.Tx) error {
		room, err := load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		switch action := s.policy.Admit(room, m.ID); action {
		case app.AlreadyMember:
			existing, _ := room.Member(m.ID)
			merged := existing.Data.Clone().Merge(m.Data)
			raw, err := encodeData(merged)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`UPDATE lobby_room_members SET data=$3 WHERE room_id=$1 AND member_id=$2`,
				id, m.ID, raw); err != nil {
				return err
			}
		case app.Admit:
			m = m.Clone()
			m.Data = domain.Data{}.Merge(m.Data)
			m.JoinedAt = s.now().UTC()
			if err := insertMember(ctx, tx, id, m); err != nil {
				return err
			}
		default:
			return app.AdmissionError(action)
		}
		out, err = load(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RoomStore) Get(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	r, err := load(ctx, s.db, id, false)
	return r, mapErr("get room", err)
}

func (s *RoomStore) UpdateRoomData(ctx context.Context, id domain.RoomID, caller domain.MemberID, data domain.Data) (*domain.Room, error) {
	var out *domain.Room
	err := s.tx(ctx, "update room data", func(tx pgx.Tx) error {
		room, err := load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if !room.IsHost(caller) {
			return domain.ErrForbidden
		}
		room.Data = room.Data.Merge(data)
		raw, err := encodeData(room.Data)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE lobby_rooms SET data=$2 WHERE id=$1`, id, raw); err != nil {
			return err
		}
		out = room
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RoomStore) UpdateMemberData(ctx context.Context, id domain.RoomID, caller, member domain.MemberID, data domain.Data) (*domain.Member, error) {
	if caller != member {
		return nil, domain.ErrForbidden
	}
	var out *domain.Member
	err := s.tx(ctx, "update member data", func(tx pgx.Tx) error {
		room, err := load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		m, ok := room.Member(member)
		if !ok {
			return domain.ErrMemberNotFound
		}
		m.Data = m.Data.Merge(data)
		raw, err := encodeData(m.Data)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE lobby_room_members SET data=$3 WHERE room_id=$1 AND member_id=$2`,
			id, member, raw); err != nil {
			return err
		}
		out = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RoomStore) RemoveMember(ctx context.Context, id domain.RoomID, caller, member domain.MemberID) error {
	closed := false
	err := s.tx(ctx, "remove member", func(tx pgx.Tx) error {
		room, err := load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if caller != member && !room.IsHost(caller) {
			return domain.ErrForbidden
		}
		if !room.HasMember(member) {
			return domain.ErrMemberNotFound
		}
		if room.IsHost(member) {
			closed = true
			_, err := tx.Exec(ctx, `DELETE FROM lobby_rooms WHERE id=$1`, id)
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM lobby_room_members WHERE room_id=$1 AND member_id=$2`, id, member)
		return err
	})
	if err != nil {
		return err
	}
	if closed {
		log.Info().Str("module", "adapters.postgres").Str("room_id", string(id)).Msg("host left, room closed")
	}
	return nil
}

func (s *RoomStore) Heartbeat(ctx context.Context, id domain.RoomID, caller domain.MemberID) error {
	if id == "" {
		return domain.ErrInvalidArgument
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE lobby_rooms SET last_heartbeat=$3
		WHERE id=$1 AND EXISTS (
			SELECT 1 FROM lobby_room_members WHERE room_id=$1 AND member_id=$2
		)`, id, caller, s.now().UTC())
	if err != nil {
		return mapErr("heartbeat", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM lobby_rooms WHERE id=$1)`, id).Scan(&exists); err != nil {
		return mapErr("heartbeat", err)
	}
	if !exists {
		return domain.ErrRoomNotFound
	}
	return domain.ErrForbidden
}

func (s *RoomStore) Delete(ctx context.Context, id domain.RoomID, caller domain.MemberID) error {
	return s.tx(ctx, "delete room", func(tx pgx.Tx) error {
		var host domain.MemberID
		if err := tx.QueryRow(ctx, `SELECT host_id FROM lobby_rooms WHERE id=$1 FOR UPDATE`, id).Scan(&host); err != nil {
			return err
		}
		if host != caller {
			return domain.ErrForbidden
		}
		_, err := tx.Exec(ctx, `DELETE FROM lobby_rooms WHERE id=$1`, id)
		return err
	})
}

func (s *RoomStore) Expire(ctx context.Context, now time.Time, ttl time.Duration) ([]domain.RoomID, error) {
	rows, err := s.db.Query(ctx, `DELETE FROM lobby_rooms WHERE last_heartbeat < $1 RETURNING id`, now.Add(-ttl).UTC())
	if err != nil {
		return nil, mapErr("expire", err)
	}
	defer rows.Close()
	var out []domain.RoomID
	for rows.Next() {
		var id domain.RoomID
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr("expire", err)
		}
		out = append(out, id)
	}
	return out, mapErr("expire", rows.Err())
}
