package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/illarion/server/internal/world"
)

var ErrPlayerNotFound = errors.New("player not found")

// PlayerState is the persisted part of a player. The row keeps the
// position in plain columns; everything else lives in a msgpack blob
// compressed with zstd.
type PlayerState struct {
	ID             uint32         `msgpack:"-"`
	Name           string         `msgpack:"-"`
	Pos            world.Position `msgpack:"-"`
	Facing         uint8          `msgpack:"facing"`
	HP             int            `msgpack:"hp"`
	MaxHP          int            `msgpack:"max_hp"`
	MentalCapacity int            `msgpack:"mc"`
	FightMode      bool           `msgpack:"fight"`
	Tools          [2]world.Item  `msgpack:"tools"`
	Items          []world.Item   `msgpack:"items"`
	Effects        []world.Effect `msgpack:"effects"`
}

// StateOf snapshots p for saving.
func StateOf(p *world.Player) *PlayerState {
	return &PlayerState{
		ID:             p.ID,
		Name:           p.Name,
		Pos:            p.Pos,
		Facing:         uint8(p.Facing),
		HP:             p.HP,
		MaxHP:          p.MaxHP,
		MentalCapacity: p.MentalCapacity,
		FightMode:      p.FightMode,
		Tools:          p.Tools,
		Items:          append([]world.Item(nil), p.Items...),
		Effects:        p.Effects.All(),
	}
}

// ApplyTo copies the loaded state onto a freshly built player.
func (s *PlayerState) ApplyTo(p *world.Player) {
	p.Pos = s.Pos
	p.Facing = world.Direction(s.Facing)
	if s.MaxHP > 0 {
		p.MaxHP = s.MaxHP
		p.HP = s.HP
	}
	p.MentalCapacity = s.MentalCapacity
	p.FightMode = s.FightMode
	p.Tools = s.Tools
	p.Items = s.Items
	for _, e := range s.Effects {
		p.Effects.Add(e)
	}
}

type PlayerRepo struct {
	db  *DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewPlayerRepo(db *DB) (*PlayerRepo, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &PlayerRepo{db: db, enc: enc, dec: dec}, nil
}

func (r *PlayerRepo) Close() {
	r.enc.Close()
	r.dec.Close()
}

func (r *PlayerRepo) encode(s *PlayerState) ([]byte, error) {
	raw, err := msgpack.Marshal(s)
	if err != nil {
		return nil, err
	}
	return r.enc.EncodeAll(raw, nil), nil
}

func (r *PlayerRepo) decode(blob []byte, s *PlayerState) error {
	raw, err := r.dec.DecodeAll(blob, nil)
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(raw, s)
}

// Create inserts a new player at pos and returns its ID.
func (r *PlayerRepo) Create(ctx context.Context, name string, pos world.Position) (uint32, error) {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create player %s: %w", name, err)
	}
	defer tx.Rollback()

	var id uint32
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM player`).Scan(&id); err != nil {
		return 0, fmt.Errorf("create player %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO player (id, name, x, y, z) VALUES ($1, $2, $3, $4, $5)`),
		id, name, pos.X, pos.Y, pos.Z,
	); err != nil {
		return 0, fmt.Errorf("create player %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create player %s: %w", name, err)
	}
	return id, nil
}

// LoadByName returns the stored state, or ErrPlayerNotFound.
func (r *PlayerRepo) LoadByName(ctx context.Context, name string) (*PlayerState, error) {
	s := &PlayerState{Name: name}
	var blob []byte
	err := r.db.SQL.QueryRowContext(ctx,
		r.db.Rebind(`SELECT id, x, y, z, state FROM player WHERE name = $1`), name,
	).Scan(&s.ID, &s.Pos.X, &s.Pos.Y, &s.Pos.Z, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load player %s: %w", name, err)
	}
	if len(blob) > 0 {
		if err := r.decode(blob, s); err != nil {
			return nil, fmt.Errorf("decode player %s: %w", name, err)
		}
	}
	return s, nil
}

// Save writes s. The player must exist.
func (r *PlayerRepo) Save(ctx context.Context, s *PlayerState, at time.Time) error {
	blob, err := r.encode(s)
	if err != nil {
		return fmt.Errorf("encode player %s: %w", s.Name, err)
	}
	res, err := r.db.SQL.ExecContext(ctx,
		r.db.Rebind(`UPDATE player SET x = $1, y = $2, z = $3, state = $4, saved_at = $5 WHERE id = $6`),
		s.Pos.X, s.Pos.Y, s.Pos.Z, blob, at.UnixMilli(), s.ID,
	)
	if err != nil {
		return fmt.Errorf("save player %s: %w", s.Name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("save player %s: %w", s.Name, ErrPlayerNotFound)
	}
	return nil
}
