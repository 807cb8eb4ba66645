package persist

import (
	"context"
	"fmt"

	"github.com/illarion/server/internal/world"
)

type SpawnRepo struct {
	db *DB
}

func NewSpawnRepo(db *DB) *SpawnRepo {
	return &SpawnRepo{db: db}
}

// LoadSpawnPoints reads every spawn point together with its monster templates.
func (r *SpawnRepo) LoadSpawnPoints(ctx context.Context) ([]*world.SpawnPoint, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		r.db.Rebind(`SELECT spp_id, spp_x, spp_y, spp_z, spp_range, spp_spawnrange,
		        spp_minspawntime, spp_maxspawntime, spp_spawnall
		 FROM spawnpoint
		 ORDER BY spp_id`))
	if err != nil {
		return nil, fmt.Errorf("query spawnpoint: %w", err)
	}
	defer rows.Close()

	var points []*world.SpawnPoint
	byID := make(map[uint32]*world.SpawnPoint)
	for rows.Next() {
		sp := &world.SpawnPoint{}
		if err := rows.Scan(&sp.ID, &sp.Center.X, &sp.Center.Y, &sp.Center.Z,
			&sp.Range, &sp.SpawnRange, &sp.MinSpawnTime, &sp.MaxSpawnTime, &sp.SpawnAll); err != nil {
			return nil, fmt.Errorf("scan spawnpoint: %w", err)
		}
		points = append(points, sp)
		byID[sp.ID] = sp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read spawnpoint: %w", err)
	}
	rows.Close()

	mrows, err := r.db.SQL.QueryContext(ctx,
		r.db.Rebind(`SELECT spm_id, spm_race, spm_count FROM spawnpoint_monster ORDER BY spm_id, spm_race`))
	if err != nil {
		return nil, fmt.Errorf("query spawnpoint_monster: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var (
			id    uint32
			race  uint16
			count int
		)
		if err := mrows.Scan(&id, &race, &count); err != nil {
			return nil, fmt.Errorf("scan spawnpoint_monster: %w", err)
		}
		if sp, ok := byID[id]; ok {
			sp.AddTemplate(race, count)
		}
	}
	if err := mrows.Err(); err != nil {
		return nil, fmt.Errorf("read spawnpoint_monster: %w", err)
	}
	return points, nil
}

// SaveSpawnPoint inserts or replaces one spawn point and its templates.
func (r *SpawnRepo) SaveSpawnPoint(ctx context.Context, sp *world.SpawnPoint) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("spawnpoint begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO spawnpoint (spp_id, spp_x, spp_y, spp_z, spp_range, spp_spawnrange,
		                         spp_minspawntime, spp_maxspawntime, spp_spawnall)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (spp_id) DO UPDATE SET
		     spp_x = excluded.spp_x, spp_y = excluded.spp_y, spp_z = excluded.spp_z,
		     spp_range = excluded.spp_range, spp_spawnrange = excluded.spp_spawnrange,
		     spp_minspawntime = excluded.spp_minspawntime, spp_maxspawntime = excluded.spp_maxspawntime,
		     spp_spawnall = excluded.spp_spawnall`),
		sp.ID, sp.Center.X, sp.Center.Y, sp.Center.Z, sp.Range, sp.SpawnRange,
		sp.MinSpawnTime, sp.MaxSpawnTime, sp.SpawnAll,
	); err != nil {
		return fmt.Errorf("spawnpoint upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM spawnpoint_monster WHERE spm_id = $1`), sp.ID); err != nil {
		return fmt.Errorf("spawnpoint_monster clear: %w", err)
	}
	for _, tpl := range sp.Templates {
		if _, err := tx.ExecContext(ctx,
			r.db.Rebind(`INSERT INTO spawnpoint_monster (spm_id, spm_race, spm_count) VALUES ($1, $2, $3)`),
			sp.ID, tpl.Race, tpl.Max,
		); err != nil {
			return fmt.Errorf("spawnpoint_monster insert: %w", err)
		}
	}
	return tx.Commit()
}
