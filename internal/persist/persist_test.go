package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/illarion/server/internal/config"
	"github.com/illarion/server/internal/world"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{DSN: "sqlite::memory:"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSpawnRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSpawnRepo(newTestDB(t))

	sp := &world.SpawnPoint{
		ID: 4, Center: world.Position{X: 100, Y: -20, Z: 1},
		Range: 8, SpawnRange: 3, MinSpawnTime: 1, MaxSpawnTime: 5, SpawnAll: true,
	}
	sp.AddTemplate(11, 3)
	sp.AddTemplate(12, 1)
	if err := repo.SaveSpawnPoint(ctx, sp); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.SaveSpawnPoint(ctx, &world.SpawnPoint{ID: 2, MinSpawnTime: 1, MaxSpawnTime: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}

	points, err := repo.LoadSpawnPoints(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(points) != 2 || points[0].ID != 2 || points[1].ID != 4 {
		t.Fatalf("points = %+v", points)
	}
	got := points[1]
	if got.Center != sp.Center || got.Range != 8 || got.SpawnRange != 3 || !got.SpawnAll || got.MaxSpawnTime != 5 {
		t.Fatalf("spawn point = %+v", got)
	}
	if len(got.Templates) != 2 || got.Templates[0].Race != 11 || got.Templates[0].Max != 3 {
		t.Fatalf("templates = %+v", got.Templates)
	}
	if len(points[0].Templates) != 0 {
		t.Fatalf("empty spawn point got templates")
	}
}

func TestPlayerRepo(t *testing.T) {
	ctx := context.Background()
	repo, err := NewPlayerRepo(newTestDB(t))
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	if _, err := repo.LoadByName(ctx, "nobody"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("err = %v", err)
	}
	id, err := repo.Create(ctx, "alice", world.Position{X: 5, Y: 6})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, "alice", world.Position{}); err == nil {
		t.Fatalf("duplicate name accepted")
	}

	fresh, err := repo.LoadByName(ctx, "alice")
	if err != nil || fresh.ID != id || fresh.Pos != (world.Position{X: 5, Y: 6}) || fresh.MaxHP != 0 {
		t.Fatalf("fresh = %+v err=%v", fresh, err)
	}

	p := world.NewPlayer(id, "alice", world.Position{X: 7, Y: 8, Z: -1}, nil, nil)
	p.HP = 4000
	p.MentalCapacity = 12
	p.Facing = world.DirSouth
	p.Tools[world.RightTool] = world.Item{ID: 2701, Number: 1, Wear: 30}
	p.Items = []world.Item{{ID: 3, Number: 20, Wear: world.PermanentWear}}
	p.Effects.Add(world.Effect{ID: 9, Name: "poison", Remaining: 4})
	if err := repo.Save(ctx, StateOf(p), time.Unix(100, 0)); err != nil {
		t.Fatalf("save: %v", err)
	}

	st, err := repo.LoadByName(ctx, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	q := world.NewPlayer(st.ID, st.Name, world.Position{}, nil, nil)
	st.ApplyTo(q)
	if q.Pos != p.Pos || q.HP != 4000 || q.MentalCapacity != 12 || q.Facing != world.DirSouth {
		t.Fatalf("restored = %+v", q.Char)
	}
	if q.Tools[world.RightTool].ID != 2701 || len(q.Items) != 1 || q.Items[0].Number != 20 {
		t.Fatalf("items = %+v %+v", q.Tools, q.Items)
	}
	if e, ok := q.Effects.Find(9); !ok || e.Remaining != 4 {
		t.Fatalf("effect = %+v", e)
	}

	ghost := StateOf(world.NewPlayer(999, "ghost", world.Position{}, nil, nil))
	if err := repo.Save(ctx, ghost, time.Now()); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("save of unknown player: %v", err)
	}
}

func TestOnlineRepoReplaceKeepsSince(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewOnlineRepo(db)

	if err := repo.Replace(ctx, []string{"bob", "alice"}, time.Unix(10, 0)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Replace(ctx, []string{"alice", "carol"}, time.Unix(20, 0)); err != nil {
		t.Fatal(err)
	}
	names, err := repo.List(ctx)
	if err != nil || len(names) != 2 || names[0] != "alice" || names[1] != "carol" {
		t.Fatalf("names = %v err=%v", names, err)
	}
	var since int64
	if err := db.SQL.QueryRowContext(ctx,
		db.Rebind(`SELECT on_since FROM onlineplayer WHERE on_name = $1`), "alice").Scan(&since); err != nil {
		t.Fatal(err)
	}
	if since != 10 {
		t.Fatalf("alice since = %d, want 10", since)
	}
}
