package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// squash drops the spacing differences squirrel is free to make.
func squash(sql string) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(sql), " "), ", ", ",")
}

type builder interface {
	ToSql() (string, []interface{}, error)
}

func TestPGQueries(t *testing.T) {
	id := uuid.MustParse("7f8c3a9e-35b1-4b0e-9d57-3f0b2f1c7a11")
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Product{Name: "Cup", Image: "/images/cup.png", Probability: 12.5, IsActive: true, Rotation: 90, CreatedAt: ts, UpdatedAt: ts}
	cols := "id,name,image,probability,is_active,rotation,created_at,updated_at"

	cases := []struct {
		name  string
		b     builder
		want  string
		nargs int
	}{
		{"insert product", insertProductQuery(id, p),
			"INSERT INTO products (" + cols + ") VALUES ($1,$2,$3,$4,$5,$6,$7,$8)", 8},
		{"all products", productsQuery(false),
			"SELECT " + cols + " FROM products ORDER BY created_at DESC,id", 0},
		{"active products", productsQuery(true),
			"SELECT " + cols + " FROM products WHERE is_active = $1 ORDER BY created_at,id", 1},
		{"by id", productByIDQuery(id, false),
			"SELECT " + cols + " FROM products WHERE id = $1", 1},
		{"by id for update", productByIDQuery(id, true),
			"SELECT " + cols + " FROM products WHERE id = $1 FOR UPDATE", 1},
		{"update", updateProductQuery(id, p),
			"UPDATE products SET name = $1,image = $2,probability = $3,is_active = $4,rotation = $5,updated_at = $6 WHERE id = $7", 7},
		{"insert spin", insertSpinQuery(Spin{ID: id.String(), ProductID: "x", Timestamp: ts, IPAddress: "1.2.3.4"}),
			"INSERT INTO spins (id,product_id,ts,ip_address) VALUES ($1,$2,$3,$4)", 4},
		{"spins", spinsQuery(0),
			"SELECT s.id,s.product_id,s.ts,s.ip_address,p.id,p.name,p.image,p.probability,p.is_active,p.rotation,p.created_at,p.updated_at" +
				" FROM spins s LEFT JOIN products p ON p.id::text = s.product_id ORDER BY s.ts DESC", 0},
		{"spins limited", spinsQuery(25),
			"SELECT s.id,s.product_id,s.ts,s.ip_address,p.id,p.name,p.image,p.probability,p.is_active,p.rotation,p.created_at,p.updated_at" +
				" FROM spins s LEFT JOIN products p ON p.id::text = s.product_id ORDER BY s.ts DESC LIMIT 25", 0},
	}
	for _, c := range cases {
		sql, args, err := c.b.ToSql()
		if err != nil {
			t.Errorf("%s: %v", c.name, err)
			continue
		}
		if got := squash(sql); got != c.want {
			t.Errorf("%s:\n got  %s\n want %s", c.name, got, c.want)
		}
		if len(args) != c.nargs {
			t.Errorf("%s: %d args want %d", c.name, len(args), c.nargs)
		}
	}

	_, args, _ := updateProductQuery(id, p).ToSql()
	if args[0] != "Cup" || args[2] != 12.5 || args[6] != id {
		t.Errorf("update args %v", args)
	}
}

// newPGStore runs against TEST_DATABASE_URL in a throwaway schema.
func newPGStore(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	schema := fmt.Sprintf("prizewheel_test_%d", rand.Uint32())

	admin, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(admin.Close)
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatal(err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	s, err := NewPGStore(pool)
	if err != nil {
		t.Fatal(err)
	}
	s.now = tickingClock()
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPGStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := newPGStore(t)

	a, err := s.Create(ctx, NewProduct{Name: "Cup", Probability: f64(30)})
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Create(ctx, NewProduct{Name: "Hat", Probability: f64(20), IsActive: boolp(false)})
	if err != nil {
		t.Fatal(err)
	}

	all, err := s.FindAll(ctx)
	if err != nil || len(all) != 2 || all[0].ID != b.ID {
		t.Fatalf("FindAll %v %+v", err, all)
	}
	active, err := s.FindActive(ctx)
	if err != nil || len(active) != 1 || active[0].ID != a.ID {
		t.Fatalf("FindActive %v %+v", err, active)
	}

	up, err := s.Update(ctx, b.ID, ProductPatch{IsActive: boolp(true), Probability: f64(25)})
	if err != nil || !up.IsActive || up.Probability != 25 || up.Name != "Hat" {
		t.Fatalf("Update %v %+v", err, up)
	}
	if _, err := s.Update(ctx, b.ID, ProductPatch{Probability: f64(-1)}); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("invalid patch: %v", err)
	}
	if got, _ := s.FindByID(ctx, b.ID); got.Probability != 25 {
		t.Errorf("rolled back patch changed the row: %+v", got)
	}
	if _, err := s.Update(ctx, uuid.NewString(), ProductPatch{Name: strp("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: %v", err)
	}

	sp, err := s.RecordSpin(ctx, a.ID, "10.0.0.1")
	if err != nil || sp.Product == nil || sp.Product.Name != "Cup" {
		t.Fatalf("RecordSpin %v %+v", err, sp)
	}
	if _, err := s.RecordSpin(ctx, "gone", "10.0.0.2"); err != nil {
		t.Fatal(err)
	}
	spins, err := s.ListSpins(ctx, 0)
	if err != nil || len(spins) != 2 {
		t.Fatalf("ListSpins %v %+v", err, spins)
	}
	if spins[0].ProductID != "gone" || spins[0].Product != nil {
		t.Errorf("newest spin %+v", spins[0])
	}
	if spins[1].Product == nil || spins[1].Product.ID != a.ID {
		t.Errorf("joined product %+v", spins[1])
	}
	if limited, _ := s.ListSpins(ctx, 1); len(limited) != 1 {
		t.Errorf("limit 1: %d", len(limited))
	}

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if _, err := s.FindByID(ctx, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("bad id: %v", err)
	}
}
