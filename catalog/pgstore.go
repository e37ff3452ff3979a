package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

const (
	tableProducts  = "products"
	colID          = "id"
	colName        = "name"
	colImage       = "image"
	colProbability = "probability"
	colIsActive    = "is_active"
	colRotation    = "rotation"
	colCreatedAt   = "created_at"
	colUpdatedAt   = "updated_at"

	tableSpins   = "spins"
	colProductID = "product_id"
	colTS        = "ts"
	colIP        = "ip_address"
)

var productCols = []string{colID, colName, colImage, colProbability, colIsActive, colRotation, colCreatedAt, colUpdatedAt}

// psql builds Postgres-style placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func insertProductQuery(id uuid.UUID, p Product) sq.InsertBuilder {
	return psql.Insert(tableProducts).
		Columns(productCols...).
		Values(id, p.Name, p.Image, p.Probability, p.IsActive, p.Rotation, p.CreatedAt, p.UpdatedAt)
}

// productsQuery lists products newest first, or active ones in wheel order.
func productsQuery(activeOnly bool) sq.SelectBuilder {
	q := psql.Select(productCols...).From(tableProducts)
	if activeOnly {
		return q.Where(sq.Eq{colIsActive: true}).OrderBy(colCreatedAt, colID)
	}
	return q.OrderBy(colCreatedAt+" DESC", colID)
}

func productByIDQuery(id uuid.UUID, forUpdate bool) sq.SelectBuilder {
	q := psql.Select(productCols...).From(tableProducts).Where(sq.Eq{colID: id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	return q
}

func updateProductQuery(id uuid.UUID, p Product) sq.UpdateBuilder {
	return psql.Update(tableProducts).
		Set(colName, p.Name).
		Set(colImage, p.Image).
		Set(colProbability, p.Probability).
		Set(colIsActive, p.IsActive).
		Set(colRotation, p.Rotation).
		Set(colUpdatedAt, p.UpdatedAt).
		Where(sq.Eq{colID: id})
}

func insertSpinQuery(sp Spin) sq.InsertBuilder {
	return psql.Insert(tableSpins).
		Columns(colID, colProductID, colTS, colIP).
		Values(sp.ID, sp.ProductID, sp.Timestamp, sp.IPAddress)
}

// spinsQuery joins each spin to its product, which may be gone.
func spinsQuery(limit int) sq.SelectBuilder {
	cols := []string{"s." + colID, "s." + colProductID, "s." + colTS, "s." + colIP}
	for _, c := range productCols {
		cols = append(cols, "p."+c)
	}
	q := psql.Select(cols...).
		From(tableSpins + " s").
		LeftJoin(tableProducts + " p ON p.id::text = s.product_id").
		OrderBy("s." + colTS + " DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q
}

// PGStore keeps the catalog in Postgres.
type PGStore struct {
	db     *pgxpool.Pool
	getter *trmpgx.CtxGetter
	tx     trm.Manager
	now    func() time.Time
}

func NewPGStore(db *pgxpool.Pool) (*PGStore, error) {
	m, err := manager.New(trmpgx.NewDefaultFactory(db))
	if err != nil {
		return nil, fmt.Errorf("tx manager: %w", err)
	}
	return &PGStore{db: db, getter: trmpgx.DefaultCtxGetter, tx: m, now: time.Now}, nil
}

// Migrate creates the tables when missing.
func (s *PGStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// conn returns the transaction bound to ctx, or the pool.
func (s *PGStore) conn(ctx context.Context) trmpgx.Tr {
	return s.getter.DefaultTrOrDB(ctx, s.db)
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var id uuid.UUID
	err := row.Scan(&id, &p.Name, &p.Image, &p.Probability, &p.IsActive, &p.Rotation, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ID = id.String()
	return &p, nil
}

func (s *PGStore) queryProducts(ctx context.Context, q sq.SelectBuilder) ([]Product, error) {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, in NewProduct) (*Product, error) {
	p, err := in.build()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	id := uuid.New()
	p.ID = id.String()
	p.CreatedAt, p.UpdatedAt = now, now

	sqlStr, args, err := insertProductQuery(id, p).ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := s.conn(ctx).Exec(ctx, sqlStr, args...); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) FindAll(ctx context.Context) ([]Product, error) {
	return s.queryProducts(ctx, productsQuery(false))
}

func (s *PGStore) FindActive(ctx context.Context) ([]Product, error) {
	return s.queryProducts(ctx, productsQuery(true))
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findByID(ctx, uid, false)
}

func (s *PGStore) findByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*Product, error) {
	sqlStr, args, err := productByIDQuery(id, forUpdate).ToSql()
	if err != nil {
		return nil, err
	}
	return scanProduct(s.conn(ctx).QueryRow(ctx, sqlStr, args...))
}

// Update reads and writes the row in one transaction so concurrent patches
// do not lose fields.
func (s *PGStore) Update(ctx context.Context, id string, patch ProductPatch) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var out *Product
	err = s.tx.Do(ctx, func(txCtx context.Context) error {
		cur, err := s.findByID(txCtx, uid, true)
		if err != nil {
			return err
		}
		p, err := patch.apply(*cur)
		if err != nil {
			return err
		}
		p.UpdatedAt = s.now().UTC()
		sqlStr, args, err := updateProductQuery(uid, p).ToSql()
		if err != nil {
			return err
		}
		if _, err := s.conn(txCtx).Exec(txCtx, sqlStr, args...); err != nil {
			return err
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	sqlStr, args, err := psql.Delete(tableProducts).Where(sq.Eq{colID: uid}).ToSql()
	if err != nil {
		return err
	}
	tag, err := s.conn(ctx).Exec(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) RecordSpin(ctx context.Context, productID, ipAddress string) (*Spin, error) {
	sp := Spin{
		ID:        newID(),
		ProductID: productID,
		Timestamp: s.now().UTC(),
		IPAddress: ipAddress,
	}
	err := s.tx.Do(ctx, func(txCtx context.Context) error {
		sqlStr, args, err := insertSpinQuery(sp).ToSql()
		if err != nil {
			return err
		}
		if _, err := s.conn(txCtx).Exec(txCtx, sqlStr, args...); err != nil {
			return err
		}
		if uid, err := uuid.Parse(productID); err == nil {
			p, err := s.findByID(txCtx, uid, false)
			switch {
			case err == nil:
				sp.Product = p
			case !errors.Is(err, ErrNotFound):
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *PGStore) ListSpins(ctx context.Context, limit int) ([]Spin, error) {
	sqlStr, args, err := spinsQuery(limit).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Spin
	for rows.Next() {
		var (
			sp        Spin
			spinID    uuid.UUID
			pid       *uuid.UUID
			name      *string
			image     *string
			prob      *float64
			active    *bool
			rotation  *int
			createdAt *time.Time
			updatedAt *time.Time
		)
		if err := rows.Scan(&spinID, &sp.ProductID, &sp.Timestamp, &sp.IPAddress,
			&pid, &name, &image, &prob, &active, &rotation, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		sp.ID = spinID.String()
		if pid != nil {
			sp.Product = &Product{
				ID:          pid.String(),
				Name:        *name,
				Image:       *image,
				Probability: *prob,
				IsActive:    *active,
				Rotation:    *rotation,
				CreatedAt:   *createdAt,
				UpdatedAt:   *updatedAt,
			}
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}
