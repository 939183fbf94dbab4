package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"juicestand/internal/core"
	"juicestand/internal/records"

	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type SQLiteRepository struct {
	db *sqlx.DB
	// q is db, or the open transaction inside WithinTx.
	q sqlx.ExtContext
}

var _ records.Store = (*SQLiteRepository)(nil)

type saleRow struct {
	ID          int64           `db:"id"`
	Date        string          `db:"date"`
	BottlesSold int             `db:"bottles_sold"`
	PriceCents  int64           `db:"price_per_bottle_cents"`
	IncomeCents int64           `db:"total_income_cents"`
	LitersSold  decimal.Decimal `db:"liters_sold"`
	BottleSize  sql.NullString  `db:"bottle_size"`
	CreatedAtMs int64           `db:"created_at_ms"`
}

type expenseRow struct {
	ID          int64               `db:"id"`
	Date        string              `db:"date"`
	Category    string              `db:"category"`
	AmountCents int64               `db:"amount_cents"`
	Quantity    decimal.NullDecimal `db:"quantity"`
	Description string              `db:"description"`
	CreatedAtMs int64               `db:"created_at_ms"`
}

type movementRow struct {
	ID            int64           `db:"id"`
	Date          string          `db:"date"`
	Item          string          `db:"item"`
	QuantityAdded decimal.Decimal `db:"quantity_added"`
	QuantityUsed  decimal.Decimal `db:"quantity_used"`
	CreatedAtMs   int64           `db:"created_at_ms"`
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; sqlite serialises anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite record store ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db, q: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithinTx runs fn on a repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(tx records.Store) error) error {
	if _, nested := r.q.(*sqlx.Tx); nested {
		return fn(r)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&SQLiteRepository{db: r.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AddSale implements records.SaleStore
func (r *SQLiteRepository) AddSale(ctx context.Context, s core.Sale) (int64, error) {
	row := saleRow{
		Date:        s.Date.String(),
		BottlesSold: s.BottlesSold,
		PriceCents:  s.PricePerBottle.Cents,
		IncomeCents: s.TotalIncome.Cents,
		LitersSold:  s.LitersSold,
		BottleSize:  sql.NullString{String: string(s.BottleSize), Valid: s.BottleSize != core.BottleSizeUnspecified},
		CreatedAtMs: s.Timestamp.UnixMilli(),
	}
	res, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO sales (date, bottles_sold, price_per_bottle_cents, total_income_cents, liters_sold, bottle_size, created_at_ms)
		VALUES (:date, :bottles_sold, :price_per_bottle_cents, :total_income_cents, :liters_sold, :bottle_size, :created_at_ms)`, row)
	if err != nil {
		return 0, fmt.Errorf("insert sale: %w", err)
	}
	return res.LastInsertId()
}

// ListSales implements records.SaleStore
func (r *SQLiteRepository) ListSales(ctx context.Context, f records.Filter) ([]core.Sale, error) {
	var rows []saleRow
	where, args := dateClause(f)
	if err := sqlx.SelectContext(ctx, r.q, &rows, "SELECT * FROM sales"+where+" ORDER BY id ASC", args...); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	out := make([]core.Sale, 0, len(rows))
	for _, row := range rows {
		d, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("sale %d: %w", row.ID, err)
		}
		out = append(out, core.Sale{
			ID:             row.ID,
			Date:           d,
			BottlesSold:    row.BottlesSold,
			PricePerBottle: core.Money{Cents: row.PriceCents},
			TotalIncome:    core.Money{Cents: row.IncomeCents},
			LitersSold:     row.LitersSold,
			BottleSize:     core.BottleSize(row.BottleSize.String),
			Timestamp:      time.UnixMilli(row.CreatedAtMs),
		})
	}
	return out, nil
}

// DeleteSale implements records.SaleStore
func (r *SQLiteRepository) DeleteSale(ctx context.Context, id int64) (core.Date, error) {
	return r.deleteByID(ctx, "sales", id)
}

// AddExpense implements records.ExpenseStore
func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (int64, error) {
	row := expenseRow{
		Date:        e.Date.String(),
		Category:    string(e.Category),
		AmountCents: e.Amount.Cents,
		Quantity:    e.Quantity,
		Description: e.Description,
		CreatedAtMs: e.Timestamp.UnixMilli(),
	}
	res, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO expenses (date, category, amount_cents, quantity, description, created_at_ms)
		VALUES (:date, :category, :amount_cents, :quantity, :description, :created_at_ms)`, row)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	return res.LastInsertId()
}

// ListExpenses implements records.ExpenseStore
func (r *SQLiteRepository) ListExpenses(ctx context.Context, f records.Filter) ([]core.Expense, error) {
	var rows []expenseRow
	where, args := dateClause(f)
	if err := sqlx.SelectContext(ctx, r.q, &rows, "SELECT * FROM expenses"+where+" ORDER BY id ASC", args...); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		d, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", row.ID, err)
		}
		out = append(out, core.Expense{
			ID:          row.ID,
			Date:        d,
			Category:    core.Category(row.Category),
			Amount:      core.Money{Cents: row.AmountCents},
			Quantity:    row.Quantity,
			Description: row.Description,
			Timestamp:   time.UnixMilli(row.CreatedAtMs),
		})
	}
	return out, nil
}

// DeleteExpense implements records.ExpenseStore
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) (core.Date, error) {
	return r.deleteByID(ctx, "expenses", id)
}

// AddMovement implements records.MovementStore
func (r *SQLiteRepository) AddMovement(ctx context.Context, m core.InventoryMovement) (int64, error) {
	row := movementRow{
		Date:          m.Date.String(),
		Item:          string(m.Item),
		QuantityAdded: m.QuantityAdded,
		QuantityUsed:  m.QuantityUsed,
		CreatedAtMs:   m.Timestamp.UnixMilli(),
	}
	res, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO inventory_movements (date, item, quantity_added, quantity_used, created_at_ms)
		VALUES (:date, :item, :quantity_added, :quantity_used, :created_at_ms)`, row)
	if err != nil {
		return 0, fmt.Errorf("insert inventory movement: %w", err)
	}
	return res.LastInsertId()
}

// ListMovements implements records.MovementStore
func (r *SQLiteRepository) ListMovements(ctx context.Context, f records.Filter) ([]core.InventoryMovement, error) {
	var rows []movementRow
	where, args := dateClause(f)
	if err := sqlx.SelectContext(ctx, r.q, &rows, "SELECT * FROM inventory_movements"+where+" ORDER BY id ASC", args...); err != nil {
		return nil, fmt.Errorf("list inventory movements: %w", err)
	}
	out := make([]core.InventoryMovement, 0, len(rows))
	for _, row := range rows {
		d, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("inventory movement %d: %w", row.ID, err)
		}
		out = append(out, core.InventoryMovement{
			ID:            row.ID,
			Date:          d,
			Item:          core.Item(row.Item),
			QuantityAdded: row.QuantityAdded,
			QuantityUsed:  row.QuantityUsed,
			Timestamp:     time.UnixMilli(row.CreatedAtMs),
		})
	}
	return out, nil
}

// DeleteMovement implements records.MovementStore
func (r *SQLiteRepository) DeleteMovement(ctx context.Context, id int64) (core.Date, error) {
	return r.deleteByID(ctx, "inventory_movements", id)
}

// ClearAll implements records.Clearer
func (r *SQLiteRepository) ClearAll(ctx context.Context) error {
	return r.WithinTx(ctx, func(tx records.Store) error {
		q := tx.(*SQLiteRepository).q
		for _, table := range []string{"sales", "expenses", "inventory_movements"} {
			if _, err := q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// deleteByID removes one row and returns its date.
func (r *SQLiteRepository) deleteByID(ctx context.Context, table string, id int64) (core.Date, error) {
	var date string
	err := sqlx.GetContext(ctx, r.q, &date, "DELETE FROM "+table+" WHERE id = ? RETURNING date", id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Date{}, fmt.Errorf("%s id %d: %w", strings.TrimSuffix(table, "s"), id, core.ErrNotFound)
	}
	if err != nil {
		return core.Date{}, fmt.Errorf("delete from %s: %w", table, err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Date{}, fmt.Errorf("deleted %s id %d has a bad date: %w", strings.TrimSuffix(table, "s"), id, err)
	}
	return d, nil
}

func dateClause(f records.Filter) (string, []any) {
	if f.Date == nil {
		return "", nil
	}
	return " WHERE date = ?", []any{f.Date.String()}
}
