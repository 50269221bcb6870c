package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"pivik/internal/core"
	"pivik/internal/store"

	_ "modernc.org/sqlite"
)

const invoiceColumns = `id, vendor, invoice_number, invoice_date, amount_cents, category, project, status, file_url`

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection keeps read-modify-write
	// transactions from hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable; used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateInvoice implements store.InvoiceStore
func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	inv, err := store.NormalizeNew(inv)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO invoices (vendor, invoice_number, invoice_date, amount_cents, category, project, status, file_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Vendor, inv.InvoiceNumber, inv.Date.String(), nullableCents(inv.Amount),
		inv.Category, inv.Project, string(inv.Status), inv.FileURL)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: last insert id: %w", err)
	}
	inv.ID = id

	slog.DebugContext(ctx, "Invoice saved to SQLite",
		"id", inv.ID,
		"vendor", inv.Vendor,
		"status", inv.Status)

	return inv, nil
}

// UpdateInvoice implements store.InvoiceStore. The read and the write share
// one transaction so a failed validation leaves the row untouched.
func (r *SQLiteRepository) UpdateInvoice(ctx context.Context, id int64, patch core.InvoicePatch) (core.Invoice, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice %d: begin: %w", id, err)
	}
	defer tx.Rollback() //nolint:errcheck

	cur, err := scanInvoice(tx.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice %d: %w", id, err)
	}

	next := patch.Apply(cur)
	if err := next.Validate(); err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice %d: %w", id, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE invoices
		 SET vendor = ?, invoice_number = ?, invoice_date = ?, amount_cents = ?,
		     category = ?, project = ?, file_url = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		next.Vendor, next.InvoiceNumber, next.Date.String(), nullableCents(next.Amount),
		next.Category, next.Project, next.FileURL, id)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice %d: commit: %w", id, err)
	}
	return next, nil
}

// DeleteInvoice implements store.InvoiceStore
func (r *SQLiteRepository) DeleteInvoice(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invoice %d: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return fmt.Errorf("delete invoice %d: %w", id, err)
	}
	return nil
}

// SetStatus implements store.InvoiceStore. The previous label is overwritten,
// so reverting PAID to the sentinel cannot recover it.
func (r *SQLiteRepository) SetStatus(ctx context.Context, id int64, status core.Status) (core.Invoice, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), id)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("set status %d: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return core.Invoice{}, fmt.Errorf("set status %d: %w", id, err)
	}
	return r.GetInvoice(ctx, id)
}

// GetInvoice implements store.InvoiceStore
func (r *SQLiteRepository) GetInvoice(ctx context.Context, id int64) (core.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice %d: %w", id, err)
	}
	return inv, nil
}

// ListInvoices implements store.InvoiceStore
func (r *SQLiteRepository) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []core.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("list invoices: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}

// CreateEarning implements store.EarningsLedger
func (r *SQLiteRepository) CreateEarning(ctx context.Context, e core.Earning) (core.Earning, error) {
	if err := e.Validate(); err != nil {
		return core.Earning{}, fmt.Errorf("create earning: %w", err)
	}
	if e.Source == "" {
		e.Source = core.DefaultEarningSource
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO earnings (earning_date, amount_cents, source) VALUES (?, ?, ?)`,
		e.Date.String(), e.Amount.Cents, e.Source)
	if err != nil {
		return core.Earning{}, fmt.Errorf("create earning: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Earning{}, fmt.Errorf("create earning: last insert id: %w", err)
	}
	e.ID = id
	return e, nil
}

// DeleteEarning implements store.EarningsLedger
func (r *SQLiteRepository) DeleteEarning(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM earnings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete earning %d: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return fmt.Errorf("delete earning %d: %w", id, err)
	}
	return nil
}

// ListEarnings implements store.EarningsLedger
func (r *SQLiteRepository) ListEarnings(ctx context.Context) ([]core.Earning, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, earning_date, amount_cents, source FROM earnings`)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	defer rows.Close()

	var out []core.Earning
	for rows.Next() {
		var (
			e    core.Earning
			date string
		)
		if err := rows.Scan(&e.ID, &date, &e.Amount.Cents, &e.Source); err != nil {
			return nil, fmt.Errorf("list earnings: scan: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("list earnings: row %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (core.Invoice, error) {
	var (
		inv    core.Invoice
		date   string
		cents  sql.NullInt64
		status string
	)
	err := row.Scan(&inv.ID, &inv.Vendor, &inv.InvoiceNumber, &date, &cents,
		&inv.Category, &inv.Project, &status, &inv.FileURL)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, core.ErrNotFound
	}
	if err != nil {
		return core.Invoice{}, fmt.Errorf("scan invoice: %w", err)
	}
	if inv.Date, err = core.ParseDate(date); err != nil {
		return core.Invoice{}, fmt.Errorf("invoice %d: %w", inv.ID, err)
	}
	if cents.Valid {
		inv.Amount = &core.Money{Cents: cents.Int64}
	}
	inv.Status = core.Status(status)
	return inv, nil
}

func nullableCents(m *core.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents, Valid: true}
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
