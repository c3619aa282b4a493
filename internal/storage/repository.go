// Package storage persists expenses in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/log"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicateID is returned by Insert when the owner already has a record with the same ID.
var ErrDuplicateID = errors.New("duplicate expense id")

const (
	insertExpense = `INSERT INTO expenses (id, owner_id, name, date, amount, category, category_icon)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	listExpenses = `SELECT id, owner_id, name, date, amount, category, category_icon
FROM expenses
WHERE owner_id = ?
ORDER BY seq`

	deleteExpense = `DELETE FROM expenses WHERE owner_id = ? AND id = ?`

	listOwners = `SELECT DISTINCT owner_id FROM expenses ORDER BY owner_id`
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and migrates it.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Default(log.ComponentStorage)
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// single writer keeps SQLITE_BUSY out of concurrent requests
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("SQLite store ready", "db_path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Insert stores rec under its owner.
func (r *SQLiteRepository) Insert(ctx context.Context, rec core.Expense) error {
	if strings.TrimSpace(rec.OwnerID) == "" {
		return core.ErrEmptyOwner
	}
	_, err := r.db.ExecContext(ctx, insertExpense,
		rec.ID, rec.OwnerID, rec.Name, rec.Date, rec.Amount, rec.Category, rec.CategoryIcon)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("insert expense %s: %w", rec.ID, ErrDuplicateID)
		}
		return fmt.Errorf("insert expense: %w", err)
	}

	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		log.FieldOwnerID, rec.OwnerID,
		log.FieldExpenseID, rec.ID,
		log.FieldAmount, rec.Amount)
	return nil
}

// List returns every record of ownerID in insertion order.
func (r *SQLiteRepository) List(ctx context.Context, ownerID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, listExpenses, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Date, &e.Amount, &e.Category, &e.CategoryIcon); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// Delete removes the record (ownerID, id). A missing record yields core.ErrNotFound.
func (r *SQLiteRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, deleteExpense, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	r.logger.DebugContext(ctx, "Expense removed from SQLite",
		log.FieldOwnerID, ownerID,
		log.FieldExpenseID, id)
	return nil
}

// Owners lists every owner with at least one stored record.
func (r *SQLiteRepository) Owners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listOwners)
	if err != nil {
		return nil, fmt.Errorf("query owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func isConstraintError(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
