package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/now"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
	applog "kharcha/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the ledger.Store of the reference API.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *applog.Logger
	newID   func() string
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it.
func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard(applog.ComponentStorage)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
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
	logger = logger.WithComponent(applog.ComponentStorage)
	logger.Info("SQLite database ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
		newID:   uuid.NewString,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Add stores the expense under a new UUID.
func (r *SQLiteRepository) Add(ctx context.Context, e core.NewExpense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	id := r.newID()
	err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:          id,
		ItemName:    e.ItemName,
		Amount:      e.Amount.Decimal().String(),
		ExpenseDate: core.FormatISODate(e.Date),
		UserEmail:   core.NormalizeEmail(e.UserEmail),
	})
	if err != nil {
		return "", fmt.Errorf("create expense: %w", err)
	}

	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		applog.FieldExpenseID, id,
		applog.FieldAmount, e.Amount.String(),
		applog.FieldDate, core.EncodeDate(e.Date))
	return id, nil
}

// Get returns one expense by id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.ExpenseRecord, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, fmt.Errorf("get %s: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("get expense: %w", err)
	}
	return toRecord(row)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, email string) (ledger.Batch, error) {
	rows, err := r.queries.ListExpensesByUser(ctx, core.NormalizeEmail(email))
	if err != nil {
		return ledger.Batch{}, fmt.Errorf("list expenses by user: %w", err)
	}
	return toBatch(rows), nil
}

func (r *SQLiteRepository) ListByDay(ctx context.Context, email string, day core.Date) (ledger.Batch, error) {
	iso := core.FormatISODate(day)
	return r.between(ctx, email, iso, iso)
}

// ListByMonth selects by the month's first and last day.
func (r *SQLiteRepository) ListByMonth(ctx context.Context, email string, year, month int) (ledger.Batch, error) {
	if month < 1 || month > 12 {
		return ledger.Batch{}, fmt.Errorf("month %d out of range", month)
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	bounds := now.With(first)
	return r.between(ctx, email,
		core.FormatISODate(core.DateOf(bounds.BeginningOfMonth())),
		core.FormatISODate(core.DateOf(bounds.EndOfMonth())))
}

func (r *SQLiteRepository) between(ctx context.Context, email, from, to string) (ledger.Batch, error) {
	rows, err := r.queries.ListExpensesBetween(ctx, ListExpensesBetweenParams{
		UserEmail: core.NormalizeEmail(email),
		From:      from,
		To:        to,
	})
	if err != nil {
		return ledger.Batch{}, fmt.Errorf("list expenses %s..%s: %w", from, to, err)
	}
	return toBatch(rows), nil
}

// SyncUser upserts the user keyed by lowercased email.
func (r *SQLiteRepository) SyncUser(ctx context.Context, id ledger.Identity) error {
	email := core.NormalizeEmail(id.Email)
	if email == "" {
		return core.ErrEmptyEmail
	}
	provider := id.AuthProvider
	if provider == "" {
		provider = "password"
	}
	if err := r.queries.UpsertUser(ctx, UpsertUserParams{Email: email, Name: id.Name, AuthProvider: provider}); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// User returns a synced user.
func (r *SQLiteRepository) User(ctx context.Context, email string) (ledger.Identity, error) {
	u, err := r.queries.GetUser(ctx, core.NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Identity{}, fmt.Errorf("user %s: %w", email, ledger.ErrNotFound)
	}
	if err != nil {
		return ledger.Identity{}, fmt.Errorf("get user: %w", err)
	}
	return ledger.Identity{Name: u.Name, Email: u.Email, AuthProvider: u.AuthProvider}, nil
}

func toBatch(rows []Expense) ledger.Batch {
	var b ledger.Batch
	for i, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			b.Rejected = append(b.Rejected, core.RecordError{Index: i, ID: row.ID, Err: err})
			continue
		}
		b.Records = append(b.Records, rec)
	}
	return b
}

func toRecord(row Expense) (core.ExpenseRecord, error) {
	amount, err := core.ParseAmount(row.Amount)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("amount %q: %w", row.Amount, err)
	}
	date, err := core.ParseISODate(row.ExpenseDate)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	return core.ExpenseRecord{
		ID:        row.ID,
		ItemName:  row.ItemName,
		Amount:    amount,
		Date:      date,
		UserEmail: row.UserEmail,
	}, nil
}
