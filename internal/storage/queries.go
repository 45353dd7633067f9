package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the statements used by the repository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Expense is a row of the expenses table.
type Expense struct {
	ID          string
	ItemName    string
	Amount      string
	ExpenseDate string
	UserEmail   string
}

type CreateExpenseParams struct {
	ID          string
	ItemName    string
	Amount      string
	ExpenseDate string
	UserEmail   string
}

const createExpense = `
INSERT INTO expenses (id, item_name, amount, expense_date, user_email)
VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID, arg.ItemName, arg.Amount, arg.ExpenseDate, arg.UserEmail)
	return err
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

// DeleteExpense returns the number of rows removed.
func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getExpense = `
SELECT id, item_name, amount, expense_date, user_email
FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	var e Expense
	err := q.db.QueryRowContext(ctx, getExpense, id).
		Scan(&e.ID, &e.ItemName, &e.Amount, &e.ExpenseDate, &e.UserEmail)
	return e, err
}

const listExpensesByUser = `
SELECT id, item_name, amount, expense_date, user_email
FROM expenses
WHERE user_email = ?
ORDER BY expense_date, rowid`

func (q *Queries) ListExpensesByUser(ctx context.Context, email string) ([]Expense, error) {
	return q.list(ctx, listExpensesByUser, email)
}

type ListExpensesBetweenParams struct {
	UserEmail string
	From      string
	To        string
}

const listExpensesBetween = `
SELECT id, item_name, amount, expense_date, user_email
FROM expenses
WHERE user_email = ? AND expense_date BETWEEN ? AND ?
ORDER BY expense_date, rowid`

// ListExpensesBetween returns the user's expenses with From <= date <= To
// (ISO dates, compared as text).
func (q *Queries) ListExpensesBetween(ctx context.Context, arg ListExpensesBetweenParams) ([]Expense, error) {
	return q.list(ctx, listExpensesBetween, arg.UserEmail, arg.From, arg.To)
}

type UpsertUserParams struct {
	Email        string
	Name         string
	AuthProvider string
}

const upsertUser = `
INSERT INTO users (email, name, auth_provider)
VALUES (?, ?, ?)
ON CONFLICT (email) DO UPDATE SET
    name = excluded.name,
    auth_provider = excluded.auth_provider,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) error {
	_, err := q.db.ExecContext(ctx, upsertUser, arg.Email, arg.Name, arg.AuthProvider)
	return err
}

// User is a row of the users table.
type User struct {
	Email        string
	Name         string
	AuthProvider string
}

const getUser = `SELECT email, name, auth_provider FROM users WHERE email = ?`

func (q *Queries) GetUser(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUser, email).Scan(&u.Email, &u.Name, &u.AuthProvider)
	return u, err
}

func (q *Queries) list(ctx context.Context, query string, args ...any) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.ItemName, &e.Amount, &e.ExpenseDate, &e.UserEmail); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
