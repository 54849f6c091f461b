package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zhouzirui/syntra/backend/internal/model/billing"
	"github.com/zhouzirui/syntra/backend/internal/service/account"
)

// AccountStore implements account.Repository.
type AccountStore struct {
	db *sql.DB
}

const userColumns = `id, email, name, premium, joined_at`

func (s *AccountStore) Get(ctx context.Context, id string) (account.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (account.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email_key = ?`, account.EmailKey(email))
	return scanUser(row)
}

// Create inserts user. When the email is already registered the stored
// account is returned unchanged.
func (s *AccountStore) Create(ctx context.Context, user account.User) (account.User, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, email_key, name, premium, joined_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(email_key) DO NOTHING`,
		user.ID, user.Email, account.EmailKey(user.Email), user.Name, user.Premium, user.JoinedAt.UnixNano())
	if err != nil {
		return account.User{}, fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}
	return s.FindByEmail(ctx, user.Email)
}

// RecordUpgrade updates the user and inserts tx in one transaction.
func (s *AccountStore) RecordUpgrade(ctx context.Context, user account.User, tx billing.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`UPDATE users SET name = ?, premium = ? WHERE id = ?`,
		user.Name, user.Premium, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return account.ErrUserNotFound
	}

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, user_email, amount, currency, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.UserEmail, tx.Amount, tx.Currency, tx.Status, tx.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", tx.ID, err)
	}
	return dbTx.Commit()
}

func (s *AccountStore) Users(ctx context.Context) ([]account.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []account.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return users, nil
}

func (s *AccountStore) Transactions(ctx context.Context) ([]billing.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, user_email, amount, currency, status, created_at
		FROM transactions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []billing.Transaction
	for rows.Next() {
		var (
			tx        billing.Transaction
			createdAt int64
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.UserEmail, &tx.Amount, &tx.Currency, &tx.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.CreatedAt = time.Unix(0, createdAt).UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return txs, nil
}

func scanUser(row scanner) (account.User, error) {
	var (
		user     account.User
		joinedAt int64
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Premium, &joinedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.User{}, account.ErrUserNotFound
		}
		return account.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	user.JoinedAt = time.Unix(0, joinedAt).UTC()
	return user, nil
}
