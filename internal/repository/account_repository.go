package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// AccountRepository defines persistence access for accounts and their role.
type AccountRepository interface {
	// Create inserts the account and its role profile atomically.
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	SetRole(ctx context.Context, id int64, role domain.Role) error
}

type accountRepository struct {
	pool *pgxpool.Pool
	tx   Transactor
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool, tx Transactor) AccountRepository {
	return &accountRepository{pool: pool, tx: tx}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	if account.Role == "" {
		account.Role = domain.RoleCustomer
	}
	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		const insertAccount = `
        INSERT INTO accounts (username, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
		q := conn(ctx, r.pool)
		if err := q.QueryRow(ctx, insertAccount,
			account.Username,
			account.Email,
			account.PasswordHash,
		).Scan(&account.ID, &account.CreatedAt); err != nil {
			return mapError(err)
		}

		const insertProfile = `INSERT INTO profiles (account_id, user_type) VALUES ($1, $2)`
		_, err := q.Exec(ctx, insertProfile, account.ID, account.Role)
		return mapError(err)
	})
}

const selectAccount = `
        SELECT a.id, a.username, a.email, a.password_hash, p.user_type, a.created_at
        FROM accounts a JOIN profiles p ON p.account_id = a.id`

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.fetchSingle(ctx, selectAccount+` WHERE a.id=$1`, id)
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.fetchSingle(ctx, selectAccount+` WHERE a.username=$1`, username)
}

func (r *accountRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var account domain.Account
	if err := conn(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &account, nil
}

func (r *accountRepository) SetRole(ctx context.Context, id int64, role domain.Role) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `UPDATE profiles SET user_type=$1 WHERE account_id=$2`, role, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return errorutil.ErrNotFound
	}
	return nil
}
