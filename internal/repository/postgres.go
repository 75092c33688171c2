// Package repository содержит реализации хранилища пользователей и счетов.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/invoice-service/internal/model"
	"github.com/mmeshcher/invoice-service/internal/money"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrUserExists возвращается при попытке создать пользователя с уже занятым email.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
)

var retryDelays = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет только операции чтения: повтор записи мог бы создать дубликат счёта.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; ; i++ {
		err = fn()
		if err == nil || i >= len(retryDelays) || !isRetryable(err) {
			return err
		}

		timer := time.NewTimer(retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, u model.NewUser) (*model.User, error) {
	created := model.User{
		CompanyName:  u.CompanyName,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (company_name, name, email, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		u.CompanyName, u.Name, u.Email, u.PasswordHash,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return nil, model.NewStorageError("create user", err)
	}

	return &created, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, company_name, name, email, password_hash, created_at, updated_at
			 FROM users WHERE email = $1`,
			email,
		).Scan(&u.ID, &u.CompanyName, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, model.NewStorageError("get user", err)
	}

	return &u, nil
}

const invoiceColumns = `id, user_id, issue_date, payment_amount, fee, fee_rate,
	tax_amount, tax_rate, total_amount, payment_due_date, created_at, updated_at`

// InsertInvoice сохраняет счёт и возвращает его вместе с назначенными id и временными метками.
func (r *PostgresRepository) InsertInvoice(ctx context.Context, inv model.PendingInvoice) (*model.Invoice, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO invoices (user_id, issue_date, payment_amount, fee, fee_rate,
		                       tax_amount, tax_rate, total_amount, payment_due_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+invoiceColumns,
		inv.OwnerID,
		inv.IssueDate,
		inv.PaymentAmount.Decimal(),
		inv.Fee.Decimal(),
		inv.FeeRate,
		inv.TaxAmount.Decimal(),
		inv.TaxRate,
		inv.TotalAmount.Decimal(),
		inv.PaymentDueDate,
	)

	created, err := scanInvoice(row)
	if err != nil {
		return nil, model.NewStorageError("insert invoice", err)
	}

	return created, nil
}

// QueryInvoices возвращает страницу счетов владельца, отфильтрованных по сроку оплаты,
// и общее количество подходящих счетов. Оба запроса выполняются в одной транзакции.
func (r *PostgresRepository) QueryInvoices(ctx context.Context, ownerID int64, dr model.DateRange, offset, limit int) ([]model.Invoice, int64, error) {
	where, args := invoiceFilter(ownerID, dr)

	var (
		invoices []model.Invoice
		total    int64
	)

	err := withRetry(ctx, func() error {
		invoices = nil

		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("count invoices: %w", err)
		}

		pageArgs := append(append([]any{}, args...), limit, offset)
		rows, err := tx.Query(ctx,
			fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`,
				invoiceColumns, where, len(args)+1, len(args)+2),
			pageArgs...,
		)
		if err != nil {
			return fmt.Errorf("select invoices: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			inv, err := scanInvoice(rows)
			if err != nil {
				return fmt.Errorf("scan invoice: %w", err)
			}
			invoices = append(invoices, *inv)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, 0, model.NewStorageError("query invoices", err)
	}

	return invoices, total, nil
}

func invoiceFilter(ownerID int64, dr model.DateRange) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{ownerID}

	if dr.Start != nil {
		args = append(args, *dr.Start)
		conds = append(conds, fmt.Sprintf("payment_due_date >= $%d", len(args)))
	}
	if dr.End != nil {
		args = append(args, *dr.End)
		conds = append(conds, fmt.Sprintf("payment_due_date <= $%d", len(args)))
	}

	return strings.Join(conds, " AND "), args
}

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var (
		inv                                        model.Invoice
		paymentAmount, fee, taxAmount, totalAmount decimal.Decimal
	)

	err := row.Scan(
		&inv.ID,
		&inv.OwnerID,
		&inv.IssueDate,
		&paymentAmount,
		&fee,
		&inv.FeeRate,
		&taxAmount,
		&inv.TaxRate,
		&totalAmount,
		&inv.PaymentDueDate,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.PaymentAmount = money.FromDecimal(paymentAmount)
	inv.Fee = money.FromDecimal(fee)
	inv.TaxAmount = money.FromDecimal(taxAmount)
	inv.TotalAmount = money.FromDecimal(totalAmount)

	return &inv, nil
}
