// Package repository содержит хранилища сеансов консоли.
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

	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/permission"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrSessionNotFound возвращается, если сеанс отсутствует в хранилище.
var ErrSessionNotFound = errors.New("session not found")

// PostgresRepository хранит сеансы в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт репозиторий и инициализирует схему БД через миграции.
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

var retryDelays = []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil || !isRetryable(err) || i == len(retryDelays) {
			return err
		}

		timer := time.NewTimer(retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected ||
			pgerrcode.IsConnectionException(pgErr.Code)
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Save сохраняет сеанс. Повторный вход заменяет запись целиком.
func (r *PostgresRepository) Save(ctx context.Context, s *model.Session) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO console_sessions (id, user_id, full_name, email, role, permissions, token, token_expiry, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET
			     user_id = EXCLUDED.user_id,
			     full_name = EXCLUDED.full_name,
			     email = EXCLUDED.email,
			     role = EXCLUDED.role,
			     permissions = EXCLUDED.permissions,
			     token = EXCLUDED.token,
			     token_expiry = EXCLUDED.token_expiry,
			     created_at = EXCLUDED.created_at`,
			s.ID, s.UserID, s.FullName, s.Email, string(s.Role), s.Permissions.Strings(), s.Token, s.TokenExpiry, s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	})
}

// Get возвращает сеанс по идентификатору.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	var (
		s     model.Session
		role  string
		perms []string
	)

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id::text, user_id, full_name, email, role, permissions, token, token_expiry, created_at
			 FROM console_sessions
			 WHERE id = $1`,
			id,
		).Scan(&s.ID, &s.UserID, &s.FullName, &s.Email, &role, &perms, &s.Token, &s.TokenExpiry, &s.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation {
			// Идентификатор не является UUID, такого сеанса быть не может.
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	s.Role = model.Role(role)
	s.Permissions, _ = permission.ParseSet(perms)
	return &s, nil
}

// Delete удаляет сеанс.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	err := r.withRetry(ctx, func() error {
		var execErr error
		tag, execErr = r.pool.Exec(ctx, `DELETE FROM console_sessions WHERE id::text = $1`, id)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteExpired удаляет сеансы, срок действия которых истёк до указанного момента.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`DELETE FROM console_sessions WHERE token_expiry <= $1 RETURNING id::text`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("delete expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}
