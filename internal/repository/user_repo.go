package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ikiraha-api/internal/model"
	"ikiraha-api/internal/util"
)

const (
	uniqueViolation = "23505"

	emailConstraint = "users_email_key"
	phoneConstraint = "users_phone_key"
)

const userColumns = `u.id, u.uuid::text, u.role_id, r.name, u.email, u.phone, u.password_hash,
	u.first_name, u.last_name, u.date_of_birth, u.gender, u.is_active,
	u.last_login_at, u.created_at, u.updated_at`

const userFrom = `FROM users u JOIN user_roles r ON r.id = u.role_id`

// UserRepository is the Postgres credential store.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.UUID, &u.RoleID, &u.RoleName, &u.Email, &u.Phone, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.DateOfBirth, &u.Gender, &u.IsActive,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UserRepository) findOne(ctx context.Context, what string, where string, arg any) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by %s: %w", what, err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, "email", "u.email = lower($1)", strings.TrimSpace(email))
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (model.User, error) {
	return r.findOne(ctx, "phone", "u.phone = $1", phone)
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (model.User, error) {
	return r.findOne(ctx, "id", "u.id = $1", id)
}

// FindRoleByName only returns active roles.
func (r *UserRepository) FindRoleByName(ctx context.Context, name string) (model.Role, error) {
	var role model.Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, is_active FROM user_roles WHERE name = $1 AND is_active = TRUE`, name).
		Scan(&role.ID, &role.Name, &role.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Role{}, model.ErrRoleNotFound
	}
	if err != nil {
		return model.Role{}, fmt.Errorf("find role by name: %w", err)
	}
	return role, nil
}

// InsertUser writes the user in its own transaction and returns the new id.
// Unique violations come back as ErrEmailTaken or ErrPhoneTaken.
func (r *UserRepository) InsertUser(ctx context.Context, u model.User) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin insert user: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO users (uuid, role_id, email, phone, password_hash, first_name, last_name,
		                    date_of_birth, gender, is_active, created_at, updated_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		u.UUID, u.RoleID, u.Email, u.Phone, u.PasswordHash, u.FirstName, u.LastName,
		u.DateOfBirth, u.Gender, u.IsActive, u.CreatedAt, u.UpdatedAt).Scan(&id)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return 0, mapped
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return 0, mapped
		}
		return 0, fmt.Errorf("commit insert user: %w", err)
	}
	return id, nil
}

// UpdateFields applies the non-nil columns of update and bumps updated_at.
func (r *UserRepository) UpdateFields(ctx context.Context, id int64, update model.ProfileUpdate, at time.Time) error {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.FirstName != nil {
		add("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		add("last_name", *update.LastName)
	}
	if update.Phone != nil {
		add("phone", *update.Phone)
	}
	if update.DateOfBirth != nil {
		add("date_of_birth", *update.DateOfBirth)
	}
	if update.Gender != nil {
		add("gender", *update.Gender)
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", at)

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update user fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, at)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, query model.UserQuery) ([]model.User, int, error) {
	offset, err := util.Offset(query.Page, query.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", model.ErrInvalidInput, err)
	}

	where := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if role := strings.TrimSpace(query.Role); role != "" {
		args = append(args, role)
		where = append(where, fmt.Sprintf("r.name = $%d", len(args)))
	}
	switch strings.TrimSpace(query.Status) {
	case "active":
		where = append(where, "u.is_active = TRUE")
	case "inactive":
		where = append(where, "u.is_active = FALSE")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+userFrom+" "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	args = append(args, query.Limit, offset)
	dataQuery := fmt.Sprintf("SELECT %s %s %s ORDER BY u.created_at DESC, u.id DESC LIMIT $%d OFFSET $%d",
		userColumns, userFrom, whereClause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}

	switch pgErr.ConstraintName {
	case emailConstraint:
		return model.ErrEmailTaken
	case phoneConstraint:
		return model.ErrPhoneTaken
	default:
		return fmt.Errorf("unique violation on %s: %w", pgErr.ConstraintName, model.ErrDuplicate)
	}
}
