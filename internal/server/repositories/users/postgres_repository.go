package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/dmitrijs2005/shareplaces/internal/dbx"
	"github.com/dmitrijs2005/shareplaces/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// uniqueViolation is the SQLSTATE raised by the users_email_key index.
const uniqueViolation = "23505"

const selectUser = `SELECT id, username, email, password, image_url, image_key, place_ids::text[], created_at FROM users`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new user. Email uniqueness is enforced by the unique index,
// so two concurrent registrations cannot both succeed.
func (r *PostgresRepository) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, email, password, image_url, image_key)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.PasswordHash, user.ImageURL, user.ImageKey).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if user.PlaceIDs == nil {
		user.PlaceIDs = []string{}
	}
	return user, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	result := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// AddPlace appends placeID to the user's list in a single statement, so
// concurrent appends serialise on the row lock instead of overwriting each
// other.
func (r *PostgresRepository) AddPlace(ctx context.Context, userID, placeID string) error {
	return r.updatePlaces(ctx,
		`UPDATE users SET place_ids = array_append(place_ids, $2::uuid) WHERE id = $1`, userID, placeID)
}

func (r *PostgresRepository) RemovePlace(ctx context.Context, userID, placeID string) error {
	return r.updatePlaces(ctx,
		`UPDATE users SET place_ids = array_remove(place_ids, $2::uuid) WHERE id = $1`, userID, placeID)
}

func (r *PostgresRepository) updatePlaces(ctx context.Context, query, userID, placeID string) error {
	res, err := r.db.ExecContext(ctx, query, userID, placeID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.UserName, &u.Email, &u.PasswordHash, &u.ImageURL, &u.ImageKey,
		pgtype.NewMap().SQLScanner(&u.PlaceIDs), &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if u.PlaceIDs == nil {
		u.PlaceIDs = []string{}
	}
	return u, nil
}
