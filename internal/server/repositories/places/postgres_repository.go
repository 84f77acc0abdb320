package places

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/dmitrijs2005/shareplaces/internal/dbx"
	"github.com/dmitrijs2005/shareplaces/internal/server/models"
)

const placeColumns = `id, title, description, address, lat, lng, image_url, image_key, creator_id, created_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, place *models.Place) (*models.Place, error) {
	query :=
		`INSERT INTO places (title, description, address, lat, lng, image_url, image_key, creator_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		place.Title, place.Description, place.Address, place.Location.Lat, place.Location.Lng,
		place.ImageURL, place.ImageKey, place.CreatorID).Scan(&place.ID, &place.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return place, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Place, error) {
	query := `SELECT ` + placeColumns + ` FROM places WHERE id = $1`

	p, err := scanPlace(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) FindByIDWithCreator(ctx context.Context, id string) (*models.PlaceWithCreator, error) {
	query :=
		`SELECT p.id, p.title, p.description, p.address, p.lat, p.lng, p.image_url, p.image_key, p.creator_id, p.created_at,
		        u.id, u.username, u.email, u.image_url
		 FROM places p
		 JOIN users u ON u.id = p.creator_id
		 WHERE p.id = $1`

	v := &models.PlaceWithCreator{}
	p := &v.Place
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.Address, &p.Location.Lat, &p.Location.Lng,
		&p.ImageURL, &p.ImageKey, &p.CreatorID, &p.CreatedAt,
		&v.Creator.ID, &v.Creator.UserName, &v.Creator.Email, &v.Creator.ImageURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) FindByCreator(ctx context.Context, userID string) ([]*models.Place, error) {
	query := `SELECT ` + placeColumns + ` FROM places WHERE creator_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select places: %w", err)
	}
	defer rows.Close()

	result := []*models.Place{}
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateFields changes title and/or description; nil fields keep their
// stored value.
func (r *PostgresRepository) UpdateFields(ctx context.Context, id string, upd models.PlaceUpdate) (*models.Place, error) {
	query :=
		`UPDATE places
		 SET title = COALESCE($2, title), description = COALESCE($3, description)
		 WHERE id = $1
		 RETURNING ` + placeColumns

	p, err := scanPlace(r.db.QueryRowContext(ctx, query, id, upd.Title, upd.Description))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM places WHERE id = $1`, id)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanPlace(row scanner) (*models.Place, error) {
	p := &models.Place{}
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Address, &p.Location.Lat, &p.Location.Lng,
		&p.ImageURL, &p.ImageKey, &p.CreatorID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
