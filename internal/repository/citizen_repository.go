package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civic-kit/queue-service/internal/domain"
)

// CitizenRepository manages citizen persistence.
// GetByNationalID returns (nil, nil) when no citizen matches.
type CitizenRepository interface {
	Create(ctx context.Context, citizen *domain.Citizen) error
	Update(ctx context.Context, citizen *domain.Citizen) error
	GetByID(ctx context.Context, id string) (*domain.Citizen, error)
	GetByNationalID(ctx context.Context, nationalID string) (*domain.Citizen, error)
	List(ctx context.Context, limit, offset int) ([]domain.Citizen, error)
	Delete(ctx context.Context, id string) error
}

type citizenRepository struct {
	pool *pgxpool.Pool
}

// NewCitizenRepository builds the repository.
func NewCitizenRepository(pool *pgxpool.Pool) CitizenRepository {
	return &citizenRepository{pool: pool}
}

func (r *citizenRepository) Create(ctx context.Context, citizen *domain.Citizen) error {
	const query = `
        INSERT INTO citizens (first_name, last_name, national_id, phone_number)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		citizen.FirstName,
		citizen.LastName,
		citizen.NationalID,
		citizen.PhoneNumber,
	).Scan(&citizen.ID, &citizen.CreatedAt, &citizen.UpdatedAt)
}

func (r *citizenRepository) Update(ctx context.Context, citizen *domain.Citizen) error {
	const query = `
        UPDATE citizens SET first_name=$1, last_name=$2, national_id=$3, phone_number=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		citizen.FirstName,
		citizen.LastName,
		citizen.NationalID,
		citizen.PhoneNumber,
		citizen.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *citizenRepository) GetByID(ctx context.Context, id string) (*domain.Citizen, error) {
	const query = `
        SELECT id, first_name, last_name, national_id, phone_number, created_at, updated_at
        FROM citizens WHERE id=$1`
	var citizen domain.Citizen
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&citizen.ID,
		&citizen.FirstName,
		&citizen.LastName,
		&citizen.NationalID,
		&citizen.PhoneNumber,
		&citizen.CreatedAt,
		&citizen.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &citizen, nil
}

func (r *citizenRepository) GetByNationalID(ctx context.Context, nationalID string) (*domain.Citizen, error) {
	const query = `
        SELECT id, first_name, last_name, national_id, phone_number, created_at, updated_at
        FROM citizens WHERE national_id=$1`
	var citizen domain.Citizen
	if err := r.pool.QueryRow(ctx, query, nationalID).Scan(
		&citizen.ID,
		&citizen.FirstName,
		&citizen.LastName,
		&citizen.NationalID,
		&citizen.PhoneNumber,
		&citizen.CreatedAt,
		&citizen.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &citizen, nil
}

func (r *citizenRepository) List(ctx context.Context, limit, offset int) ([]domain.Citizen, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, first_name, last_name, national_id, phone_number, created_at, updated_at
        FROM citizens ORDER BY created_at ASC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Citizen
	for rows.Next() {
		var citizen domain.Citizen
		if err := rows.Scan(
			&citizen.ID,
			&citizen.FirstName,
			&citizen.LastName,
			&citizen.NationalID,
			&citizen.PhoneNumber,
			&citizen.CreatedAt,
			&citizen.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, citizen)
	}
	return result, rows.Err()
}

func (r *citizenRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM citizens WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
