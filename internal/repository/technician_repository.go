package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-io/support-service/internal/domain"
)

// TechnicianRepository defines persistence access for technicians.
type TechnicianRepository interface {
	Create(ctx context.Context, technician *domain.Technician) error
	Update(ctx context.Context, technician *domain.Technician) error
	GetByID(ctx context.Context, id string) (*domain.Technician, error)
	List(ctx context.Context) ([]domain.Technician, error)
	Delete(ctx context.Context, id string) error
}

type technicianRepository struct {
	pool *pgxpool.Pool
}

// NewTechnicianRepository returns a Postgres-backed implementation.
func NewTechnicianRepository(pool *pgxpool.Pool) TechnicianRepository {
	return &technicianRepository{pool: pool}
}

func (r *technicianRepository) Create(ctx context.Context, technician *domain.Technician) error {
	const query = `
        INSERT INTO technicians (name, email, phone, specialization, availability)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`

	return r.pool.QueryRow(ctx, query,
		technician.Name,
		technician.Email,
		technician.Phone,
		technician.Specialization,
		technician.Availability,
	).Scan(&technician.ID)
}

func (r *technicianRepository) Update(ctx context.Context, technician *domain.Technician) error {
	const query = `
        UPDATE technicians SET name=$1, email=$2, phone=$3, specialization=$4, availability=$5
        WHERE id=$6`

	cmd, err := r.pool.Exec(ctx, query,
		technician.Name,
		technician.Email,
		technician.Phone,
		technician.Specialization,
		technician.Availability,
		technician.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *technicianRepository) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	const query = `
        SELECT id, name, email, phone, specialization, availability
        FROM technicians WHERE id=$1`

	var technician domain.Technician
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&technician.ID,
		&technician.Name,
		&technician.Email,
		&technician.Phone,
		&technician.Specialization,
		&technician.Availability,
	); err != nil {
		return nil, err
	}
	return &technician, nil
}

func (r *technicianRepository) List(ctx context.Context) ([]domain.Technician, error) {
	const query = `
        SELECT id, name, email, phone, specialization, availability
        FROM technicians ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Technician
	for rows.Next() {
		var technician domain.Technician
		if err := rows.Scan(
			&technician.ID,
			&technician.Name,
			&technician.Email,
			&technician.Phone,
			&technician.Specialization,
			&technician.Availability,
		); err != nil {
			return nil, err
		}
		result = append(result, technician)
	}
	return result, rows.Err()
}

func (r *technicianRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM technicians WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
