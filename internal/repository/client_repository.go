package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-io/support-service/internal/domain"
)

// ClientRepository defines persistence access for clients.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	Update(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	List(ctx context.Context) ([]domain.Client, error)
	Delete(ctx context.Context, id string) error
}

type clientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository returns a Postgres-backed implementation.
func NewClientRepository(pool *pgxpool.Pool) ClientRepository {
	return &clientRepository{pool: pool}
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	const query = `
        INSERT INTO clients (name, company, contact_email, user_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id`

	return r.pool.QueryRow(ctx, query,
		client.Name,
		client.Company,
		client.ContactEmail,
		client.UserID,
	).Scan(&client.ID)
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	const query = `
        UPDATE clients SET name=$1, company=$2, contact_email=$3, user_id=$4
        WHERE id=$5`

	cmd, err := r.pool.Exec(ctx, query,
		client.Name,
		client.Company,
		client.ContactEmail,
		client.UserID,
		client.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	const query = `
        SELECT id, name, company, contact_email, user_id
        FROM clients WHERE id=$1`

	var client domain.Client
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&client.ID,
		&client.Name,
		&client.Company,
		&client.ContactEmail,
		&client.UserID,
	); err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context) ([]domain.Client, error) {
	const query = `
        SELECT id, name, company, contact_email, user_id
        FROM clients ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Client
	for rows.Next() {
		var client domain.Client
		if err := rows.Scan(
			&client.ID,
			&client.Name,
			&client.Company,
			&client.ContactEmail,
			&client.UserID,
		); err != nil {
			return nil, err
		}
		result = append(result, client)
	}
	return result, rows.Err()
}

func (r *clientRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
