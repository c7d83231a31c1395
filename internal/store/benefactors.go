package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/elderaid/elderaid/internal/model"
)

// CreateBenefactor inserts a benefactor and returns the stored row.
func CreateBenefactor(ctx context.Context, q Querier, b model.Benefactor) (*model.Benefactor, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO benefactors (name, email, phone, lat, lng) VALUES (?, ?, ?, ?, ?)`,
		b.Name, b.Email, b.Phone, b.Lat, b.Lng,
	)
	if err != nil {
		return nil, fmt.Errorf("creating benefactor: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting benefactor id: %w", err)
	}
	return GetBenefactor(ctx, q, id)
}

// GetBenefactor returns a benefactor by ID.
func GetBenefactor(ctx context.Context, q Querier, id int64) (*model.Benefactor, error) {
	b := &model.Benefactor{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, email, phone, lat, lng, created_at FROM benefactors WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Email, &b.Phone, &b.Lat, &b.Lng, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting benefactor: %w", err)
	}
	return b, nil
}
