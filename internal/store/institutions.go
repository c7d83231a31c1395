package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/elderaid/elderaid/internal/model"
)

const institutionColumns = `id, name, nit, main_representative, email, password_hash,
	phone, address, lat, lng, image_url, created_at`

// CreateInstitution inserts a new institution. PasswordHash must already be set.
func CreateInstitution(ctx context.Context, q Querier, inst *model.Institution) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO institutions (name, nit, main_representative, email, password_hash, phone, address, lat, lng, image_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.Name, inst.NIT, inst.MainRepresentative, inst.Email, inst.PasswordHash,
		inst.Phone, inst.Address, inst.Lat, inst.Lng, inst.ImageURL,
	)
	if err != nil {
		return 0, fmt.Errorf("creating institution: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting institution id: %w", err)
	}
	return id, nil
}

// GetInstitution returns an institution by ID.
func GetInstitution(ctx context.Context, q Querier, id int64) (*model.Institution, error) {
	return scanInstitution(q.QueryRowContext(ctx,
		`SELECT `+institutionColumns+` FROM institutions WHERE id = ?`, id))
}

// GetInstitutionByEmail returns an institution by login email.
func GetInstitutionByEmail(ctx context.Context, q Querier, email string) (*model.Institution, error) {
	return scanInstitution(q.QueryRowContext(ctx,
		`SELECT `+institutionColumns+` FROM institutions WHERE email = ?`, email))
}

func scanInstitution(row *sql.Row) (*model.Institution, error) {
	inst := &model.Institution{}
	err := row.Scan(&inst.ID, &inst.Name, &inst.NIT, &inst.MainRepresentative, &inst.Email,
		&inst.PasswordHash, &inst.Phone, &inst.Address, &inst.Lat, &inst.Lng, &inst.ImageURL, &inst.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting institution: %w", err)
	}
	return inst, nil
}

// ListInstitutions returns every institution ordered by ID.
func ListInstitutions(ctx context.Context, q Querier) ([]model.Institution, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+institutionColumns+` FROM institutions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing institutions: %w", err)
	}
	defer rows.Close()

	var institutions []model.Institution
	for rows.Next() {
		var inst model.Institution
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.NIT, &inst.MainRepresentative, &inst.Email, &inst.PasswordHash,
			&inst.Phone, &inst.Address, &inst.Lat, &inst.Lng, &inst.ImageURL, &inst.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning institution: %w", err)
		}
		institutions = append(institutions, inst)
	}
	return institutions, rows.Err()
}
