package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SaveImage stores processed image bytes under id.
func SaveImage(ctx context.Context, q Querier, id string, data []byte, mime string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO images (id, data, mime) VALUES (?, ?, ?)`, id, data, mime,
	)
	if err != nil {
		return fmt.Errorf("saving image: %w", err)
	}
	return nil
}

// GetImage returns image bytes and MIME type, or nil data if absent.
func GetImage(ctx context.Context, q Querier, id string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := q.QueryRowContext(ctx,
		`SELECT data, mime FROM images WHERE id = ?`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting image: %w", err)
	}
	return data, mime, nil
}
