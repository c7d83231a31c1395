package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/elderaid/elderaid/internal/model"
)

// CreateCampaign inserts a campaign and its images, keeping the images in the
// order given. Run it inside a transaction so a failed image insert leaves no
// half-created campaign.
func CreateCampaign(ctx context.Context, q Querier, c *model.Campaign, imageURLs []string) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO campaigns (name, requirement, beneficiary_type, start_date, end_date, institution_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.Requirement, c.BeneficiaryType, sqlTime(c.StartDate), sqlTime(c.EndDate), c.InstitutionID,
	)
	if err != nil {
		return 0, fmt.Errorf("creating campaign: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting campaign id: %w", err)
	}

	for pos, url := range imageURLs {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO campaign_images (campaign_id, position, image_url) VALUES (?, ?, ?)`,
			id, pos, url,
		); err != nil {
			return 0, fmt.Errorf("adding campaign image %d: %w", pos, err)
		}
	}

	return id, nil
}

// GetCampaign returns a campaign with its images, or nil if it does not exist.
func GetCampaign(ctx context.Context, q Querier, id int64) (*model.Campaign, error) {
	c := &model.Campaign{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, requirement, beneficiary_type, start_date, end_date, institution_id, created_at
		 FROM campaigns WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Requirement, &c.BeneficiaryType, &c.StartDate, &c.EndDate, &c.InstitutionID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting campaign: %w", err)
	}

	images, err := listImages(ctx, q, `WHERE ci.campaign_id = ?`, id)
	if err != nil {
		return nil, err
	}
	c.Images = images[id]
	if c.Images == nil {
		c.Images = []model.CampaignImage{}
	}
	return c, nil
}

// ListCampaigns returns campaigns with their images. An institutionID of zero
// lists every campaign and joins the owning institution summary.
func ListCampaigns(ctx context.Context, q Querier, institutionID int64) ([]model.Campaign, error) {
	query := `SELECT c.id, c.name, c.requirement, c.beneficiary_type, c.start_date, c.end_date,
	                 c.institution_id, c.created_at,
	                 i.name, i.phone, i.address, i.lat, i.lng, i.image_url
	          FROM campaigns c
	          JOIN institutions i ON i.id = c.institution_id`
	var args []any
	imageWhere := ``
	if institutionID > 0 {
		query += ` WHERE c.institution_id = ?`
		args = append(args, institutionID)
		imageWhere = `WHERE c.institution_id = ?`
	}
	query += ` ORDER BY c.id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		var c model.Campaign
		var inst model.InstitutionSummary
		if err := rows.Scan(&c.ID, &c.Name, &c.Requirement, &c.BeneficiaryType, &c.StartDate, &c.EndDate,
			&c.InstitutionID, &c.CreatedAt,
			&inst.Name, &inst.Phone, &inst.Address, &inst.Lat, &inst.Lng, &inst.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning campaign: %w", err)
		}
		if institutionID == 0 {
			inst.ID = c.InstitutionID
			c.Institution = &inst
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	rows.Close()

	images, err := listImages(ctx, q, imageWhere, args...)
	if err != nil {
		return nil, err
	}
	for i := range campaigns {
		campaigns[i].Images = images[campaigns[i].ID]
		if campaigns[i].Images == nil {
			campaigns[i].Images = []model.CampaignImage{}
		}
	}
	return campaigns, nil
}

// listImages returns images grouped by campaign ID in slideshow order.
func listImages(ctx context.Context, q Querier, where string, args ...any) (map[int64][]model.CampaignImage, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ci.campaign_id, ci.id, ci.position, ci.image_url
		 FROM campaign_images ci
		 JOIN campaigns c ON c.id = ci.campaign_id `+where+`
		 ORDER BY ci.campaign_id, ci.position`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing campaign images: %w", err)
	}
	defer rows.Close()

	images := make(map[int64][]model.CampaignImage)
	for rows.Next() {
		var campaignID int64
		var img model.CampaignImage
		if err := rows.Scan(&campaignID, &img.ID, &img.Position, &img.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning campaign image: %w", err)
		}
		images[campaignID] = append(images[campaignID], img)
	}
	return images, rows.Err()
}

// CountCampaignDonations returns how many donations reference a campaign.
func CountCampaignDonations(ctx context.Context, q Querier, campaignID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM donations WHERE campaign_id = ?`, campaignID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting campaign donations: %w", err)
	}
	return n, nil
}

// DeleteCampaign removes a campaign and its images. Returns false if the
// campaign did not exist.
func DeleteCampaign(ctx context.Context, q Querier, id int64) (bool, error) {
	if _, err := q.ExecContext(ctx, `DELETE FROM campaign_images WHERE campaign_id = ?`, id); err != nil {
		return false, fmt.Errorf("deleting campaign images: %w", err)
	}

	result, err := q.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting campaign: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting campaign: %w", err)
	}
	return n > 0, nil
}

// SetCampaignEndDate moves a campaign's end date, which is how a campaign is
// closed early.
func SetCampaignEndDate(ctx context.Context, q Querier, id int64, end time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE campaigns SET end_date = ? WHERE id = ?`, sqlTime(end), id,
	)
	if err != nil {
		return fmt.Errorf("setting campaign end date: %w", err)
	}
	return nil
}
