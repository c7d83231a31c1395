package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/elderaid/elderaid/internal/model"
)

const donationColumns = `d.id, d.description, d.quantity, d.donation_date, d.status, d.anonymous,
	d.campaign_id, d.benefactor_id, d.institution_id, d.mirror_id, d.updated_at`

// CreateDonation inserts a donation. d.MirrorID must be set by the caller and
// never changes afterwards.
func CreateDonation(ctx context.Context, q Querier, d *model.Donation) (int64, error) {
	if d.MirrorID == "" {
		return 0, fmt.Errorf("creating donation: %w: mirror id required", model.ErrInvalidArgument)
	}
	status := d.Status
	if status == "" {
		status = model.StatusToCollect
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO donations (description, quantity, donation_date, status, anonymous,
		                        campaign_id, benefactor_id, institution_id, mirror_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Description, d.Quantity, sqlTime(d.DonationDate), string(status), d.Anonymous,
		d.CampaignID, d.BenefactorID, d.InstitutionID, d.MirrorID,
	)
	if err != nil {
		return 0, fmt.Errorf("creating donation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting donation id: %w", err)
	}
	return id, nil
}

// GetDonation returns a donation by ID, or nil if it does not exist.
func GetDonation(ctx context.Context, q Querier, id int64) (*model.Donation, error) {
	d := &model.Donation{}
	var status string
	err := q.QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donations d WHERE d.id = ?`, id,
	).Scan(&d.ID, &d.Description, &d.Quantity, &d.DonationDate, &status, &d.Anonymous,
		&d.CampaignID, &d.BenefactorID, &d.InstitutionID, &d.MirrorID, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting donation: %w", err)
	}
	d.Status = model.DonationStatus(status)
	return d, nil
}

// UpdateDonationStatus overwrites a donation's status unconditionally.
// Returns false if no donation has that ID.
func UpdateDonationStatus(ctx context.Context, q Querier, id int64, status model.DonationStatus) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE donations SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), id,
	)
	if err != nil {
		return false, fmt.Errorf("updating donation status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating donation status: %w", err)
	}
	return n > 0, nil
}

// ListDonations returns an institution's donations with campaign and
// benefactor summaries, newest first.
func ListDonations(ctx context.Context, q Querier, institutionID int64, f model.DonationFilter) ([]model.Donation, error) {
	query := `SELECT ` + donationColumns + `,
	                 c.name, c.requirement,
	                 b.name, b.email, b.lat, b.lng
	          FROM donations d
	          JOIN campaigns c ON c.id = d.campaign_id
	          JOIN benefactors b ON b.id = d.benefactor_id
	          WHERE d.institution_id = ?`
	args := []any{institutionID}

	if f.Status != "" {
		query += ` AND d.status = ?`
		args = append(args, string(f.Status))
	}
	// instr keeps the match case-sensitive, like a plain substring test.
	if f.Campaign != "" {
		query += ` AND instr(c.name, ?) > 0`
		args = append(args, f.Campaign)
	}
	if f.Benefactor != "" {
		query += ` AND instr(b.name, ?) > 0`
		args = append(args, f.Benefactor)
	}
	if f.From != nil {
		query += ` AND d.donation_date >= ?`
		args = append(args, sqlTime(*f.From))
	}
	if f.To != nil {
		query += ` AND d.donation_date <= ?`
		args = append(args, sqlTime(*f.To))
	}
	query += ` ORDER BY d.donation_date DESC, d.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing donations: %w", err)
	}
	defer rows.Close()

	var donations []model.Donation
	for rows.Next() {
		var d model.Donation
		var status string
		var c model.CampaignSummary
		var b model.BenefactorSummary
		if err := rows.Scan(&d.ID, &d.Description, &d.Quantity, &d.DonationDate, &status, &d.Anonymous,
			&d.CampaignID, &d.BenefactorID, &d.InstitutionID, &d.MirrorID, &d.UpdatedAt,
			&c.Name, &c.Requirement,
			&b.Name, &b.Email, &b.Lat, &b.Lng); err != nil {
			return nil, fmt.Errorf("scanning donation: %w", err)
		}
		d.Status = model.DonationStatus(status)
		d.Campaign = &c
		d.Benefactor = &b
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// ListAllDonations returns every donation without joins, in ID order.
func ListAllDonations(ctx context.Context, q Querier) ([]model.Donation, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+donationColumns+` FROM donations d ORDER BY d.id`)
	if err != nil {
		return nil, fmt.Errorf("listing all donations: %w", err)
	}
	defer rows.Close()

	var donations []model.Donation
	for rows.Next() {
		var d model.Donation
		var status string
		if err := rows.Scan(&d.ID, &d.Description, &d.Quantity, &d.DonationDate, &status, &d.Anonymous,
			&d.CampaignID, &d.BenefactorID, &d.InstitutionID, &d.MirrorID, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning donation: %w", err)
		}
		d.Status = model.DonationStatus(status)
		donations = append(donations, d)
	}
	return donations, rows.Err()
}
