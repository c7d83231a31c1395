// Package service holds the application operations behind the API: the
// donation status lifecycle, campaign management and institution accounts.
// Each relational change records its mirror write in the same transaction.
package service

import (
	"strconv"
	"time"

	"github.com/elderaid/elderaid/internal/model"
)

// mirrorTime is the layout used for dates in mirror documents.
const mirrorTime = time.RFC3339

func institutionDoc(i *model.Institution) map[string]any {
	return map[string]any{
		"id":        i.ID,
		"name":      i.Name,
		"NIT":       i.NIT,
		"phone":     i.Phone,
		"address":   i.Address,
		"lat":       i.Lat,
		"lng":       i.Lng,
		"image_url": i.ImageURL,
	}
}

func campaignDoc(c *model.Campaign) map[string]any {
	images := make([]map[string]any, 0, len(c.Images))
	for _, img := range c.Images {
		images = append(images, map[string]any{
			"id":        img.ID,
			"position":  img.Position,
			"image_url": img.ImageURL,
		})
	}
	return map[string]any{
		"name":             c.Name,
		"requirement":      c.Requirement,
		"beneficiary_type": c.BeneficiaryType,
		"start_date":       c.StartDate.UTC().Format(mirrorTime),
		"end_date":         c.EndDate.UTC().Format(mirrorTime),
		"institution_id":   c.InstitutionID,
		"campaign_images":  images,
	}
}

func donationDoc(d *model.Donation) map[string]any {
	return map[string]any{
		"id":             d.ID,
		"description":    d.Description,
		"quantity":       d.Quantity,
		"donation_date":  d.DonationDate.UTC().Format(mirrorTime),
		"status":         string(d.Status),
		"anonymous":      d.Anonymous,
		"campaign_id":    d.CampaignID,
		"benefactor_id":  d.BenefactorID,
		"institution_id": d.InstitutionID,
	}
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}
