package model

import (
	"fmt"
	"time"
)

// Institution is the organisation account that runs campaigns.
type Institution struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	NIT                string    `json:"nit"`
	MainRepresentative string    `json:"main_representative"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	Phone              string    `json:"phone"`
	Address            string    `json:"address"`
	Lat                float64   `json:"lat"`
	Lng                float64   `json:"lng"`
	ImageURL           string    `json:"image_url"`
	CreatedAt          time.Time `json:"created_at"`
}

// InstitutionSummary is the public subset of institution fields.
type InstitutionSummary struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	Address  string  `json:"address"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	ImageURL string  `json:"image_url"`
}

// Summary returns the public fields of i.
func (i *Institution) Summary() InstitutionSummary {
	return InstitutionSummary{
		ID:       i.ID,
		Name:     i.Name,
		Phone:    i.Phone,
		Address:  i.Address,
		Lat:      i.Lat,
		Lng:      i.Lng,
		ImageURL: i.ImageURL,
	}
}

// MinPasswordLength is the shortest accepted institution password.
const MinPasswordLength = 6

// ValidatePassword checks the password policy for institution accounts.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, MinPasswordLength)
	}
	return nil
}
