package model

import "time"

// Course is the catalog's view of a purchasable course. The purchase flow only reads it.
type Course struct {
	ID           string    `gorm:"primaryKey;size:64;not null" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Highlights   []string  `gorm:"serializer:json" json:"highlights"`
	MonthlyPrice int64     `gorm:"not null" json:"monthly_price"` // major units
	Currency     string    `gorm:"size:8;not null" json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var countryByCurrency = map[string]string{
	"INR": "India",
	"USD": "United States",
	"AED": "United Arab Emirates",
	"GBP": "United Kingdom",
}

// CountryForCurrency gives the backend its pricing region. Unknown currencies fall back to India.
func CountryForCurrency(currency string) string {
	if country, ok := countryByCurrency[currency]; ok {
		return country
	}
	return "India"
}
