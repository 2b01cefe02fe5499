package data

import (
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/grantpath/grantpath/src/dataset"
)

// GrantRecord is the grants table row as stored. Tag columns hold
// semicolon-delimited label lists.
type GrantRecord struct {
	ID                  uint64  `gorm:"primaryKey"`
	FunderName          string  `gorm:"size:255;index"`
	RecipName           string  `gorm:"size:255"`
	AmountUSD           float64 `gorm:"column:amount_usd"`
	GrantSubjectTran    string  `gorm:"size:512"`
	GrantPopulationTran string  `gorm:"size:512"`
	GrantGeoAreaTran    string  `gorm:"size:512"`
	YearIssued          int
}

func (GrantRecord) TableName() string { return "grants" }

// LoadGrants reads the full grants table into an immutable dataset
// snapshot. Rows violating the record invariants are skipped with a log
// line rather than failing the load.
func LoadGrants(db *gorm.DB) (*dataset.Table, error) {
	var records []GrantRecord
	if err := db.Order("id").Find(&records).Error; err != nil {
		return nil, err
	}

	rows := make([]dataset.Grant, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if rec.AmountUSD < 0 {
			skipped++
			continue
		}
		year := rec.YearIssued
		if year != 0 && (year < 1000 || year > 9999) {
			year = 0
		}
		rows = append(rows, dataset.Grant{
			Funder:      strings.TrimSpace(rec.FunderName),
			Recipient:   strings.TrimSpace(rec.RecipName),
			Amount:      rec.AmountUSD,
			Subjects:    splitTags(rec.GrantSubjectTran),
			Populations: splitTags(rec.GrantPopulationTran),
			Geographies: splitTags(rec.GrantGeoAreaTran),
			Year:        year,
		})
	}
	if skipped > 0 {
		log.Printf("data: skipped %d grant rows with negative amounts", skipped)
	}
	return dataset.NewTable(dataset.DefaultSchema(), rows)
}

// splitTags breaks a semicolon-delimited tag cell into its label set.
func splitTags(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(cell, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
