// Package credential holds the credential record, its expiry-derived status,
// and the persistence of AI analysis results onto it.
package credential

import (
	"time"
)

// Status tracks where a credential sits in its expiry lifecycle.
type Status string

const (
	StatusPending      Status = "pending"
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

// ExpiringSoonWindow is how far ahead of the end date a credential is
// flagged as expiring.
const ExpiringSoonWindow = 30 * 24 * time.Hour

// Credential is a professional license, certification, or similar document
// tracked for expiry. The AI* fields are written by the analysis pipeline and
// overwritten on re-analysis.
type Credential struct {
	ID              int64
	UserID          int64
	Title           string
	Notes           string
	StartDate       *time.Time
	EndDate         *time.Time
	Status          Status
	FileBlobID      string
	FileContentType string
	AIExtractedJSON map[string]any
	AIProcessed     bool
	AIProcessedAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FileAttached reports whether a document has been uploaded for this
// credential. Analysis requires an attached file.
func (c *Credential) FileAttached() bool {
	return c.FileBlobID != ""
}

// DaysUntilExpiration returns the number of days until the end date, or
// false when no end date is set.
func (c *Credential) DaysUntilExpiration(now time.Time) (int, bool) {
	if c.EndDate == nil {
		return 0, false
	}
	days := int(c.EndDate.Sub(now).Hours() / 24)
	return days, true
}

func (c *Credential) Expired(now time.Time) bool {
	return c.EndDate != nil && !c.EndDate.After(now)
}

func (c *Credential) ExpiringSoon(now time.Time) bool {
	if c.EndDate == nil {
		return false
	}
	return c.EndDate.After(now) && !c.EndDate.After(now.Add(ExpiringSoonWindow))
}

// StatusForExpiration derives the lifecycle status from the end date. When no
// end date is known the current status is kept.
func (c *Credential) StatusForExpiration(now time.Time) Status {
	if c.EndDate == nil {
		return c.Status
	}
	switch {
	case c.Expired(now):
		return StatusExpired
	case c.ExpiringSoon(now):
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// AnalysisResult is the set of fields an analysis run extracts from a
// credential document. All pointer fields are nil when the model could not
// find the value. Warnings is always non-nil, even when empty.
type AnalysisResult struct {
	Title               *string  `json:"title"`
	StartDate           *string  `json:"start_date"`
	EndDate             *string  `json:"end_date"`
	IssuingOrganization *string  `json:"issuing_organization"`
	CredentialNumber    *string  `json:"credential_number"`
	DocumentSummary     *string  `json:"document_summary"`
	Warnings            []string `json:"warnings"`
	SuggestedTags       []string `json:"suggested_tags"`
}
