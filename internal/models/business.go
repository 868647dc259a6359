// internal/models/business.go
package models

// Business is the seller's registered company. Exactly one per user.
type Business struct {
	ID           string    `json:"business_id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	Pincode      string    `json:"pincode,omitempty"`
	BusinessType string    `json:"business_type,omitempty"`
	Skipped      SkipFlags `json:"skipped"`
}

// SkipFlags records which optional wizard steps the seller chose to skip.
type SkipFlags struct {
	Legal  bool `json:"legal"`
	Social bool `json:"social"`
}

// LegalInfo holds optional legal identifiers. Every field is independently optional.
type LegalInfo struct {
	BusinessID   string `json:"business_id"`
	Aadhaar      string `json:"aadhaar,omitempty"`
	PAN          string `json:"pan,omitempty"`
	GST          string `json:"gst,omitempty"`
	MSME         string `json:"msme,omitempty"`
	FASSI        string `json:"fassi,omitempty"`
	ExportImport string `json:"export_import,omitempty"`
}

// SocialInfo holds optional social presence links.
type SocialInfo struct {
	BusinessID string `json:"business_id"`
	LinkedIn   string `json:"linkedin,omitempty"`
	Instagram  string `json:"instagram,omitempty"`
	Facebook   string `json:"facebook,omitempty"`
	Website    string `json:"website,omitempty"`
	Telegram   string `json:"telegram,omitempty"`
	YouTube    string `json:"youtube,omitempty"`
	X          string `json:"x,omitempty"`
}

// Links returns the social links in a fixed order.
func (s SocialInfo) Links() []string {
	return []string{s.LinkedIn, s.Instagram, s.Facebook, s.Website, s.Telegram, s.YouTube, s.X}
}
