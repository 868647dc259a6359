package marketplace

import (
	"time"

	"seller-onboarding/internal/models"

	"github.com/tidwall/gjson"
)

// envelopes are tried in order; the first object found is the entity.
var envelopes = []string{
	"result.data.company",
	"result.data.business",
	"result.data",
	"data.company",
	"data.business",
	"data",
	"company",
	"business",
	"result",
}

// unwrap returns the entity inside whichever response envelope the backend used.
// An array (list endpoints) yields its last element. An envelope that is
// present but null means there is no entity, so the root is not used.
func unwrap(body []byte) gjson.Result {
	root := gjson.ParseBytes(body)
	empty := false
	for _, p := range envelopes {
		r := root.Get(p)
		if r.IsObject() || r.IsArray() {
			return last(r)
		}
		if r.Exists() && r.Type == gjson.Null {
			empty = true
		}
	}
	if empty {
		return gjson.Result{}
	}
	return last(root)
}

// hasAny reports whether obj carries at least one non-null value under keys.
func hasAny(obj gjson.Result, keys ...string) bool {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() && v.Type != gjson.Null {
			return true
		}
	}
	return false
}

func last(r gjson.Result) gjson.Result {
	if !r.IsArray() {
		return r
	}
	items := r.Array()
	if len(items) == 0 {
		return gjson.Result{}
	}
	return items[len(items)-1]
}

// str returns the first non-empty string among alias keys.
func str(obj gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func timeOf(obj gjson.Result, keys ...string) *time.Time {
	s := str(obj, keys...)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

var (
	idKeys     = []string{"business_id", "company_id", "businessId", "companyId", "id", "_id"}
	userKeys   = []string{"user_id", "userId", "owner_id", "user"}
	nameKeys   = []string{"name", "business_name", "company_name", "businessName", "companyName"}
	legalKeys  = []string{"aadhaar", "aadhar", "aadhaar_number", "pan", "pan_number", "gst", "gst_number", "gstin", "msme", "msme_number", "udyam", "fassi", "fssai", "export_import", "iec", "exportImport"}
	socialKeys = []string{"linkedin", "linkedIn", "instagram", "facebook", "website", "web", "telegram", "youtube", "youTube", "x", "twitter"}
)

func idOf(obj gjson.Result) string {
	return str(obj, idKeys...)
}

// decodeBusiness returns nil unless obj names an id, an owner or a business
// name; a bare status envelope is not a business.
func decodeBusiness(obj gjson.Result) *models.Business {
	if !obj.IsObject() || !(hasAny(obj, idKeys...) || hasAny(obj, userKeys...) || hasAny(obj, nameKeys...)) {
		return nil
	}
	b := &models.Business{
		ID:           idOf(obj),
		UserID:       str(obj, userKeys...),
		Name:         str(obj, nameKeys...),
		Email:        str(obj, "email", "business_email", "company_email"),
		Phone:        str(obj, "phone", "phone_number", "mobile", "contact_number"),
		Address:      str(obj, "address", "business_address", "company_address"),
		City:         str(obj, "city"),
		State:        str(obj, "state"),
		Pincode:      str(obj, "pincode", "pin_code", "zip"),
		BusinessType: str(obj, "business_type", "company_type", "type"),
	}
	b.Skipped.Legal = obj.Get("skipped.legal").Bool() || obj.Get("skipped_legal").Bool()
	b.Skipped.Social = obj.Get("skipped.social").Bool() || obj.Get("skipped_social").Bool()
	return b
}

// decodeLegal reads a legal record. Records nested under "legal" in a complete
// business response are accepted too.
func decodeLegal(obj gjson.Result, businessID string) *models.LegalInfo {
	if nested := obj.Get("legal"); nested.IsObject() {
		obj = nested
	}
	if !obj.IsObject() || !(hasAny(obj, legalKeys...) || hasAny(obj, idKeys...)) {
		return nil
	}
	return &models.LegalInfo{
		BusinessID:   businessID,
		Aadhaar:      str(obj, "aadhaar", "aadhar", "aadhaar_number"),
		PAN:          str(obj, "pan", "pan_number"),
		GST:          str(obj, "gst", "gst_number", "gstin"),
		MSME:         str(obj, "msme", "msme_number", "udyam"),
		FASSI:        str(obj, "fassi", "fssai"),
		ExportImport: str(obj, "export_import", "iec", "exportImport"),
	}
}

func decodeSocial(obj gjson.Result, businessID string) *models.SocialInfo {
	if nested := obj.Get("social"); nested.IsObject() {
		obj = nested
	}
	if !obj.IsObject() || !(hasAny(obj, socialKeys...) || hasAny(obj, idKeys...)) {
		return nil
	}
	return &models.SocialInfo{
		BusinessID: businessID,
		LinkedIn:   str(obj, "linkedin", "linkedIn"),
		Instagram:  str(obj, "instagram"),
		Facebook:   str(obj, "facebook"),
		Website:    str(obj, "website", "web"),
		Telegram:   str(obj, "telegram"),
		YouTube:    str(obj, "youtube", "youTube"),
		X:          str(obj, "x", "twitter"),
	}
}

func decodeApplication(obj gjson.Result, businessID string) *models.Application {
	if nested := obj.Get("application"); nested.IsObject() {
		obj = nested
	}
	if !obj.IsObject() {
		return nil
	}
	app := &models.Application{
		ID:              str(obj, "application_id", "applicationId", "id", "_id"),
		BusinessID:      str(obj, "business_id", "company_id", "businessId", "companyId"),
		Status:          models.ParseStatus(str(obj, "status", "application_status")),
		RejectionReason: str(obj, "rejection_reason", "rejectionReason", "reason", "remarks"),
		ReviewedAt:      timeOf(obj, "reviewed_at", "reviewedAt"),
	}
	if app.BusinessID == "" {
		app.BusinessID = businessID
	}
	if created := timeOf(obj, "created_at", "createdAt"); created != nil {
		app.CreatedAt = *created
	}
	return app
}
