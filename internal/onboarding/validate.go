package onboarding

import (
	"fmt"
	"strings"

	"seller-onboarding/internal/common/validation"
	"seller-onboarding/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

var (
	businessSchema = mustSchema(`{
		"type": "object",
		"required": ["name", "email", "phone", "address"],
		"properties": {
			"name":          {"type": "string", "pattern": "\\S", "maxLength": 200},
			"email":         {"type": "string", "format": "email", "maxLength": 255},
			"phone":         {"type": "string", "pattern": "\\S"},
			"address":       {"type": "string", "pattern": "\\S", "maxLength": 500},
			"city":          {"type": "string", "maxLength": 100},
			"state":         {"type": "string", "maxLength": 100},
			"pincode":       {"type": "string", "pattern": "^[0-9]{6}$"},
			"business_type": {"type": "string", "maxLength": 100}
		}
	}`)

	legalSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"aadhaar":       {"type": "string", "pattern": "^[0-9]{12}$"},
			"pan":           {"type": "string", "pattern": "^[A-Z]{5}[0-9]{4}[A-Z]$"},
			"gst":           {"type": "string", "pattern": "^[0-9A-Z]{15}$"},
			"msme":          {"type": "string", "maxLength": 50},
			"fassi":         {"type": "string", "maxLength": 50},
			"export_import": {"type": "string", "maxLength": 50}
		}
	}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("onboarding: invalid schema: %v", err))
	}
	return s
}

// ValidateBusiness checks a step 1 payload. Nothing here touches the network.
func ValidateBusiness(b *models.Business) []validation.ValidationError {
	errs := against(businessSchema, b)
	if strings.TrimSpace(b.Phone) != "" && !validation.ValidatePhone(b.Phone) {
		errs = append(errs, validation.ValidationError{
			Field:   "phone",
			Message: "phone must have 10 to 15 digits",
			Code:    "PATTERN",
		})
	}
	return errs
}

// ValidateLegal checks a step 2 payload. Every identifier is optional.
func ValidateLegal(l *models.LegalInfo) []validation.ValidationError {
	return against(legalSchema, l)
}

// ValidateSocial checks that every provided link is an http(s) URL.
func ValidateSocial(s *models.SocialInfo) []validation.ValidationError {
	fields := []struct {
		name, value string
	}{
		{"linkedin", s.LinkedIn},
		{"instagram", s.Instagram},
		{"facebook", s.Facebook},
		{"website", s.Website},
		{"telegram", s.Telegram},
		{"youtube", s.YouTube},
		{"x", s.X},
	}

	var errs []validation.ValidationError
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if !validation.ValidateURL(f.value) {
			errs = append(errs, validation.ValidationError{
				Field:   f.name,
				Message: "must be an http or https URL",
				Code:    "FORMAT",
			})
		}
	}
	return errs
}

// normalizeLegal trims identifiers and upper-cases the ones with letter codes.
func normalizeLegal(l *models.LegalInfo) {
	l.Aadhaar = strings.ReplaceAll(strings.TrimSpace(l.Aadhaar), " ", "")
	l.PAN = strings.ToUpper(strings.TrimSpace(l.PAN))
	l.GST = strings.ToUpper(strings.TrimSpace(l.GST))
	l.MSME = strings.TrimSpace(l.MSME)
	l.FASSI = strings.TrimSpace(l.FASSI)
	l.ExportImport = strings.TrimSpace(l.ExportImport)
}

func normalizeSocial(s *models.SocialInfo) {
	for _, p := range []*string{&s.LinkedIn, &s.Instagram, &s.Facebook, &s.Website, &s.Telegram, &s.YouTube, &s.X} {
		*p = strings.TrimSpace(*p)
	}
}

func normalizeBusiness(b *models.Business) {
	for _, p := range []*string{&b.Name, &b.Email, &b.Phone, &b.Address, &b.City, &b.State, &b.Pincode, &b.BusinessType} {
		*p = strings.TrimSpace(*p)
	}
}

func against(schema *gojsonschema.Schema, doc interface{}) []validation.ValidationError {
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return []validation.ValidationError{{Field: "(root)", Message: err.Error(), Code: "INVALID_DOCUMENT"}}
	}
	if result.Valid() {
		return nil
	}

	errs := make([]validation.ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		field := re.Field()
		if re.Type() == "required" {
			if p, ok := re.Details()["property"].(string); ok {
				field = p
			}
		}
		errs = append(errs, validation.ValidationError{
			Field:   field,
			Message: re.Description(),
			Code:    strings.ToUpper(re.Type()),
		})
	}
	return errs
}
