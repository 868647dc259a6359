package applicationstatus

import "seller-onboarding/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId"},
		Properties: map[string]validation.Property{
			"userId": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
				MaxLength: validation.IntPtr(128),
			},
			"waitForDecision": {
				Type:        "boolean",
				Description: "Poll until the review leaves pending",
			},
		},
		AdditionalProperties: true,
	}
}
