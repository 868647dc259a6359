package wizardcompletestep

import "seller-onboarding/internal/common/validation"

func floatPtr(f float64) *float64 {
	return &f
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId", "action"},
		Properties: map[string]validation.Property{
			"userId": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
				MaxLength: validation.IntPtr(128),
			},
			"step": {
				Type:        "integer",
				Description: "Wizard step the action applies to (1-4)",
				Minimum:     floatPtr(1),
				Maximum:     floatPtr(4),
			},
			"action": {
				Type: "string",
				Enum: []string{ActionComplete, ActionSkip, ActionBack, ActionSubmit},
			},
			"business": {Type: "object", Description: "Step 1 payload"},
			"legal":    {Type: "object", Description: "Step 2 payload"},
			"social":   {Type: "object", Description: "Step 3 payload"},
		},
		AdditionalProperties: true,
	}
}
