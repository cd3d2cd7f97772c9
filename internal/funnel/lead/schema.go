// internal/funnel/lead/schema.go
package lead

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"energylab-funnel/internal/common/errors"
)

// payloadSchema is the ingestion contract checked before every POST. It
// guards the fields the ingestion endpoint rejects leads without.
const payloadSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": [
		"first_name",
		"last_name",
		"email",
		"phone",
		"post_code",
		"address_line_1",
		"contact_by_phone",
		"contact_by_sms",
		"contact_by_email"
	],
	"properties": {
		"first_name": {"type": "string", "minLength": 1},
		"last_name": {"type": "string", "minLength": 1},
		"email": {"type": "string", "minLength": 3, "pattern": "^[^\\s@]+@[^\\s@]+\\.[^\\s@]+$"},
		"phone": {"type": "string", "minLength": 7},
		"post_code": {"type": "string", "minLength": 5},
		"address_line_1": {"type": "string", "minLength": 1},
		"contact_by_phone": {"enum": ["YES", "NO"]},
		"contact_by_sms": {"enum": ["YES", "NO"]},
		"contact_by_email": {"enum": ["YES", "NO"]},
		"eco_eligible": {"type": "boolean"},
		"baxter_kelly_eligible": {"type": "boolean"}
	}
}`

var compiledSchema *gojsonschema.Schema

func init() {
	var err error
	compiledSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(payloadSchema))
	if err != nil {
		panic(fmt.Sprintf("lead: invalid payload schema: %v", err))
	}
}

// ValidatePayload checks the payload against the ingestion schema and
// returns a LEAD_VALIDATION_FAILED error describing every violation.
func ValidatePayload(p Payload) error {
	result, err := compiledSchema.Validate(gojsonschema.NewGoLoader(p))
	if err != nil {
		return errors.NewLeadValidationFailedError(err.Error())
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		details = append(details, e.String())
	}
	return errors.NewLeadValidationFailedError(strings.Join(details, "; "))
}
