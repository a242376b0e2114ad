// internal/handlers/signup/validation.go
package signup

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"provider-verify/internal/common/errors"
)

const requestSchema = `{
	"type": "object",
	"properties": {
		"firstName": {"type": "string", "minLength": 1, "maxLength": 100},
		"lastName":  {"type": "string", "minLength": 1, "maxLength": 100},
		"company":   {"type": "string", "maxLength": 200},
		"email":     {"type": "string", "format": "email", "maxLength": 254},
		"phone":     {"type": "string", "maxLength": 30},
		"npi":       {"type": "string", "minLength": 1, "maxLength": 20},
		"address1":  {"type": "string", "maxLength": 200},
		"address2":  {"type": "string", "maxLength": 200},
		"city":      {"type": "string", "maxLength": 100},
		"province":  {"type": "string", "maxLength": 100},
		"zip":       {"type": "string", "maxLength": 20},
		"country":   {"type": "string", "maxLength": 100}
	},
	"required": ["firstName", "lastName", "email", "npi"],
	"additionalProperties": false
}`

var schema = gojsonschema.NewStringLoader(requestSchema)

// validateBody checks the raw request body against the signup schema before
// it is decoded. NPI digit validation happens later in the service, where
// the value is also normalized.
func validateBody(body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errors.NewValidationError("request body must be a JSON object")
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		details = append(details, e.String())
	}
	return errors.NewValidationError(strings.Join(details, "; "))
}
