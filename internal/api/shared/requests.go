package shared

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Shared validator instance, safe for concurrent use.
var validate = validator.New()

// DecodeJSON decodes the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// ValidateRequest validates v against its struct tags.
func ValidateRequest(v any) error {
	return validate.Struct(v)
}
