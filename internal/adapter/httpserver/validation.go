package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldError is one element of a validation failure's details array.
type fieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
}

// decodeAndValidate decodes the JSON body into dst and runs struct validation.
// Errors wrap domain.ErrInvalidArgument so writeError maps them to 422.
func decodeAndValidate(r *http.Request, dst any) ([]fieldError, error) {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if err := validate.Struct(dst); err != nil {
		var details []fieldError
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				details = append(details, fieldError{Field: fe.Field(), Tag: fe.Tag()})
			}
		}
		return details, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
	}
	return nil, nil
}
