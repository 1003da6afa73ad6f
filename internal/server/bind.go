package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const maxBodyBytes = 1 << 20

// errValidation marks request bodies that decode but fail validation.
var errValidation = errors.New("validation failed")

type validatorSvc struct {
	validate   *validator.Validate
	translator ut.Translator
}

var getValidator = sync.OnceValue(func() *validatorSvc {
	enLoc := en.New()
	trans, _ := ut.New(enLoc, enLoc).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	// prefer json tag names in messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	return &validatorSvc{validate: v, translator: trans}
})

// decodeJSON decodes the request body into T and validates it.
// Failed validation wraps errValidation.
func decodeJSON[T any](r *http.Request) (T, error) {
	var dst T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dst, errors.New("empty body")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return dst, fmt.Errorf("%w: %s must be of type %s", errValidation, typeErr.Field, typeErr.Type)
		}
		return dst, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return dst, errors.New("unexpected trailing data")
	}

	svc := getValidator()
	if err := svc.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return dst, fmt.Errorf("%w: %s", errValidation, verrs[0].Translate(svc.translator))
		}
		return dst, fmt.Errorf("%w: %s", errValidation, err)
	}
	return dst, nil
}
