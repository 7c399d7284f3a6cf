package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/msomdec/shift-clock/internal/civil"
	"github.com/msomdec/shift-clock/internal/domain"
	"github.com/msomdec/shift-clock/internal/tzconv"
)

const maxBodyBytes = 1 << 20

// errBadJSON marks a body that could not be decoded. Validation failures are
// reported as domain.ErrInvalidInput instead.
var errBadJSON = errors.New("invalid request body")

// binder decodes JSON request bodies and validates them with struct tags.
// Besides the stock tags it knows civildate (YYYY-MM-DD), civiltime (HH:MM)
// and ianazone.
type binder struct {
	validate *validator.Validate
	trans    ut.Translator
}

func newBinder(tz *tzconv.Resolver) *binder {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	trans, _ := uni.GetTranslator("en")

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

	registerTag(v, trans, "civildate", "{0} must be a date in YYYY-MM-DD form", func(fl validator.FieldLevel) bool {
		_, err := civil.ParseDate(fl.Field().String())
		return err == nil
	})
	registerTag(v, trans, "civiltime", "{0} must be a time in HH:MM form", func(fl validator.FieldLevel) bool {
		_, err := civil.ParseTime(fl.Field().String())
		return err == nil
	})
	registerTag(v, trans, "ianazone", "{0} must be an IANA time zone such as America/New_York", func(fl validator.FieldLevel) bool {
		return tz.Validate(fl.Field().String()) == nil
	})
	registerTag(v, trans, "instant", "{0} must be an RFC 3339 timestamp", func(fl validator.FieldLevel) bool {
		_, err := tzconv.ParseInstant(fl.Field().String())
		return err == nil
	})

	return &binder{validate: v, trans: trans}
}

func registerTag(v *validator.Validate, trans ut.Translator, tag, message string, fn validator.Func) {
	_ = v.RegisterValidation(tag, fn)
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field())
			return msg
		},
	)
}

// decode reads r's JSON body into dst and validates it. Unknown fields and
// trailing data are rejected.
func (b *binder) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected trailing data", errBadJSON)
	}
	return b.check(dst)
}

// check validates an already populated struct, such as bound query values.
func (b *binder) check(v any) error {
	err := b.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, verrs[0].Translate(b.trans))
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}
