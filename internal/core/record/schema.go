package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	perr "archivist/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// canonical is the typed shape of a record without extra
// nullable fields are pointers so JSON null and absence both pass
type canonical struct {
	ID                 string            `json:"id" validate:"required"`
	Content            *string           `json:"content"`
	PlainText          *string           `json:"plain-text"`
	PlainTextTokens    []string          `json:"plain-text-tokens"`
	PlainTextSentences []string          `json:"plain-text-sentences"`
	URLKey             *string           `json:"urlkey"`
	Timestamp          *string           `json:"timestamp"`
	URL                string            `json:"url" validate:"required"`
	MIMEType           *string           `json:"mime-type"`
	ResponseCode       *string           `json:"response-code" validate:"omitempty,len=3,numeric"`
	Digest             *string           `json:"digest"`
	RedirectURL        *string           `json:"redirect-url"`
	RobotMetaTags      []string          `json:"robot-meta-tags"`
	WARCOffset         *int64            `json:"warc-offset" validate:"omitempty,gte=0"`
	WARCRecordSize     *int64            `json:"warc-record-size" validate:"omitempty,gte=0"`
	WARCFilename       *string           `json:"warc-filename"`
	RecHeaders         map[string]string `json:"rec-headers"`
	HTTPHeaders        map[string]string `json:"http-headers"`
	Title              *string           `json:"title"`
	Headlines          []string          `json:"headlines"`
	Links              []string          `json:"links"`
	Language           *string           `json:"language" validate:"omitempty,len=2,lowercase,alpha"`
	WebPageType        *string           `json:"web-page-type" validate:"omitempty,oneof=news eshop forum others"`
	Topics             []any             `json:"topics"`
	Sentiment          *float64          `json:"sentiment"`
	RefersTo           *string           `json:"refers-to"`
	HarvestID          *string           `json:"harvest-id"`
}

// Schema validates records against the canonical shape
type Schema struct {
	v     *validator.Validate
	trans ut.Translator
}

var (
	schemaOnce sync.Once
	schema     *Schema
	schemaErr  error
)

// LoadSchema builds the process-wide schema once; an error here is fatal for a run
func LoadSchema() (*Schema, error) {
	schemaOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			if tag == "" || tag == "-" {
				return fld.Name
			}
			return tag
		})
		if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
			schemaErr = perr.Wrap(err, perr.ErrorCodeUnknown, "record schema: register translations")
			return
		}
		schema = &Schema{v: v, trans: trans}
	})
	return schema, schemaErr
}

// Validate checks every field except extra against the canonical shape
// unknown fields, wrong JSON types and rule violations are Validation errors
func (s *Schema) Validate(r *Record) error {
	raw, err := json.Marshal(r.Canonical())
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeValidation, "record is not JSON-representable")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var c canonical
	if err := dec.Decode(&c); err != nil {
		return decodeErr(err)
	}
	if err := s.v.Struct(c); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			return perr.Validationf(ves[0].Field(), "%s", ves[0].Translate(s.trans))
		}
		return perr.Wrap(err, perr.ErrorCodeValidation, "record validation failed")
	}
	return nil
}

func decodeErr(err error) error {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return perr.Validationf(te.Field, "%s must be %s, got %s", te.Field, te.Type.String(), te.Value)
	}
	msg := err.Error()
	if f, ok := strings.CutPrefix(msg, "json: unknown field "); ok {
		f = strings.Trim(f, `"`)
		return perr.Validationf(f, "unknown field %s", f)
	}
	return perr.Wrap(err, perr.ErrorCodeValidation, "record does not match schema")
}
