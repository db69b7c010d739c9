// Package bind fills request structs from query strings and validates them with English messages
package bind

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once  sync.Once
	valid *validator.Validate
	trans ut.Translator
)

// shortMessages replace the stock English texts for these tags
var shortMessages = map[string]string{
	"min":   "{0} must be at least {1}",
	"max":   "{0} must be at most {1}",
	"oneof": "{0} must be one of [{1}]",
}

func setup() {
	loc := en.New()
	trans, _ = ut.New(loc, loc).GetTranslator("en")

	valid = validator.New(validator.WithRequiredStructEnabled())
	valid.RegisterTagNameFunc(jsonName)
	_ = en_translations.RegisterDefaultTranslations(valid, trans)

	for tag, text := range shortMessages {
		_ = valid.RegisterTranslation(tag, trans,
			func(t ut.Translator) error { return t.Add(tag, text, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(fe.Tag(), fe.Field(), fe.Param())
				return msg
			},
		)
	}
}

// jsonName names fields by their json tag so messages match the query parameters
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "":
		return f.Name
	case "-":
		return ""
	}
	return name
}

// Validate checks v's validate tags; the first failure becomes a validation error on its field
func Validate(v any) error {
	once.Do(setup)
	err := valid.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return perr.Validationf(ves[0].Field(), "%s", ves[0].Translate(trans))
	}
	logger.Get().Error().Err(err).Type("target", v).Msg("bind: cannot validate")
	return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "bind: cannot validate")
}

// Query copies r's query parameters into the string, int and bool fields of the struct dst points to, then validates it
func Query(r *http.Request, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return perr.InvalidArgf("bind: %T is not a struct pointer", dst)
	}
	q := r.URL.Query()
	el := rv.Elem()
	for i := 0; i < el.NumField(); i++ {
		sf := el.Type().Field(i)
		name := jsonName(sf)
		raw := strings.TrimSpace(q.Get(name))
		if !sf.IsExported() || name == "" || raw == "" {
			continue
		}
		if err := set(el.Field(i), name, raw); err != nil {
			return err
		}
	}
	return Validate(dst)
}

func set(fv reflect.Value, name, raw string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || fv.OverflowInt(n) {
			return perr.Validationf(name, "%s must be an integer", name)
		}
		fv.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return perr.Validationf(name, "%s must be true or false", name)
		}
		fv.SetBool(b)
	default:
		return perr.InvalidArgf("bind: %s has unsupported kind %s", name, fv.Kind())
	}
	return nil
}
