package validator

import (
	"math"
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// Custom validation tags.
const (
	TagFinite    = "finite"
	TagSessionID = "sessionid"
	TagNotBlank  = "notblank"
)

var sessionIDRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagFinite, validateFinite)
	_ = v.validate.RegisterValidation(TagSessionID, validateSessionID)
	_ = v.validate.RegisterValidation(TagNotBlank, validateNotBlank)
}

// validateFinite rejects NaN and infinities on float fields.
func validateFinite(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		x := f.Float()
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	}
	return true
}

func validateSessionID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	return sessionIDRegex.MatchString(s)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func (v *Validator) registerCustomTranslations() {
	messages := map[string]map[string]string{
		LangEN: {
			TagFinite:    "{0} must be a finite number",
			TagSessionID: "{0} must contain only letters, digits, '-' or '_' (at most 64 characters)",
			TagNotBlank:  "{0} must not be blank",
		},
		LangZH: {
			TagFinite:    "{0}必须是有限数值",
			TagSessionID: "{0}只能包含字母、数字、'-'或'_'（最多64个字符）",
			TagNotBlank:  "{0}不能为空白",
		},
	}

	for lang, m := range messages {
		trans := v.GetTranslator(lang)
		for tag, message := range m {
			registerTranslation(v.validate, trans, tag, message)
		}
	}
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, message string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}
