package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	phoneTag   = "phone"
	phoneText  = "{0} must be a valid phone number"
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 ]{7,17}$`)

	matriculeTag   = "matricule"
	matriculeText  = "{0} must be 3 to 20 uppercase letters, digits, hyphens or slashes"
	matriculeRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9/-]{2,19}$`)

	eduLevelTag  = "edulevel"
	eduLevelText = "{0} must be one of MATERNELLE, PRIMAIRE, SECONDAIRE"

	acadYearTag  = "acadyear"
	acadYearText = "{0} must be of the form YYYY-YYYY with consecutive years"

	hhmmTag   = "hhmm"
	hhmmText  = "{0} must be a time of the form HH:MM"
	hhmmRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

	currencyTag   = "currency"
	currencyText  = "{0} must be a 3-letter currency code"
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"

	oneOfTag  = "oneof"
	oneOfText = "{0} must be one of [{1}]"
)

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// dates are validated as their underlying time, the zero Date being empty
	validate.RegisterCustomTypeFunc(dateTypeFunc, Date{})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText)

	_ = validate.RegisterValidation(phoneTag, regexValidation(phoneRegex))
	RegisterCustomTranslation(validate, translator, phoneTag, phoneText)

	_ = validate.RegisterValidation(matriculeTag, regexValidation(matriculeRegex))
	RegisterCustomTranslation(validate, translator, matriculeTag, matriculeText)

	_ = validate.RegisterValidation(eduLevelTag, eduLevelValidation)
	RegisterCustomTranslation(validate, translator, eduLevelTag, eduLevelText)

	_ = validate.RegisterValidation(acadYearTag, acadYearValidation)
	RegisterCustomTranslation(validate, translator, acadYearTag, acadYearText)

	_ = validate.RegisterValidation(hhmmTag, regexValidation(hhmmRegex))
	RegisterCustomTranslation(validate, translator, hhmmTag, hhmmText)

	_ = validate.RegisterValidation(currencyTag, regexValidation(currencyRegex))
	RegisterCustomTranslation(validate, translator, currencyTag, currencyText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
	registerOneOfTranslation(validate, translator)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
// `{0}` in text is replaced by the field name.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func registerOneOfTranslation(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterTranslation(
		oneOfTag, translator,
		func(t ut.Translator) error { return t.Add(oneOfTag, oneOfText, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(oneOfTag, fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
			return s
		},
	)
}

func dateTypeFunc(v reflect.Value) interface{} {
	d, ok := v.Interface().(Date)
	if !ok || d.IsZero() {
		return nil
	}
	return d.Time
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

func regexValidation(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func eduLevelValidation(fl validator.FieldLevel) bool {
	return IsEducationLevel(fl.Field().String())
}

// acadYearValidation accepts "2025-2026" but not "2025-2027".
func acadYearValidation(fl validator.FieldLevel) bool {
	var first, second int
	val := fl.Field().String()
	if len(val) != 9 || val[4] != '-' {
		return false
	}
	for i, c := range val {
		if i == 4 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
		if i < 4 {
			first = first*10 + int(c-'0')
		} else {
			second = second*10 + int(c-'0')
		}
	}
	return second == first+1
}
