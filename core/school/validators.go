package school

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	subdomainTag   = "subdomain"
	subdomainText  = "subdomain must be 3 to 32 lowercase letters, digits or hyphens and cannot be reserved"
	subdomainRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,30}[a-z0-9]$`)
)

// InitValidators registers the School validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(subdomainTag, subdomainValidation)
	core.RegisterCustomTranslation(validate, translator, subdomainTag, subdomainText)
}

func subdomainValidation(fl validator.FieldLevel) bool {
	sub := fl.Field().String()
	return ValidSubdomain(sub)
}

// ValidSubdomain reports whether sub may identify a tenant.
func ValidSubdomain(sub string) bool {
	return subdomainRegex.MatchString(sub) && !core.StringInSlice(sub, ReservedSubdomains)
}
