package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	es_translations "github.com/go-playground/validator/v10/translations/es"
	"github.com/pkg/errors"

	"github.com/scoda/scoda/core/run"
)

const (
	LocaleEN = "en"
	LocaleES = "es"
)

// Kinships lists the accepted relations of a guardian to a student.
var Kinships = []string{"Padre", "Madre", "Abuelo", "Abuela", "Tío", "Tía", "Hermano", "Hermana", "Otro", "Apoderado"}

// custom validation tags & texts, per locale
var customTexts = map[string]map[string]string{
	"run": {
		LocaleEN: "{0} is not a valid RUN",
		LocaleES: "{0} no es un RUN válido",
	},
	"notblank": {
		LocaleEN: "this field cannot be blank",
		LocaleES: "este campo no puede estar vacío",
	},
	"kinship": {
		LocaleEN: "invalid kinship",
		LocaleES: "parentesco no válido",
	},
	"required": {
		LocaleEN: "this field is required",
		LocaleES: "este campo es obligatorio",
	},
}

// NewValidator instantiates a validator with the custom tags registered and
// its error messages translated to locale ("en" or "es").
func NewValidator(locale string) (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	_en, _es := en.New(), es.New()
	uni := ut.New(_en, _en, _es)
	translator, found := uni.GetTranslator(locale)
	if !found {
		return nil, nil, errors.Errorf("unsupported locale %q", locale)
	}

	var err error
	switch locale {
	case LocaleES:
		err = es_translations.RegisterDefaultTranslations(validate, translator)
	default:
		err = en_translations.RegisterDefaultTranslations(validate, translator)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "registering default translations")
	}

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation("run", runValidation)
	_ = validate.RegisterValidation("notblank", notBlankValidation)
	_ = validate.RegisterValidation("kinship", kinshipValidation)

	for tag, texts := range customTexts {
		RegisterCustomTranslation(validate, translator, tag, texts[locale], true)
	}
	return validate, translator, nil
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
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

// Custom Global Validators

// runValidation accepts strings holding a valid RUN in any accepted format.
func runValidation(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return run.IsValid(fl.Field().String())
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}

func kinshipValidation(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	str := fl.Field().String()
	for _, k := range Kinships {
		if str == k {
			return true
		}
	}
	return false
}
