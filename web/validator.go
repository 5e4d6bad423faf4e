package web

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/semka95/natours/backend/domain"
)

var alphaSpace = regexp.MustCompile(`^[A-Za-z ]+$`)

// AppValidator represents validation struct
type AppValidator struct {
	UniTrans   *ut.UniversalTranslator
	V          *validator.Validate
	Translator ut.Translator
}

// NewAppValidator will initialize validator with translator
func NewAppValidator() (*AppValidator, error) {
	av := new(AppValidator)
	translator := en.New()
	av.UniTrans = ut.New(translator, translator)
	var found bool
	av.Translator, found = av.UniTrans.GetTranslator("en")
	if !found {
		av.Translator = av.UniTrans.GetFallback()
	}

	av.V = validator.New()

	err := enTranslations.RegisterDefaultTranslations(av.V, av.Translator)
	if err != nil {
		return nil, err
	}

	av.V.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err = av.register("alphaspace", "{0} must only contain letters", func(fl validator.FieldLevel) bool {
		return alphaSpace.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	if err = av.register("eqfield", "{0} must match {1}", nil); err != nil {
		return nil, err
	}

	return av, nil
}

func (av *AppValidator) register(tag, text string, fn validator.Func) error {
	if fn != nil {
		if err := av.V.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}

	return av.V.RegisterTranslation(tag, av.Translator, func(ut ut.Translator) error {
		return ut.Add(tag, text, true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T(tag, fe.Field(), fe.Param())
		return t
	})
}

// Validate serving to be called by Echo to validate request bodies
func (av *AppValidator) Validate(i interface{}) error {
	return av.V.Struct(i)
}

// Translate converts validation errors to operational error with
// per-field messages, other errors are returned as is
func (av *AppValidator) Translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if name == "" {
			name = fe.StructField()
		}
		fields[name] = fe.Translate(av.Translator)
	}

	messages := make([]string, 0, len(fields))
	for _, m := range fields {
		messages = append(messages, m)
	}
	sort.Strings(messages)

	appErr := domain.NewAppError(
		http.StatusBadRequest,
		fmt.Sprintf("Invalid input data. %s", strings.Join(messages, ". ")),
		domain.ErrBadParamInput,
	)
	appErr.Fields = fields

	return appErr
}
