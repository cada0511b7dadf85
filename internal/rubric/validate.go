package rubric

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/pavelanni/classbook/internal/model"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "this field is required"
	minTag       = "min"
	minText      = "at least one criterion is required"

	nodePathRegex = regexp.MustCompile(`^criteria\[(\d+)\](?:\.subCriteria\[(\d+)\])?`)
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	registerTranslation(notBlankTag, notBlankText, false)
	registerTranslation(minTag, minText, true)
}

func registerTranslation(tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// notBlankValidation rejects empty and whitespace-only strings.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// FieldError is one violation, keyed by its path in the rubric document
// (e.g. "criteria[1].subCriteria[0].name") and by the offending node's id.
type FieldError struct {
	Path    string
	NodeID  string
	Message string
}

// ValidationError lists every violation found in a rubric.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Path+": "+f.Message)
	}
	return "invalid rubric: " + strings.Join(parts, "; ")
}

// Validate checks the rubric name, that criteria exist, and that every
// criterion and sub-criterion is named. All violations are reported at once.
func Validate(r model.Rubric) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		out.Fields = append(out.Fields, FieldError{
			Path:    path,
			NodeID:  nodeID(r, path),
			Message: fe.Translate(translator),
		})
	}
	return out
}

// nodeID resolves the node a field path points into. Rubric-level fields
// resolve to the rubric id.
func nodeID(r model.Rubric, path string) string {
	m := nodePathRegex.FindStringSubmatch(path)
	if m == nil {
		return r.ID
	}
	ci, _ := strconv.Atoi(m[1])
	if ci >= len(r.Criteria) {
		return ""
	}
	c := r.Criteria[ci]
	if m[2] == "" {
		return c.ID
	}
	si, _ := strconv.Atoi(m[2])
	if si >= len(c.SubCriteria) {
		return ""
	}
	return c.SubCriteria[si].ID
}
