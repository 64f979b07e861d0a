package pagination

import (
	"fmt"
	"reflect"
	"strings"

	pkgerrors "github.com/angelmondragon/entityrepo/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Settings describes one page request: which page, how large, the ordering
// path and direction, and an optional free-text search term.
type Settings struct {
	Page           int       `json:"page" validate:"min=1"`
	PageSize       int       `json:"pageSize" validate:"min=1"`
	Skip           int       `json:"skip" validate:"min=0"`
	OrderColumn    string    `json:"orderColumn"`
	OrderDirection Direction `json:"orderDirection"`
	Search         string    `json:"search,omitempty"`
}

// NewSettings returns first-page settings with the default page size.
func NewSettings(orderColumn string) Settings {
	return Settings{
		Page:           1,
		PageSize:       DefaultPageSize,
		Skip:           0,
		OrderColumn:    orderColumn,
		OrderDirection: Ascending,
	}
}

// NewPagedSettings builds settings for the given page, deriving Skip.
func NewPagedSettings(orderColumn string, pageSize, page int) (Settings, error) {
	if pageSize <= 0 {
		return Settings{}, pkgerrors.New(pkgerrors.CodeInvalidPagination, "page size must be positive").
			WithDetails(map[string]string{"pageSize": "must be at least 1"})
	}
	if page < 1 {
		return Settings{}, pkgerrors.New(pkgerrors.CodeInvalidPagination, "page must be at least 1").
			WithDetails(map[string]string{"page": "must be at least 1"})
	}
	s := NewSettings(orderColumn)
	return s.WithPage(page, pageSize), nil
}

// WithPage returns a copy positioned at page with pageSize rows per page.
func (s Settings) WithPage(page, pageSize int) Settings {
	s.Page = page
	s.PageSize = pageSize
	s.Skip = (page - 1) * pageSize
	return s
}

// WithOrder returns a copy ordered by path in the given direction.
func (s Settings) WithOrder(path string, dir Direction) Settings {
	s.OrderColumn = path
	s.OrderDirection = dir
	return s
}

func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			details := map[string]string{}
			for _, fieldErr := range errs {
				details[fieldErr.Field()] = validationMessage(fieldErr)
			}
			return pkgerrors.New(pkgerrors.CodeInvalidPagination, "invalid pagination settings").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInvalidPagination, err, "invalid pagination settings")
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return "is invalid"
}
