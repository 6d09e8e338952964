package binder

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

const (
	themeTag      = "theme"
	fontFamilyTag = "font_family"
	bookIDTag     = "book_id"
)

var (
	// Book ids are canonical UUIDs.
	bookIDRE = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

func registerValidations(validate *validator.Validate) {
	validate.RegisterAlias(themeTag, "oneof=light sepia dark")
	validate.RegisterAlias(fontFamilyTag, "oneof=serif sans")
	_ = validate.RegisterValidation(bookIDTag, bookIDValidator)
}

func bookIDValidator(fl validator.FieldLevel) bool {
	return bookIDRE.MatchString(fl.Field().String())
}
