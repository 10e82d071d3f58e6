// Package validation проверяет имена типов сущностей, серверные id и имена полей.
package validation

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/iudanet/khural/internal/models"
)

// FieldNamePattern допустимое имя поля сущности: латиница, цифры, "_",
// первый символ не цифра. Длина: 1-64 символа
var FieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// Имена тегов, регистрируемых в New
const (
	TagEntityType = "entitytype"
	TagEntityID   = "entityid"
	TagFieldName  = "fieldname"
)

// ValidateEntityType проверяет, что name является известным типом сущности
func ValidateEntityType(name string) error {
	if _, err := models.ParseEntityType(name); err != nil {
		return err
	}
	return nil
}

// ValidateEntityID проверяет серверный id: положительное целое число в десятичной записи
func ValidateEntityID(id string) error {
	if id == "" {
		return fmt.Errorf("entity id cannot be empty")
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 || strconv.FormatInt(n, 10) != id {
		return fmt.Errorf("invalid entity id %q: must be a positive integer", id)
	}
	return nil
}

// ValidateFieldName проверяет имя поля сущности
func ValidateFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if !FieldNamePattern.MatchString(name) {
		return fmt.Errorf("invalid field name %q: only letters, digits and underscores, not starting with a digit, up to 64 characters", name)
	}
	return nil
}

// New возвращает validator с тегами entitytype, entityid и fieldname
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, TagEntityType, ValidateEntityType)
	mustRegister(v, TagEntityID, ValidateEntityID)
	mustRegister(v, TagFieldName, ValidateFieldName)
	return v
}

func mustRegister(v *validator.Validate, tag string, check func(string) error) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return check(fl.Field().String()) == nil
	})
	if err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}
