package validator

import (
	"log"
	"reflect"
	"slices"
	"strings"

	"supermock/internal/models"

	"github.com/go-playground/validator/v10"
)

func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("notblank", validateNotBlank)
	mustRegister("plan", validatePlan)
	mustRegister("contacts", validateContacts)
}

// notblank: 字符串去掉空白后不能为空
func validateNotBlank(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validatePlan(fl validator.FieldLevel) bool {
	return models.Plan(fl.Field().String()).Valid()
}

// contacts: 只允许已知平台，值必须是字符串
func validateContacts(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Map {
		return false
	}
	iter := field.MapRange()
	for iter.Next() {
		if !slices.Contains(models.ContactPlatforms, iter.Key().String()) {
			return false
		}
		val := iter.Value()
		if val.Kind() == reflect.Interface {
			val = val.Elem()
		}
		if val.Kind() != reflect.String {
			return false
		}
	}
	return true
}
