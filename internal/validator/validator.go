package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"supermock/internal/apperrors"
	"supermock/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var setupOnce sync.Once

// Setup 配置 gin 的校验引擎：使用 json 字段名、拒绝未知字段、注册自定义规则
func Setup() {
	setupOnce.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true

		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		registerCustomRules(v)
	})
}

// BindJSON 解析并校验请求体，失败时返回带字段详情的 BadRequest
func BindJSON(c *gin.Context, obj any) error {
	Setup()
	if err := c.ShouldBindJSON(obj); err != nil {
		return translate(err)
	}
	return nil
}

// BindQuery 解析并校验查询参数
func BindQuery(c *gin.Context, obj any) error {
	Setup()
	if err := c.ShouldBindQuery(obj); err != nil {
		return translate(err)
	}
	return nil
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = message(fe)
		}
		return apperrors.BadRequest("Validation failed").WithDetails(details)
	}
	return apperrors.BadRequest("Invalid request body: " + err.Error())
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters long", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "plan":
		return fmt.Sprintf("Must be one of: %s, %s", models.PlanFree, models.PlanPremium)
	case "contacts":
		return "Supported platforms: " + strings.Join(models.ContactPlatforms, ", ")
	case "uuid":
		return "Must be a valid UUID"
	default:
		return fmt.Sprintf("Invalid value (failed on '%s' tag)", fe.Tag())
	}
}
