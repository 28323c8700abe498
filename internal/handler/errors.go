package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/dto"
	"go.uber.org/zap"
)

func init() {
	// Report binding failures under the JSON field names clients send
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// bindJSON decodes the request body into req, translating failures into a
// VALIDATION_ERROR
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return bindingError(err)
	}
	return nil
}

func bindingError(err error) *domain.Error {
	details := make(map[string]string)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				details[fe.Field()] = "is required"
			case "numeric":
				details[fe.Field()] = "must be numeric"
			default:
				details[fe.Field()] = "failed " + fe.Tag()
			}
		}
	} else {
		details["body"] = "malformed JSON"
	}

	return &domain.Error{
		Code:    domain.CodeValidation,
		Message: "validation failed",
		Details: details,
	}
}

// writeError answers with the domain error carried by err. Anything else is
// logged and reported as a bare SERVER_ERROR.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	if derr := domain.AsError(err); derr != nil && derr.Code != domain.CodeServerError {
		c.AbortWithStatusJSON(derr.Status(), dto.NewErrorResponse(derr))
		return
	}

	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(domain.ErrServer))
}

func deviceFrom(c *gin.Context) domain.Device {
	return domain.Device{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
