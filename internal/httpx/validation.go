package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func ValidationErr(err validator.ValidationErrors) []FieldError {
	var out []FieldError
	for _, fe := range err {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.ActualTag(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.ActualTag() {
	case "required":
		return "This field is required."
	case "max":
		return "Value is too long (max " + fe.Param() + ")."
	default:
		return "Unknown validation error."
	}
}

// BindFail answers 400 for a request that failed gin binding, listing the
// offending fields when the validator produced them.
func BindFail(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		Err(c, http.StatusBadRequest, ValidationErr(ve))
		return
	}
	Err(c, http.StatusBadRequest, err.Error())
}
