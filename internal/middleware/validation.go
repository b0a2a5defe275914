package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/engnotes/internal/app/models/dto"
)

// BindRequest binds JSON, form or multipart data into obj according to the
// request content type. On failure it writes a 400 and returns false.
func BindRequest(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBind(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return false
	}
	return true
}
