package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sice-api/internal/middleware"
	"github.com/noah-isme/sice-api/internal/models"
	appErrors "github.com/noah-isme/sice-api/pkg/errors"
	"github.com/noah-isme/sice-api/pkg/response"
)

// actorFrom returns the authenticated caller, rendering 401 when there is none.
func actorFrom(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return actor, true
}

func bindJSON(c *gin.Context, dest interface{}, payload string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+payload+" payload"))
		return false
	}
	return true
}

// pageParams reads page and limit; page_size is accepted as an alias of limit.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit := c.Query("limit")
	if limit == "" {
		limit = c.DefaultQuery("page_size", "20")
	}
	size, _ := strconv.Atoi(limit)
	return page, size
}
