// internal/handlers/catalog/catalog_handler.go
package catalog

import (
	"net/http"

	"pochasovo-service/internal/pkg/response"
	service "pochasovo-service/internal/service/rank"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	rankService *service.RankService
}

func NewCatalogHandler(rankService *service.RankService) *CatalogHandler {
	return &CatalogHandler{
		rankService: rankService,
	}
}

// GetCityRanking returns the ordered public catalog for a city
func (h *CatalogHandler) GetCityRanking(c *gin.Context) {
	city := c.Param("city")
	if city == "" {
		response.Error(c, http.StatusBadRequest, "city is required", nil)
		return
	}

	ranked, err := h.rankService.Resolve(c.Request.Context(), city)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to resolve city ranking", err)
		return
	}

	response.Success(c, http.StatusOK, "city ranking retrieved", gin.H{
		"city":     city,
		"listings": ranked,
		"count":    len(ranked),
	})
}
