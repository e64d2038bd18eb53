package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

// MapaHandler serves the project map layers. Payloads are returned without
// the envelope so map libraries can load the URLs directly.
type MapaHandler struct {
	mapa services.MapaService
}

func NewMapaHandler(mapa services.MapaService) *MapaHandler {
	return &MapaHandler{mapa: mapa}
}

func (h *MapaHandler) Proyectos(c *gin.Context) {
	out, err := h.mapa.Proyectos(dbcFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *MapaHandler) Proyecto(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.mapa.Proyecto(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *MapaHandler) Barrios(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fc, err := h.mapa.Barrios(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, fc)
}

func (h *MapaHandler) Cuadras(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fc, err := h.mapa.Cuadras(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, fc)
}

func (h *MapaHandler) TerrenosDisponibles(c *gin.Context) {
	h.terrenos(c, true)
}

func (h *MapaHandler) Terrenos(c *gin.Context) {
	h.terrenos(c, false)
}

func (h *MapaHandler) terrenos(c *gin.Context, soloDisponibles bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fc, err := h.mapa.Terrenos(dbcFrom(c), id, soloDisponibles)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, fc)
}

func (h *MapaHandler) Categorias(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.mapa.Categorias(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
