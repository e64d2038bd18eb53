package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	crmrepo "github.com/yungbote/terrenos-crm-backend/internal/data/repos/crm"
	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/http/validation"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

type NegocioHandler struct {
	negocios services.NegocioService
}

func NewNegocioHandler(negocios services.NegocioService) *NegocioHandler {
	return &NegocioHandler{negocios: negocios}
}

// GET /api/negocios
func (h *NegocioHandler) List(c *gin.Context) {
	asesorID, err := queryUUID(c, "asesor_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	f := crmrepo.NegocioFilter{
		AsesorID:    asesorID,
		Etapa:       strings.TrimSpace(c.Query("etapa")),
		SoloActivos: queryBool(c, "solo_activos", false),
	}
	page, err := h.negocios.List(dbcFrom(c), f, pagination.New(queryPage(c), services.NegociosPerPage, services.NegociosPerPage))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// GET /api/negocios/tablero
func (h *NegocioHandler) Tablero(c *gin.Context) {
	asesorID, err := queryUUID(c, "asesor_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	cols, err := h.negocios.Tablero(dbcFrom(c), asesorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cols)
}

// GET /api/negocios/estadisticas
func (h *NegocioHandler) Estadisticas(c *gin.Context) {
	asesorID, err := queryUUID(c, "asesor_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.negocios.Estadisticas(dbcFrom(c), asesorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// GET /api/negocios/:id
func (h *NegocioHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.negocios.Get(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, n)
}

// PUT /api/negocios/:id/etapa
func (h *NegocioHandler) ActualizarEtapa(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Etapa string `json:"etapa" binding:"required"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	cambio, err := h.negocios.ActualizarEtapa(c.Request.Context(), id, req.Etapa)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Etapa actualizada exitosamente",
		"data":           cambio.Negocio,
		"etapa_anterior": cambio.EtapaAnterior,
	})
}

// PUT /api/negocios/:id
func (h *NegocioHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		TerrenoID     *string  `json:"terreno_id"`
		Etapa         string   `json:"etapa"`
		FechaInicio   *string  `json:"fecha_inicio"`
		MontoEstimado *float64 `json:"monto_estimado"`
		Notas         string   `json:"notas"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	verr := apierr.NewValidation()
	in := services.NegocioInput{
		TerrenoID:     optUUID(verr, "terreno_id", req.TerrenoID),
		Etapa:         strings.TrimSpace(req.Etapa),
		FechaInicio:   optTime(verr, "fecha_inicio", req.FechaInicio),
		MontoEstimado: req.MontoEstimado,
		Notas:         req.Notas,
	}
	if err := verr.OrNil(); err != nil {
		response.Error(c, err)
		return
	}
	n, err := h.negocios.Update(c.Request.Context(), id, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Negocio actualizado exitosamente", n)
}

// DELETE /api/negocios/:id
func (h *NegocioHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.negocios.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Negocio eliminado exitosamente", nil)
}
