package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/http/validation"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

type SeguimientoHandler struct {
	seguimientos services.SeguimientoService
}

func NewSeguimientoHandler(seguimientos services.SeguimientoService) *SeguimientoHandler {
	return &SeguimientoHandler{seguimientos: seguimientos}
}

type seguimientoRequest struct {
	NegocioID          *string `json:"negocio_id"`
	Tipo               string  `json:"tipo"`
	Descripcion        string  `json:"descripcion"`
	FechaSeguimiento   *string `json:"fecha_seguimiento"`
	ProximoSeguimiento *string `json:"proximo_seguimiento"`
}

func (h *SeguimientoHandler) bind(c *gin.Context) (services.SeguimientoInput, bool) {
	var req seguimientoRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return services.SeguimientoInput{}, false
	}
	verr := apierr.NewValidation()
	in := services.SeguimientoInput{
		Tipo:               req.Tipo,
		Descripcion:        req.Descripcion,
		FechaSeguimiento:   optTime(verr, "fecha_seguimiento", req.FechaSeguimiento),
		ProximoSeguimiento: optTime(verr, "proximo_seguimiento", req.ProximoSeguimiento),
	}
	if id := optUUID(verr, "negocio_id", req.NegocioID); id != nil {
		in.NegocioID = *id
	}
	if err := verr.OrNil(); err != nil {
		response.Error(c, err)
		return services.SeguimientoInput{}, false
	}
	return in, true
}

// GET /api/seguimientos/tipos
func (h *SeguimientoHandler) Tipos(c *gin.Context) {
	response.OK(c, h.seguimientos.Tipos())
}

// GET /api/seguimientos/pendientes?asesor_id=
func (h *SeguimientoHandler) Pendientes(c *gin.Context) {
	asesorID, err := queryUUID(c, "asesor_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := h.seguimientos.Pendientes(dbcFrom(c), asesorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// GET /api/seguimientos/:id lists the follow-ups of negocio :id.
func (h *SeguimientoHandler) ListByNegocio(c *gin.Context) {
	negocioID, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.seguimientos.ListByNegocio(dbcFrom(c), negocioID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// GET /api/seguimientos/detalle/:id
func (h *SeguimientoHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	seg, err := h.seguimientos.Get(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, seg)
}

// POST /api/seguimientos
func (h *SeguimientoHandler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	seg, err := h.seguimientos.Create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Seguimiento creado exitosamente", seg)
}

// PUT /api/seguimientos/:id
func (h *SeguimientoHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	seg, err := h.seguimientos.Update(c.Request.Context(), id, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Seguimiento actualizado exitosamente", seg)
}

// DELETE /api/seguimientos/:id
func (h *SeguimientoHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.seguimientos.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Seguimiento eliminado exitosamente", nil)
}

// PUT /api/seguimientos/:id/recordatorio
func (h *SeguimientoHandler) MarcarRecordatorio(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	seg, err := h.seguimientos.MarcarRecordatorio(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Recordatorio marcado como enviado", seg)
}
