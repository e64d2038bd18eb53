package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/http/validation"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

type EmbudoHandler struct {
	embudos services.EmbudoService
}

func NewEmbudoHandler(embudos services.EmbudoService) *EmbudoHandler {
	return &EmbudoHandler{embudos: embudos}
}

type embudoRequest struct {
	Nombre      *string `json:"nombre" binding:"omitempty,max=255"`
	Color       *string `json:"color" binding:"omitempty,hexcolor6"`
	Icono       *string `json:"icono" binding:"omitempty,max=50"`
	Orden       *int    `json:"orden" binding:"omitempty,gte=0"`
	Activo      *bool   `json:"activo"`
	Descripcion *string `json:"descripcion" binding:"omitempty,max=500"`
}

func (r embudoRequest) input() services.EmbudoInput {
	return services.EmbudoInput{
		Nombre:      r.Nombre,
		Color:       r.Color,
		Icono:       r.Icono,
		Orden:       r.Orden,
		Activo:      r.Activo,
		Descripcion: r.Descripcion,
	}
}

// GET /api/embudos?solo_activos=
func (h *EmbudoHandler) List(c *gin.Context) {
	out, err := h.embudos.List(dbcFrom(c), queryBool(c, "solo_activos", false))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// GET /api/embudos/:id
func (h *EmbudoHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	e, err := h.embudos.Get(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// POST /api/embudos
func (h *EmbudoHandler) Create(c *gin.Context) {
	var req embudoRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	e, err := h.embudos.Create(c.Request.Context(), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Embudo creado correctamente", e)
}

// PUT /api/embudos/:id
func (h *EmbudoHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req embudoRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	e, err := h.embudos.Update(c.Request.Context(), id, req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Embudo actualizado correctamente", e)
}

// DELETE /api/embudos/:id?force=true
func (h *EmbudoHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.embudos.Delete(c.Request.Context(), id, queryBool(c, "force", false)); err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Embudo eliminado correctamente", nil)
}

// POST /api/embudos/reordenar accepts either explicit positions or a plain
// id list in display order.
func (h *EmbudoHandler) Reordenar(c *gin.Context) {
	var req struct {
		Embudos []struct {
			ID    uuid.UUID `json:"id" binding:"required"`
			Orden int       `json:"orden" binding:"gte=1"`
		} `json:"embudos" binding:"omitempty,dive"`
		Orden []uuid.UUID `json:"orden"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	var items []services.OrdenItem
	switch {
	case len(req.Embudos) > 0:
		items = make([]services.OrdenItem, 0, len(req.Embudos))
		for _, e := range req.Embudos {
			items = append(items, services.OrdenItem{ID: e.ID, Orden: e.Orden})
		}
	case len(req.Orden) > 0:
		items = services.OrdenFromIDs(req.Orden)
	default:
		response.Error(c, apierr.Field("embudos", "Debe enviar al menos un embudo"))
		return
	}

	out, err := h.embudos.Reordenar(c.Request.Context(), items)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Orden actualizado correctamente", out)
}
