package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	crmrepo "github.com/yungbote/terrenos-crm-backend/internal/data/repos/crm"
	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/http/validation"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

type LeadHandler struct {
	leads services.LeadService
}

func NewLeadHandler(leads services.LeadService) *LeadHandler {
	return &LeadHandler{leads: leads}
}

type leadRequest struct {
	Nombre    string `json:"nombre" binding:"required,max=255"`
	Carnet    string `json:"carnet" binding:"required,max=50"`
	Numero1   string `json:"numero_1" binding:"required,max=20"`
	Numero2   string `json:"numero_2" binding:"max=20"`
	Direccion string `json:"direccion"`

	CrearAcuerdo  bool     `json:"crear_acuerdo"`
	TerrenoID     *string  `json:"terreno_id"`
	Etapa         string   `json:"etapa" binding:"max=100"`
	FechaInicio   *string  `json:"fecha_inicio"`
	MontoEstimado *float64 `json:"monto_estimado" binding:"omitempty,gte=0"`
	Notas         string   `json:"notas"`
}

func (r leadRequest) input() (services.LeadInput, error) {
	verr := apierr.NewValidation()
	in := services.LeadInput{
		Nombre:        strings.TrimSpace(r.Nombre),
		Carnet:        strings.TrimSpace(r.Carnet),
		Numero1:       strings.TrimSpace(r.Numero1),
		Numero2:       strings.TrimSpace(r.Numero2),
		Direccion:     strings.TrimSpace(r.Direccion),
		CrearAcuerdo:  r.CrearAcuerdo,
		Etapa:         strings.TrimSpace(r.Etapa),
		MontoEstimado: r.MontoEstimado,
		Notas:         r.Notas,
	}
	in.TerrenoID = optUUID(verr, "terreno_id", r.TerrenoID)
	in.FechaInicio = optTime(verr, "fecha_inicio", r.FechaInicio)
	return in, verr.OrNil()
}

func (h *LeadHandler) bind(c *gin.Context) (services.LeadInput, bool) {
	var req leadRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return services.LeadInput{}, false
	}
	in, err := req.input()
	if err != nil {
		response.Error(c, err)
		return services.LeadInput{}, false
	}
	return in, true
}

// GET /api/leads
func (h *LeadHandler) List(c *gin.Context) {
	asesorID, err := queryUUID(c, "asesor_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	f := crmrepo.LeadFilter{AsesorID: asesorID, Buscar: c.Query("buscar")}
	page, err := h.leads.List(dbcFrom(c), f, pagination.New(queryPage(c), services.LeadsPerPage, services.LeadsPerPage))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// POST /api/leads
func (h *LeadHandler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	lead, err := h.leads.Create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Lead creado exitosamente", lead)
}

// GET /api/leads/:id
func (h *LeadHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lead, err := h.leads.Get(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, lead)
}

// PUT /api/leads/:id
func (h *LeadHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	lead, err := h.leads.Update(c.Request.Context(), id, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Lead actualizado exitosamente", lead)
}

// DELETE /api/leads/:id
func (h *LeadHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.leads.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Lead eliminado correctamente", nil)
}

// POST /api/leads/buscar-por-codigo
func (h *LeadHandler) BuscarPorCodigo(c *gin.Context) {
	var req struct {
		Codigo     string `json:"codigo"`
		ProyectoID string `json:"proyecto_id"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	verr := apierr.NewValidation()
	proyectoID := optUUID(verr, "proyecto_id", &req.ProyectoID)
	if err := verr.OrNil(); err != nil {
		response.Error(c, err)
		return
	}
	code, err := h.leads.BuscarPorCodigo(dbcFrom(c), req.Codigo, proyectoID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": code.ID, "ubicacion": code.Ubicacion})
}
