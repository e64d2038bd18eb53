package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	inventoryrepo "github.com/yungbote/terrenos-crm-backend/internal/data/repos/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

type InventoryHandler struct {
	inventory services.InventoryService
}

func NewInventoryHandler(inventory services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// GET /api/terrenos
func (h *InventoryHandler) List(c *gin.Context) {
	f := inventoryrepo.TerrenoFilter{
		SoloDisponibles: queryBool(c, "solo_disponibles", true),
		Buscar:          strings.TrimSpace(c.Query("buscar")),
	}
	var err error
	if f.ProyectoID, err = queryUUID(c, "proyecto_id"); err != nil {
		response.Error(c, err)
		return
	}
	if f.CategoriaID, err = queryUUID(c, "categoria_id"); err != nil {
		response.Error(c, err)
		return
	}
	if f.CuadraID, err = queryUUID(c, "cuadra_id"); err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.inventory.ListTerrenos(dbcFrom(c), f, pagination.New(queryPage(c), services.TerrenosPerPage, services.TerrenosPerPage))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// GET /api/terrenos/:id
func (h *InventoryHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.inventory.GetTerreno(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// GET /api/terrenos/proyectos
func (h *InventoryHandler) Proyectos(c *gin.Context) {
	out, err := h.inventory.ListProyectos(dbcFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// GET /api/terrenos/categorias?proyecto_id=
func (h *InventoryHandler) Categorias(c *gin.Context) {
	proyectoID, err := queryUUID(c, "proyecto_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := h.inventory.ListCategorias(dbcFrom(c), proyectoID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// GET /api/terrenos/dropdown?proyecto_id=
func (h *InventoryHandler) Dropdown(c *gin.Context) {
	proyectoID, err := queryUUID(c, "proyecto_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := h.inventory.Dropdown(dbcFrom(c), proyectoID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}
