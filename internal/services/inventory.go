package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/inventory"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

const TerrenosPerPage = 50

type TerrenoOption struct {
	ID     uuid.UUID `json:"id"`
	Label  string    `json:"label"`
	Precio float64   `json:"precio"`
}

type InventoryService interface {
	ListTerrenos(dbc dbctx.Context, f inventory.TerrenoFilter, p pagination.Params) (*pagination.Result[*types.Terreno], error)
	GetTerreno(dbc dbctx.Context, id uuid.UUID) (*types.Terreno, error)
	ListProyectos(dbc dbctx.Context) ([]*types.Proyecto, error)
	ListCategorias(dbc dbctx.Context, proyectoID *uuid.UUID) ([]*types.CategoriaTerreno, error)
	Dropdown(dbc dbctx.Context, proyectoID *uuid.UUID) ([]TerrenoOption, error)
}

type inventoryService struct {
	db            *gorm.DB
	log           *logger.Logger
	terrenoRepo   repos.TerrenoRepo
	proyectoRepo  repos.ProyectoRepo
	categoriaRepo repos.CategoriaRepo
}

func NewInventoryService(
	db *gorm.DB,
	log *logger.Logger,
	terrenoRepo repos.TerrenoRepo,
	proyectoRepo repos.ProyectoRepo,
	categoriaRepo repos.CategoriaRepo,
) InventoryService {
	return &inventoryService{
		db:            db,
		log:           log.With("service", "InventoryService"),
		terrenoRepo:   terrenoRepo,
		proyectoRepo:  proyectoRepo,
		categoriaRepo: categoriaRepo,
	}
}

func (s *inventoryService) ListTerrenos(dbc dbctx.Context, f inventory.TerrenoFilter, p pagination.Params) (*pagination.Result[*types.Terreno], error) {
	return s.terrenoRepo.List(dbc, f, p)
}

func (s *inventoryService) GetTerreno(dbc dbctx.Context, id uuid.UUID) (*types.Terreno, error) {
	t, err := s.terrenoRepo.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("get terreno: %w", err)
	}
	if t == nil {
		return nil, apierr.NotFound("terreno_not_found", "Terreno no encontrado")
	}
	return t, nil
}

func (s *inventoryService) ListProyectos(dbc dbctx.Context) ([]*types.Proyecto, error) {
	return s.proyectoRepo.ListByNombre(dbc)
}

func (s *inventoryService) ListCategorias(dbc dbctx.Context, proyectoID *uuid.UUID) ([]*types.CategoriaTerreno, error) {
	return s.categoriaRepo.ListActivas(dbc, proyectoID)
}

func (s *inventoryService) Dropdown(dbc dbctx.Context, proyectoID *uuid.UUID) ([]TerrenoOption, error) {
	rows, err := s.terrenoRepo.ListDisponibles(dbc, proyectoID)
	if err != nil {
		return nil, err
	}
	out := make([]TerrenoOption, 0, len(rows))
	for _, t := range rows {
		out = append(out, TerrenoOption{ID: t.ID, Label: terrenoLabel(t), Precio: t.PrecioVenta})
	}
	return out, nil
}

func terrenoLabel(t *types.Terreno) string {
	if t.NumeroTerreno == "" {
		return t.Ubicacion
	}
	return t.Ubicacion + " - Nº " + t.NumeroTerreno
}
