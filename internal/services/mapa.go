package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	inventoryrepo "github.com/yungbote/terrenos-crm-backend/internal/data/repos/inventory"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pointers"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/ctxutil"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type Feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

func newFeatureCollection(n int) *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: make([]*Feature, 0, n)}
}

// ProyectoResumen is a project with its plot counters.
type ProyectoResumen struct {
	*types.Proyecto
	TotalTerrenos       int64 `json:"total_terrenos"`
	TerrenosDisponibles int64 `json:"terrenos_disponibles"`
	TerrenosVendidos    int64 `json:"terrenos_vendidos"`
	TerrenosReservados  int64 `json:"terrenos_reservados"`
}

// MapaService backs the public map. Only Proyecto reports an unknown project;
// the layer endpoints answer with an empty collection.
type MapaService interface {
	Proyectos(dbc dbctx.Context) ([]*ProyectoResumen, error)
	Proyecto(dbc dbctx.Context, id uuid.UUID) (*ProyectoResumen, error)
	Barrios(dbc dbctx.Context, proyectoID uuid.UUID) (*FeatureCollection, error)
	Cuadras(dbc dbctx.Context, proyectoID uuid.UUID) (*FeatureCollection, error)
	Terrenos(dbc dbctx.Context, proyectoID uuid.UUID, soloDisponibles bool) (*FeatureCollection, error)
	Categorias(dbc dbctx.Context, proyectoID uuid.UUID) ([]inventoryrepo.CategoriaCount, error)
}

type mapaService struct {
	db           *gorm.DB
	log          *logger.Logger
	proyectoRepo repos.ProyectoRepo
	terrenoRepo  repos.TerrenoRepo
	mapaRepo     repos.MapaRepo
}

func NewMapaService(
	db *gorm.DB,
	log *logger.Logger,
	proyectoRepo repos.ProyectoRepo,
	terrenoRepo repos.TerrenoRepo,
	mapaRepo repos.MapaRepo,
) MapaService {
	return &mapaService{
		db:           db,
		log:          log.With("service", "MapaService"),
		proyectoRepo: proyectoRepo,
		terrenoRepo:  terrenoRepo,
		mapaRepo:     mapaRepo,
	}
}

func (s *mapaService) Proyectos(dbc dbctx.Context) ([]*ProyectoResumen, error) {
	proyectos, err := s.proyectoRepo.ListActivosRecientes(dbc)
	if err != nil {
		return nil, err
	}
	out := make([]*ProyectoResumen, 0, len(proyectos))
	for _, p := range proyectos {
		r, err := s.resumen(dbc, p, true)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *mapaService) Proyecto(dbc dbctx.Context, id uuid.UUID) (*ProyectoResumen, error) {
	p, err := s.getProyecto(dbc, id)
	if err != nil {
		return nil, err
	}
	return s.resumen(dbc, p, false)
}

// resumen loads the four counters concurrently. With onlyEnabled the total
// counts only enabled plots; the detail view counts every plot.
func (s *mapaService) resumen(dbc dbctx.Context, p *types.Proyecto, onlyEnabled bool) (*ProyectoResumen, error) {
	out := &ProyectoResumen{Proyecto: p}
	habilitado := inventory.CondicionHabilitado
	disponible, vendido, reservado := inventory.EstadoDisponible, inventory.EstadoVendido, inventory.EstadoReservado

	totalFilter := inventoryrepo.CountFilter{ProyectoID: p.ID}
	if onlyEnabled {
		totalFilter.Condicion = &habilitado
	}

	g, gctx := errgroup.WithContext(ctxutil.Default(dbc.Ctx))
	if dbc.Tx != nil {
		// a transaction is a single connection
		g.SetLimit(1)
	}
	gdbc := dbctx.Context{Ctx: gctx, Tx: dbc.Tx}
	count := func(dst *int64, f inventoryrepo.CountFilter) {
		g.Go(func() error {
			n, err := s.terrenoRepo.Count(gdbc, f)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	count(&out.TotalTerrenos, totalFilter)
	count(&out.TerrenosDisponibles, inventoryrepo.CountFilter{ProyectoID: p.ID, Estado: &disponible, Condicion: &habilitado})
	count(&out.TerrenosVendidos, inventoryrepo.CountFilter{ProyectoID: p.ID, Estado: &vendido})
	count(&out.TerrenosReservados, inventoryrepo.CountFilter{ProyectoID: p.ID, Estado: &reservado})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("count terrenos: %w", err)
	}
	return out, nil
}

func (s *mapaService) Barrios(dbc dbctx.Context, proyectoID uuid.UUID) (*FeatureCollection, error) {
	rows, err := s.mapaRepo.Barrios(dbc, proyectoID)
	if err != nil {
		return nil, err
	}
	fc := newFeatureCollection(len(rows))
	for _, b := range rows {
		if len(b.Poligono) == 0 {
			continue
		}
		fc.Features = append(fc.Features, &Feature{
			Type:     "Feature",
			Geometry: json.RawMessage(b.Poligono),
			Properties: map[string]any{
				"id":             b.ID,
				"nombre":         b.Nombre,
				"total_terrenos": b.TotalTerrenos,
				"tipo":           "barrio",
			},
		})
	}
	return fc, nil
}

func (s *mapaService) Cuadras(dbc dbctx.Context, proyectoID uuid.UUID) (*FeatureCollection, error) {
	rows, err := s.mapaRepo.Cuadras(dbc, proyectoID)
	if err != nil {
		return nil, err
	}
	fc := newFeatureCollection(len(rows))
	for _, c := range rows {
		if len(c.Poligono) == 0 {
			continue
		}
		fc.Features = append(fc.Features, &Feature{
			Type:     "Feature",
			Geometry: json.RawMessage(c.Poligono),
			Properties: map[string]any{
				"id":             c.ID,
				"nombre":         c.Nombre,
				"barrio":         pointers.Deref(c.BarrioNombre),
				"total_terrenos": c.TotalTerrenos,
				"tipo":           "cuadra",
			},
		})
	}
	return fc, nil
}

func (s *mapaService) Terrenos(dbc dbctx.Context, proyectoID uuid.UUID, soloDisponibles bool) (*FeatureCollection, error) {
	rows, err := s.mapaRepo.Terrenos(dbc, proyectoID, soloDisponibles)
	if err != nil {
		return nil, err
	}
	fc := newFeatureCollection(len(rows))
	for _, t := range rows {
		if len(t.Poligono) == 0 {
			continue
		}
		props := map[string]any{
			"id":              t.ID,
			"codigo":          pointers.StringOr(t.NumeroTerreno, "N/A"),
			"ubicacion":       t.Ubicacion,
			"categoria":       pointers.StringOr(t.CategoriaNombre, inventory.DefaultCategoriaNombre),
			"categoria_color": pointers.StringOr(t.CategoriaColor, inventory.DefaultCategoriaColor),
			"superficie":      t.Superficie,
			"precio_venta":    t.PrecioVenta,
			"cuota_inicial":   t.CuotaInicial,
			"cuota_mensual":   t.CuotaMensual,
			"barrio":          pointers.Deref(t.BarrioNombre),
			"cuadra":          pointers.Deref(t.CuadraNombre),
			"estado":          t.Estado,
			"estado_label":    inventory.EstadoLabel(t.Estado),
			"tipo":            "terreno",
		}
		if !soloDisponibles {
			props["condicion"] = t.Condicion
		}
		fc.Features = append(fc.Features, &Feature{
			Type:       "Feature",
			Geometry:   json.RawMessage(t.Poligono),
			Properties: props,
		})
	}
	return fc, nil
}

func (s *mapaService) Categorias(dbc dbctx.Context, proyectoID uuid.UUID) ([]inventoryrepo.CategoriaCount, error) {
	rows, err := s.mapaRepo.Categorias(dbc, proyectoID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []inventoryrepo.CategoriaCount{}
	}
	return rows, nil
}

func (s *mapaService) getProyecto(dbc dbctx.Context, id uuid.UUID) (*types.Proyecto, error) {
	p, err := s.proyectoRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apierr.NotFound("proyecto_not_found", "Proyecto no encontrado")
	}
	return p, nil
}
