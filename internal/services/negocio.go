package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	crmrepo "github.com/yungbote/terrenos-crm-backend/internal/data/repos/crm"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/crm"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/ctxutil"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

const (
	NegociosPerPage = 15

	msgEtapaInvalida = "La etapa seleccionada no es válida"
)

type TableroColumna struct {
	Etapa    string           `json:"etapa"`
	Color    string           `json:"color"`
	Cantidad int              `json:"cantidad"`
	Negocios []*types.Negocio `json:"negocios"`
}

type Estadisticas struct {
	Total            int64   `json:"total"`
	Activos          int64   `json:"activos"`
	Ganados          int64   `json:"ganados"`
	Perdidos         int64   `json:"perdidos"`
	MontoTotalGanado float64 `json:"monto_total_ganado"`
	TasaConversion   float64 `json:"tasa_conversion"`
}

type EtapaCambio struct {
	Negocio       *types.Negocio
	EtapaAnterior string
}

type NegocioInput struct {
	TerrenoID     *uuid.UUID
	Etapa         string
	FechaInicio   *time.Time
	MontoEstimado *float64
	Notas         string
}

type NegocioService interface {
	Etapas(dbc dbctx.Context) ([]string, error)
	List(dbc dbctx.Context, f crmrepo.NegocioFilter, p pagination.Params) (*pagination.Result[*types.Negocio], error)
	Tablero(dbc dbctx.Context, asesorID *uuid.UUID) ([]*TableroColumna, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Negocio, error)
	ActualizarEtapa(ctx context.Context, id uuid.UUID, etapa string) (*EtapaCambio, error)
	Update(ctx context.Context, id uuid.UUID, in NegocioInput) (*types.Negocio, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Estadisticas(dbc dbctx.Context, asesorID *uuid.UUID) (*Estadisticas, error)
}

type negocioService struct {
	db              *gorm.DB
	log             *logger.Logger
	negocioRepo     repos.NegocioRepo
	embudoRepo      repos.EmbudoRepo
	seguimientoRepo repos.SeguimientoRepo
	terrenoRepo     repos.TerrenoRepo
	notifier        CRMNotifier
}

func NewNegocioService(
	db *gorm.DB,
	log *logger.Logger,
	negocioRepo repos.NegocioRepo,
	embudoRepo repos.EmbudoRepo,
	seguimientoRepo repos.SeguimientoRepo,
	terrenoRepo repos.TerrenoRepo,
	notifier CRMNotifier,
) NegocioService {
	if notifier == nil {
		notifier = NewCRMNotifier(nil)
	}
	return &negocioService{
		db:              db,
		log:             log.With("service", "NegocioService"),
		negocioRepo:     negocioRepo,
		embudoRepo:      embudoRepo,
		seguimientoRepo: seguimientoRepo,
		terrenoRepo:     terrenoRepo,
		notifier:        notifier,
	}
}

// Etapas lists active stage names in pipeline order.
func (s *negocioService) Etapas(dbc dbctx.Context) ([]string, error) {
	embudos, err := s.embudoRepo.List(dbc, true)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(embudos))
	for _, e := range embudos {
		out = append(out, e.Nombre)
	}
	return out, nil
}

func (s *negocioService) List(dbc dbctx.Context, f crmrepo.NegocioFilter, p pagination.Params) (*pagination.Result[*types.Negocio], error) {
	f.Etapa = strings.TrimSpace(f.Etapa)
	return s.negocioRepo.List(dbc, f, p)
}

func (s *negocioService) Tablero(dbc dbctx.Context, asesorID *uuid.UUID) ([]*TableroColumna, error) {
	embudos, err := s.embudoRepo.List(dbc, true)
	if err != nil {
		return nil, err
	}
	etapas := make([]string, 0, len(embudos))
	cols := make([]*TableroColumna, 0, len(embudos))
	byEtapa := make(map[string]*TableroColumna, len(embudos))
	for _, e := range embudos {
		col := &TableroColumna{Etapa: e.Nombre, Color: e.ColorCSS(), Negocios: []*types.Negocio{}}
		etapas = append(etapas, e.Nombre)
		cols = append(cols, col)
		byEtapa[e.Nombre] = col
	}
	negocios, err := s.negocioRepo.ListByEtapas(dbc, etapas, asesorID)
	if err != nil {
		return nil, err
	}
	for _, n := range negocios {
		if col := byEtapa[n.Etapa]; col != nil {
			col.Negocios = append(col.Negocios, n)
		}
	}
	for _, col := range cols {
		col.Cantidad = len(col.Negocios)
	}
	return cols, nil
}

func (s *negocioService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Negocio, error) {
	n, err := s.negocioRepo.GetDetail(dbc, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, errNegocioNotFound()
	}
	return n, nil
}

func errNegocioNotFound() error {
	return apierr.NotFound("negocio_not_found", "Negocio no encontrado")
}

// activeEmbudo returns the active stage named etapa, or nil.
func (s *negocioService) activeEmbudo(dbc dbctx.Context, etapa string) (*types.Embudo, error) {
	e, err := s.embudoRepo.GetByNombre(dbc, etapa)
	if err != nil {
		return nil, err
	}
	if e == nil || !e.Activo {
		return nil, nil
	}
	return e, nil
}

func (s *negocioService) ActualizarEtapa(ctx context.Context, id uuid.UUID, etapa string) (*EtapaCambio, error) {
	etapa = strings.TrimSpace(etapa)
	if etapa == "" {
		return nil, apierr.Field("etapa", "La etapa es obligatoria")
	}

	var out *EtapaCambio
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		embudo, err := s.activeEmbudo(inner, etapa)
		if err != nil {
			return err
		}
		if embudo == nil {
			return apierr.Field("etapa", msgEtapaInvalida)
		}
		n, err := s.negocioRepo.GetByID(inner, id)
		if err != nil {
			return err
		}
		if n == nil {
			return errNegocioNotFound()
		}
		updates := map[string]interface{}{
			"etapa":     etapa,
			"embudo_id": embudo.ID,
		}
		if etapa == crm.EtapaCierre {
			updates["convertido_cliente"] = true
		}
		if err := s.negocioRepo.UpdateFields(inner, id, updates); err != nil {
			return err
		}
		reloaded, err := s.negocioRepo.GetByID(inner, id)
		if err != nil {
			return err
		}
		out = &EtapaCambio{Negocio: reloaded, EtapaAnterior: n.Etapa}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Negocio stage changed", "negocio_id", id, "from", out.EtapaAnterior, "to", etapa)
	s.notifier.EtapaActualizada(ctx, out.Negocio, out.EtapaAnterior)
	return out, nil
}

func (s *negocioService) Update(ctx context.Context, id uuid.UUID, in NegocioInput) (*types.Negocio, error) {
	etapa := strings.TrimSpace(in.Etapa)
	var out *types.Negocio
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		verr := apierr.NewValidation()
		if in.TerrenoID == nil {
			verr.Add("terreno_id", "Debe seleccionar un terreno")
		} else if ok, err := s.terrenoRepo.Exists(inner, *in.TerrenoID); err != nil {
			return err
		} else if !ok {
			verr.Add("terreno_id", "El terreno seleccionado no existe")
		}
		var embudo *types.Embudo
		if etapa == "" {
			verr.Add("etapa", "La etapa es obligatoria")
		} else {
			e, err := s.activeEmbudo(inner, etapa)
			if err != nil {
				return err
			}
			if e == nil {
				verr.Add("etapa", msgEtapaInvalida)
			}
			embudo = e
		}
		if in.FechaInicio == nil {
			verr.Add("fecha_inicio", "La fecha de inicio es obligatoria")
		}
		if in.MontoEstimado != nil && *in.MontoEstimado < 0 {
			verr.Add("monto_estimado", "El monto estimado no puede ser negativo")
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		ok, err := s.negocioRepo.Exists(inner, id)
		if err != nil {
			return err
		}
		if !ok {
			return errNegocioNotFound()
		}
		updates := map[string]interface{}{
			"terreno_id":     *in.TerrenoID,
			"etapa":          etapa,
			"embudo_id":      embudo.ID,
			"fecha_inicio":   datatypes.Date(*in.FechaInicio),
			"monto_estimado": in.MontoEstimado,
			"notas":          in.Notas,
		}
		if etapa == crm.EtapaCierre {
			updates["convertido_cliente"] = true
		}
		if err := s.negocioRepo.UpdateFields(inner, id, updates); err != nil {
			return err
		}
		out, err = s.negocioRepo.GetByID(inner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *negocioService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		ok, err := s.negocioRepo.Exists(inner, id)
		if err != nil {
			return err
		}
		if !ok {
			return errNegocioNotFound()
		}
		if err := s.seguimientoRepo.DeleteByNegocioIDs(inner, []uuid.UUID{id}); err != nil {
			return err
		}
		return s.negocioRepo.DeleteByIDs(inner, []uuid.UUID{id})
	})
}

func (s *negocioService) Estadisticas(dbc dbctx.Context, asesorID *uuid.UUID) (*Estadisticas, error) {
	out := &Estadisticas{}
	g, gctx := errgroup.WithContext(ctxutil.Default(dbc.Ctx))
	if dbc.Tx != nil {
		g.SetLimit(1)
	}
	gdbc := dbctx.Context{Ctx: gctx, Tx: dbc.Tx}
	count := func(dst *int64, o crmrepo.Outcome) {
		g.Go(func() error {
			n, err := s.negocioRepo.Count(gdbc, asesorID, o)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	count(&out.Total, crmrepo.OutcomeAll)
	count(&out.Activos, crmrepo.OutcomeActivos)
	count(&out.Ganados, crmrepo.OutcomeGanados)
	count(&out.Perdidos, crmrepo.OutcomePerdidos)
	g.Go(func() error {
		sum, err := s.negocioRepo.SumMontoGanado(gdbc, asesorID)
		if err != nil {
			return err
		}
		out.MontoTotalGanado = sum
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.TasaConversion = TasaConversion(out.Ganados, out.Total)
	return out, nil
}

// TasaConversion is ganados/total as a percentage rounded to two decimals.
func TasaConversion(ganados, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(ganados)/float64(total)*100*100) / 100
}
