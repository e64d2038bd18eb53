package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	crmrepo "github.com/yungbote/terrenos-crm-backend/internal/data/repos/crm"
	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/inventory"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/crm"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/ctxutil"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

const (
	LeadsPerPage = 50

	maxSugerencias     = 5
	maxSugerenciaDist  = 2
	msgCarnetDuplicado = "Este carnet/CI ya está registrado"
)

// LeadInput carries already shape-validated fields. The deal fields are read
// only when CrearAcuerdo is set.
type LeadInput struct {
	Nombre    string
	Carnet    string
	Numero1   string
	Numero2   string
	Direccion string

	CrearAcuerdo  bool
	TerrenoID     *uuid.UUID
	Etapa         string
	FechaInicio   *time.Time
	MontoEstimado *float64
	Notas         string
}

type LeadService interface {
	List(dbc dbctx.Context, f crmrepo.LeadFilter, p pagination.Params) (*pagination.Result[*types.Lead], error)
	Create(ctx context.Context, in LeadInput) (*types.Lead, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Lead, error)
	Update(ctx context.Context, id uuid.UUID, in LeadInput) (*types.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
	BuscarPorCodigo(dbc dbctx.Context, codigo string, proyectoID *uuid.UUID) (*inventory.TerrenoCode, error)
}

type leadService struct {
	db              *gorm.DB
	log             *logger.Logger
	leadRepo        repos.LeadRepo
	negocioRepo     repos.NegocioRepo
	seguimientoRepo repos.SeguimientoRepo
	embudoRepo      repos.EmbudoRepo
	terrenoRepo     repos.TerrenoRepo
}

func NewLeadService(
	db *gorm.DB,
	log *logger.Logger,
	leadRepo repos.LeadRepo,
	negocioRepo repos.NegocioRepo,
	seguimientoRepo repos.SeguimientoRepo,
	embudoRepo repos.EmbudoRepo,
	terrenoRepo repos.TerrenoRepo,
) LeadService {
	return &leadService{
		db:              db,
		log:             log.With("service", "LeadService"),
		leadRepo:        leadRepo,
		negocioRepo:     negocioRepo,
		seguimientoRepo: seguimientoRepo,
		embudoRepo:      embudoRepo,
		terrenoRepo:     terrenoRepo,
	}
}

// List scopes an asesor to their own leads; other roles may filter freely.
func (s *leadService) List(dbc dbctx.Context, f crmrepo.LeadFilter, p pagination.Params) (*pagination.Result[*types.Lead], error) {
	if ctxutil.HasRole(dbc.Ctx, user.RoleAsesor) {
		f.AsesorID = optionalUser(dbc.Ctx)
	}
	f.Buscar = strings.TrimSpace(f.Buscar)
	return s.leadRepo.List(dbc, f, p)
}

func (s *leadService) Create(ctx context.Context, in LeadInput) (*types.Lead, error) {
	asesorID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	var created *types.Lead
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		verr := apierr.NewValidation()
		if exists, err := s.leadRepo.CarnetExists(inner, in.Carnet, nil); err != nil {
			return err
		} else if exists {
			verr.Add("carnet", msgCarnetDuplicado)
		}
		if in.CrearAcuerdo {
			if in.TerrenoID == nil {
				verr.Add("terreno_id", "Debe seleccionar un terreno")
			} else if ok, err := s.terrenoRepo.Exists(inner, *in.TerrenoID); err != nil {
				return err
			} else if !ok {
				verr.Add("terreno_id", "El terreno seleccionado no existe")
			}
			if strings.TrimSpace(in.Etapa) == "" {
				verr.Add("etapa", "Debe seleccionar una etapa")
			}
			if in.FechaInicio == nil {
				verr.Add("fecha_inicio", "La fecha de inicio es obligatoria")
			}
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		lead := &types.Lead{
			Nombre:    strings.TrimSpace(in.Nombre),
			Carnet:    strings.TrimSpace(in.Carnet),
			Numero1:   strings.TrimSpace(in.Numero1),
			Numero2:   strings.TrimSpace(in.Numero2),
			Direccion: in.Direccion,
			AsesorID:  &asesorID,
			Estado:    true,
		}
		if _, err := s.leadRepo.Create(inner, lead); err != nil {
			return conflictOr(err, "carnet", msgCarnetDuplicado)
		}

		if in.CrearAcuerdo {
			embudoID, err := s.embudoIDFor(inner, in.Etapa)
			if err != nil {
				return err
			}
			negocio := &types.Negocio{
				LeadID:            lead.ID,
				TerrenoID:         in.TerrenoID,
				TipoOperacion:     crm.TipoOperacionVentas,
				Embudo:            crm.EmbudoVentas,
				EmbudoID:          embudoID,
				Etapa:             strings.TrimSpace(in.Etapa),
				FechaInicio:       datatypes.Date(*in.FechaInicio),
				MontoEstimado:     in.MontoEstimado,
				Notas:             in.Notas,
				AsesorID:          &asesorID,
				ConvertidoCliente: false,
			}
			if _, err := s.negocioRepo.Create(inner, negocio); err != nil {
				return fmt.Errorf("create negocio: %w", err)
			}
		}

		found, err := s.leadRepo.GetByID(inner, lead.ID)
		if err != nil {
			return err
		}
		created = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Lead created", "lead_id", created.ID, "con_negocio", in.CrearAcuerdo)
	return created, nil
}

func (s *leadService) embudoIDFor(dbc dbctx.Context, etapa string) (*uuid.UUID, error) {
	e, err := s.embudoRepo.GetByNombre(dbc, strings.TrimSpace(etapa))
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	return &e.ID, nil
}

func (s *leadService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Lead, error) {
	lead, err := s.leadRepo.GetDetail(dbc, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, apierr.NotFound("lead_not_found", "Lead no encontrado")
	}
	return lead, nil
}

func (s *leadService) Update(ctx context.Context, id uuid.UUID, in LeadInput) (*types.Lead, error) {
	var updated *types.Lead
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		ok, err := s.leadRepo.Exists(inner, id)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.NotFound("lead_not_found", "Lead no encontrado")
		}
		if exists, err := s.leadRepo.CarnetExists(inner, in.Carnet, &id); err != nil {
			return err
		} else if exists {
			return apierr.Field("carnet", msgCarnetDuplicado)
		}
		if err := s.leadRepo.UpdateFields(inner, id, map[string]interface{}{
			"nombre":    strings.TrimSpace(in.Nombre),
			"carnet":    strings.TrimSpace(in.Carnet),
			"numero_1":  strings.TrimSpace(in.Numero1),
			"numero_2":  strings.TrimSpace(in.Numero2),
			"direccion": in.Direccion,
		}); err != nil {
			return conflictOr(err, "carnet", msgCarnetDuplicado)
		}
		updated, err = s.leadRepo.GetByID(inner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the lead with its deal and the deal's follow-ups.
func (s *leadService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		ok, err := s.leadRepo.Exists(inner, id)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.NotFound("lead_not_found", "Lead no encontrado")
		}
		negocio, err := s.negocioRepo.GetByLeadID(inner, id)
		if err != nil {
			return err
		}
		if negocio != nil {
			if err := s.seguimientoRepo.DeleteByNegocioIDs(inner, []uuid.UUID{negocio.ID}); err != nil {
				return err
			}
			if err := s.negocioRepo.DeleteByIDs(inner, []uuid.UUID{negocio.ID}); err != nil {
				return err
			}
		}
		return s.leadRepo.Delete(inner, id)
	})
}

var codigoSeparators = regexp.MustCompile(`[\s-]+`)

// NormalizeCodigo uppercases a plot code and strips whitespace and hyphens.
func NormalizeCodigo(codigo string) string {
	return codigoSeparators.ReplaceAllString(strings.ToUpper(strings.TrimSpace(codigo)), "")
}

func (s *leadService) BuscarPorCodigo(dbc dbctx.Context, codigo string, proyectoID *uuid.UUID) (*inventory.TerrenoCode, error) {
	codigo = strings.TrimSpace(codigo)
	if codigo == "" || proyectoID == nil || *proyectoID == uuid.Nil {
		return nil, apierr.BadRequest("codigo_required", "Código o proyecto no enviado.")
	}
	want := NormalizeCodigo(codigo)
	codes, err := s.terrenoRepo.ListCodes(dbc, *proyectoID)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		ubicacion string
		dist      int
	}
	var near []candidate
	for i := range codes {
		if codes[i].Ubicacion == "" {
			continue
		}
		got := NormalizeCodigo(codes[i].Ubicacion)
		if got == want {
			return &codes[i], nil
		}
		if d := levenshtein.ComputeDistance(want, got); d <= maxSugerenciaDist {
			near = append(near, candidate{ubicacion: codes[i].Ubicacion, dist: d})
		}
	}
	sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })
	sugerencias := make([]string, 0, maxSugerencias)
	for _, c := range near {
		if len(sugerencias) == maxSugerencias {
			break
		}
		sugerencias = append(sugerencias, c.ubicacion)
	}
	return nil, apierr.NotFound("terreno_not_found", "Terreno no encontrado.").WithExtra("sugerencias", sugerencias)
}
