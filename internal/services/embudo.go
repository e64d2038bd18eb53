package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

const (
	msgEmbudoNombreDuplicado = "Ya existe un embudo con ese nombre"
	msgEmbudoColor           = "El color debe estar en formato hexadecimal (#RRGGBB)"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// EmbudoInput is a partial update; nil fields are left alone. Create requires
// Nombre and Color.
type EmbudoInput struct {
	Nombre      *string
	Color       *string
	Icono       *string
	Orden       *int
	Activo      *bool
	Descripcion *string
}

// OrdenItem assigns one stage its position.
type OrdenItem struct {
	ID    uuid.UUID
	Orden int
}

type EmbudoService interface {
	List(dbc dbctx.Context, soloActivos bool) ([]*types.Embudo, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Embudo, error)
	Create(ctx context.Context, in EmbudoInput) (*types.Embudo, error)
	Update(ctx context.Context, id uuid.UUID, in EmbudoInput) (*types.Embudo, error)
	Delete(ctx context.Context, id uuid.UUID, force bool) error
	Reordenar(ctx context.Context, items []OrdenItem) ([]*types.Embudo, error)
}

type embudoService struct {
	db              *gorm.DB
	log             *logger.Logger
	embudoRepo      repos.EmbudoRepo
	negocioRepo     repos.NegocioRepo
	seguimientoRepo repos.SeguimientoRepo
}

func NewEmbudoService(
	db *gorm.DB,
	log *logger.Logger,
	embudoRepo repos.EmbudoRepo,
	negocioRepo repos.NegocioRepo,
	seguimientoRepo repos.SeguimientoRepo,
) EmbudoService {
	return &embudoService{
		db:              db,
		log:             log.With("service", "EmbudoService"),
		embudoRepo:      embudoRepo,
		negocioRepo:     negocioRepo,
		seguimientoRepo: seguimientoRepo,
	}
}

func errEmbudoNotFound() error {
	return apierr.NotFound("embudo_not_found", "Embudo no encontrado")
}

func (s *embudoService) List(dbc dbctx.Context, soloActivos bool) ([]*types.Embudo, error) {
	return s.embudoRepo.List(dbc, soloActivos)
}

func (s *embudoService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Embudo, error) {
	e, err := s.embudoRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errEmbudoNotFound()
	}
	n, err := s.negocioRepo.CountByEtapa(dbc, e.Nombre)
	if err != nil {
		return nil, err
	}
	e.NegociosCount = &n
	return e, nil
}

func (s *embudoService) validate(dbc dbctx.Context, in EmbudoInput, exclude *uuid.UUID, creating bool) error {
	verr := apierr.NewValidation()
	if in.Nombre != nil || creating {
		nombre := ""
		if in.Nombre != nil {
			nombre = strings.TrimSpace(*in.Nombre)
		}
		switch {
		case nombre == "":
			verr.Add("nombre", "El nombre del embudo es requerido")
		case len([]rune(nombre)) > 255:
			verr.Add("nombre", "El nombre no puede superar 255 caracteres")
		default:
			exists, err := s.embudoRepo.NombreExists(dbc, nombre, exclude)
			if err != nil {
				return err
			}
			if exists {
				verr.Add("nombre", msgEmbudoNombreDuplicado)
			}
		}
	}
	if in.Color != nil || creating {
		switch {
		case in.Color == nil || *in.Color == "":
			verr.Add("color", "El color es requerido")
		case !hexColor.MatchString(*in.Color):
			verr.Add("color", msgEmbudoColor)
		}
	}
	if in.Icono != nil && len([]rune(*in.Icono)) > 50 {
		verr.Add("icono", "El icono no puede superar 50 caracteres")
	}
	if in.Orden != nil && *in.Orden < 0 {
		verr.Add("orden", "El orden debe ser mayor o igual a 0")
	}
	if in.Descripcion != nil && len([]rune(*in.Descripcion)) > 500 {
		verr.Add("descripcion", "La descripción no puede superar 500 caracteres")
	}
	return verr.OrNil()
}

func (s *embudoService) Create(ctx context.Context, in EmbudoInput) (*types.Embudo, error) {
	var out *types.Embudo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.validate(inner, in, nil, true); err != nil {
			return err
		}
		e := &types.Embudo{
			Nombre: strings.TrimSpace(*in.Nombre),
			Color:  *in.Color,
			Activo: true,
		}
		if in.Icono != nil {
			e.Icono = *in.Icono
		}
		if in.Activo != nil {
			e.Activo = *in.Activo
		}
		if in.Descripcion != nil {
			e.Descripcion = *in.Descripcion
		}
		if in.Orden != nil {
			e.Orden = *in.Orden
		} else {
			maxOrden, err := s.embudoRepo.MaxOrden(inner)
			if err != nil {
				return err
			}
			e.Orden = maxOrden + 1
		}
		if _, err := s.embudoRepo.Create(inner, e); err != nil {
			return conflictOr(err, "nombre", msgEmbudoNombreDuplicado)
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Embudo created", "embudo_id", out.ID, "nombre", out.Nombre, "orden", out.Orden)
	return out, nil
}

// Update applies a partial change. A rename carries the stage's deals along.
func (s *embudoService) Update(ctx context.Context, id uuid.UUID, in EmbudoInput) (*types.Embudo, error) {
	var out *types.Embudo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		current, err := s.embudoRepo.GetByID(inner, id)
		if err != nil {
			return err
		}
		if current == nil {
			return errEmbudoNotFound()
		}
		if err := s.validate(inner, in, &id, false); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Nombre != nil {
			updates["nombre"] = strings.TrimSpace(*in.Nombre)
		}
		if in.Color != nil {
			updates["color"] = *in.Color
		}
		if in.Icono != nil {
			updates["icono"] = *in.Icono
		}
		if in.Orden != nil {
			updates["orden"] = *in.Orden
		}
		if in.Activo != nil {
			updates["activo"] = *in.Activo
		}
		if in.Descripcion != nil {
			updates["descripcion"] = *in.Descripcion
		}
		if err := s.embudoRepo.UpdateFields(inner, id, updates); err != nil {
			return conflictOr(err, "nombre", msgEmbudoNombreDuplicado)
		}

		if nombre, ok := updates["nombre"].(string); ok && nombre != current.Nombre {
			n, err := s.negocioRepo.RenameEtapa(inner, id, current.Nombre, nombre)
			if err != nil {
				return fmt.Errorf("rename negocios etapa: %w", err)
			}
			s.log.Info("Embudo renamed", "embudo_id", id, "from", current.Nombre, "to", nombre, "negocios", n)
		}

		out, err = s.embudoRepo.GetByID(inner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete refuses while deals sit in the stage unless force is set, in which
// case those deals and their follow-ups go first.
func (s *embudoService) Delete(ctx context.Context, id uuid.UUID, force bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		e, err := s.embudoRepo.GetByID(inner, id)
		if err != nil {
			return err
		}
		if e == nil {
			return errEmbudoNotFound()
		}
		ids, err := s.negocioRepo.IDsByEtapa(inner, e.Nombre)
		if err != nil {
			return err
		}
		if len(ids) > 0 && !force {
			msg := fmt.Sprintf(
				"No se puede eliminar la etapa \"%s\" porque tiene %d negocio(s) en el tablero. Primero mueve los negocios a otra etapa.",
				e.Nombre, len(ids),
			)
			return apierr.BadRequest("embudo_has_negocios", msg).WithExtra("negocios_count", len(ids))
		}
		if len(ids) > 0 {
			if err := s.seguimientoRepo.DeleteByNegocioIDs(inner, ids); err != nil {
				return err
			}
			if err := s.negocioRepo.DeleteByIDs(inner, ids); err != nil {
				return err
			}
			s.log.Warn("Embudo force delete removed negocios", "embudo_id", id, "negocios", len(ids))
		}
		if err := s.negocioRepo.ClearEmbudo(inner, id); err != nil {
			return err
		}
		return s.embudoRepo.Delete(inner, id)
	})
}

func (s *embudoService) Reordenar(ctx context.Context, items []OrdenItem) ([]*types.Embudo, error) {
	if len(items) == 0 {
		return nil, apierr.Field("embudos", "Debe enviar al menos un embudo")
	}
	verr := apierr.NewValidation()
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for i, it := range items {
		if it.Orden < 1 {
			verr.Add(fmt.Sprintf("embudos.%d.orden", i), "El orden debe ser al menos 1")
		}
		if !seen[it.ID] {
			seen[it.ID] = true
			ids = append(ids, it.ID)
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var out []*types.Embudo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		n, err := s.embudoRepo.CountExisting(inner, ids)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return apierr.Field("embudos", "Uno o más embudos no existen")
		}
		for _, it := range items {
			if err := s.embudoRepo.SetOrden(inner, it.ID, it.Orden); err != nil {
				return err
			}
		}
		out, err = s.embudoRepo.List(inner, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OrdenFromIDs turns an id list into positions starting at 1.
func OrdenFromIDs(ids []uuid.UUID) []OrdenItem {
	out := make([]OrdenItem, 0, len(ids))
	for i, id := range ids {
		out = append(out, OrdenItem{ID: id, Orden: i + 1})
	}
	return out
}
