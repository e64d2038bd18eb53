package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
	"github.com/yungbote/terrenos-crm-backend/internal/utils"
)

//go:embed seeds/default.yaml
var defaultSeed []byte

type SeedFile struct {
	Embudos []SeedEmbudo `yaml:"embudos"`
	Roles   []SeedRole   `yaml:"roles"`
	Users   []SeedUser   `yaml:"users"`
}

type SeedEmbudo struct {
	Nombre      string `yaml:"nombre"`
	Color       string `yaml:"color"`
	Icono       string `yaml:"icono"`
	Orden       int    `yaml:"orden"`
	Activo      *bool  `yaml:"activo"`
	Descripcion string `yaml:"descripcion"`
}

type SeedRole struct {
	Nombre      string `yaml:"nombre"`
	Descripcion string `yaml:"descripcion"`
}

type SeedUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type SeedResult struct {
	EmbudosCreated int
	EmbudosUpdated int
	UsersCreated   int
}

// LoadSeedFile reads path, or the embedded defaults when path is empty.
func LoadSeedFile(path string) (*SeedFile, error) {
	raw := defaultSeed
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		raw = b
	}
	var sf SeedFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for _, r := range sf.Roles {
		if !isKnownRole(r.Nombre) {
			return nil, fmt.Errorf("seed role %q is not supported", r.Nombre)
		}
	}
	return &sf, nil
}

func isKnownRole(role string) bool {
	return role == types.RoleAdmin || role == types.RoleAsesor
}

// Seed upserts pipeline stages by nombre and creates missing bootstrap users.
func Seed(ctx context.Context, db *gorm.DB, sf *SeedFile, log *logger.Logger) (*SeedResult, error) {
	if sf == nil {
		return nil, errors.New("seed file required")
	}
	res := &SeedResult{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range sf.Embudos {
			created, err := upsertEmbudo(tx, e)
			if err != nil {
				return err
			}
			if created {
				res.EmbudosCreated++
			} else {
				res.EmbudosUpdated++
			}
		}
		for _, u := range sf.Users {
			created, err := ensureUser(tx, u)
			if err != nil {
				return err
			}
			if created {
				res.UsersCreated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Info("Seed applied",
			"embudos_created", res.EmbudosCreated,
			"embudos_updated", res.EmbudosUpdated,
			"users_created", res.UsersCreated,
		)
	}
	return res, nil
}

func upsertEmbudo(tx *gorm.DB, e SeedEmbudo) (bool, error) {
	nombre := strings.TrimSpace(e.Nombre)
	if nombre == "" {
		return false, errors.New("seed embudo without nombre")
	}
	activo := true
	if e.Activo != nil {
		activo = *e.Activo
	}
	color := e.Color
	if color == "" {
		color = types.DefaultEmbudoColor
	}

	var existing types.Embudo
	err := tx.Where("nombre = ?", nombre).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := &types.Embudo{
			ID:          uuid.New(),
			Nombre:      nombre,
			Color:       color,
			Icono:       e.Icono,
			Orden:       e.Orden,
			Activo:      activo,
			Descripcion: e.Descripcion,
		}
		if err := tx.Create(row).Error; err != nil {
			return false, fmt.Errorf("create embudo %q: %w", nombre, err)
		}
		return true, nil
	case err != nil:
		return false, err
	}

	if err := tx.Model(&types.Embudo{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"color":       color,
			"icono":       e.Icono,
			"orden":       e.Orden,
			"activo":      activo,
			"descripcion": e.Descripcion,
		}).Error; err != nil {
		return false, fmt.Errorf("update embudo %q: %w", nombre, err)
	}
	return false, nil
}

func ensureUser(tx *gorm.DB, u SeedUser) (bool, error) {
	email := utils.NormalizeEmail(u.Email)
	if email == "" {
		return false, errors.New("seed user without email")
	}
	role := u.Role
	if role == "" {
		role = types.RoleAsesor
	}
	if !isKnownRole(role) {
		return false, fmt.Errorf("seed user %q: unknown role %q", email, role)
	}

	var count int64
	if err := tx.Model(&types.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return false, fmt.Errorf("seed user %q: %w", email, err)
	}
	row := &types.User{
		ID:       uuid.New(),
		Name:     u.Name,
		Email:    email,
		Password: hashed,
		Role:     role,
		Active:   true,
	}
	if err := tx.Create(row).Error; err != nil {
		return false, fmt.Errorf("create user %q: %w", email, err)
	}
	return true, nil
}
