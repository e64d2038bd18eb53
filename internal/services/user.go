package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
	"github.com/yungbote/terrenos-crm-backend/internal/utils"
)

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type UserService interface {
	GetMe(dbc dbctx.Context) (*types.User, error)
	List(dbc dbctx.Context, role string) ([]*types.User, error)
	Create(ctx context.Context, in CreateUserInput) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	serviceLog := log.With("service", "UserService")
	return &userService{
		db:       db,
		log:      serviceLog,
		userRepo: userRepo,
	}
}

func (us *userService) GetMe(dbc dbctx.Context) (*types.User, error) {
	userID, err := requireUser(dbc.Ctx)
	if err != nil {
		us.log.Warn("User id not set in request data")
		return nil, err
	}
	u, err := us.userRepo.GetByID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	if u == nil {
		return nil, apierr.NotFound("user_not_found", "Usuario no encontrado")
	}
	return u, nil
}

func (us *userService) List(dbc dbctx.Context, role string) ([]*types.User, error) {
	role = strings.TrimSpace(role)
	if role != "" && !user.IsValidRole(role) {
		return nil, apierr.Field("role", "El rol seleccionado no es válido.")
	}
	return us.userRepo.List(dbc, role)
}

// Create registers a user. Callers are expected to have checked the admin
// role; the CLI bypasses it.
func (us *userService) Create(ctx context.Context, in CreateUserInput) (*types.User, error) {
	verr := apierr.NewValidation()
	name := strings.TrimSpace(in.Name)
	email := utils.NormalizeEmail(in.Email)
	role := strings.TrimSpace(in.Role)
	if name == "" {
		verr.Add("name", "El nombre es obligatorio.")
	}
	if email == "" || !strings.Contains(email, "@") {
		verr.Add("email", "El email no es válido.")
	}
	if !user.IsValidRole(role) {
		verr.Add("role", "El rol seleccionado no es válido.")
	}
	hashed, herr := utils.HashPassword(in.Password)
	if herr != nil {
		verr.Add("password", "La contraseña debe tener al menos 8 caracteres.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	u := &types.User{
		Name:     name,
		Email:    email,
		Password: hashed,
		Role:     role,
		Active:   true,
	}
	err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		exists, err := us.userRepo.EmailExists(inner, email)
		if err != nil {
			return err
		}
		if exists {
			return apierr.Field("email", "El email ya está registrado.")
		}
		if _, err := us.userRepo.Create(inner, []*types.User{u}); err != nil {
			return conflictOr(err, "email", "El email ya está registrado.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	us.log.Info("User created", "user_id", u.ID, "role", u.Role)
	return u, nil
}
