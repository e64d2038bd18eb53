package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/terrenos-crm-backend/internal/pkg/errors"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/ctxutil"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
	"github.com/yungbote/terrenos-crm-backend/internal/utils"
)

type JWTClaims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *types.User `json:"user,omitempty"`
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	clock         clockwork.Clock
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

var errBadCredentials = apierr.New(http.StatusUnauthorized, "invalid_credentials", fmt.Errorf("Credenciales inválidas"))

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	clock clockwork.Clock,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:            db,
		log:           serviceLog,
		clock:         clock,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errBadCredentials
	}

	var out *TokenPair
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		user, err := as.userRepo.GetByEmail(inner, email)
		if err != nil {
			return fmt.Errorf("get user by email: %w", err)
		}
		if user == nil || !user.Active || !utils.CheckPassword(user.Password, password) {
			return errBadCredentials
		}

		now := as.clock.Now()
		if _, err := as.userTokenRepo.DeleteExpired(inner, now); err != nil {
			as.log.Warn("Failed to prune expired sessions", "error", err)
		}

		sessionID := uuid.New()
		access, err := as.generateAccessToken(user, sessionID, now)
		if err != nil {
			return fmt.Errorf("generate access token: %w", err)
		}
		refresh := uuid.NewString()
		session := &types.UserToken{
			ID:           sessionID,
			UserID:       user.ID,
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresAt:    now.Add(as.refreshTTL),
		}
		if _, err := as.userTokenRepo.Create(inner, []*types.UserToken{session}); err != nil {
			return fmt.Errorf("create user token: %w", err)
		}
		out = as.pair(access, refresh, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("User logged in", "user_id", out.User.ID)
	return out, nil
}

// Refresh rotates both tokens of the session that owns refreshToken.
func (as *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apierr.New(http.StatusUnauthorized, "invalid_refresh_token", pkgerrors.ErrUnauthorized)
	}

	var out *TokenPair
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		session, err := as.userTokenRepo.GetByRefreshToken(inner, refreshToken)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if session == nil {
			return apierr.New(http.StatusUnauthorized, "invalid_refresh_token", pkgerrors.ErrUnauthorized)
		}
		now := as.clock.Now()
		if !session.ExpiresAt.After(now) {
			if err := as.userTokenRepo.DeleteByIDs(inner, []uuid.UUID{session.ID}); err != nil {
				return fmt.Errorf("delete expired session: %w", err)
			}
			return apierr.New(http.StatusUnauthorized, "refresh_token_expired", pkgerrors.ErrUnauthorized)
		}
		user, err := as.userRepo.GetByID(inner, session.UserID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if user == nil || !user.Active {
			return apierr.New(http.StatusUnauthorized, "user_inactive", pkgerrors.ErrUnauthorized)
		}
		access, err := as.generateAccessToken(user, session.ID, now)
		if err != nil {
			return fmt.Errorf("generate access token: %w", err)
		}
		refresh := uuid.NewString()
		if err := as.userTokenRepo.Rotate(inner, session.ID, access, refresh, now.Add(as.refreshTTL)); err != nil {
			return fmt.Errorf("rotate session: %w", err)
		}
		out = as.pair(access, refresh, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (as *authService) Logout(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.SessionID == uuid.Nil {
		as.log.Warn("No session in request data")
		return errNoUser
	}
	return as.userTokenRepo.DeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{rd.SessionID})
}

// SetContextFromToken validates the JWT and its backing session, then
// attaches the caller to ctx.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.clock.Now))
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired JWT token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return ctx, fmt.Errorf("invalid session id in token: %w", err)
	}

	session, err := as.userTokenRepo.GetByID(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil {
		return ctx, fmt.Errorf("get session: %w", err)
	}
	if session == nil || session.UserID != userID || session.AccessToken != tokenString {
		return ctx, fmt.Errorf("session revoked")
	}

	rd := &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		SessionID:   sessionID,
		Role:        claims.Role,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

func (as *authService) generateAccessToken(user *types.User, sessionID uuid.UUID, now time.Time) (string, error) {
	claims := JWTClaims{
		SessionID: sessionID.String(),
		Role:      user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) pair(access, refresh string, user *types.User) *TokenPair {
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(as.accessTTL.Seconds()),
		User:         user,
	}
}
