package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/terrenos-crm-backend/internal/pkg/errors"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/ctxutil"
)

var errNoUser = apierr.New(http.StatusUnauthorized, "unauthorized", pkgerrors.ErrUnauthorized)

// requireUser returns the authenticated user id or a 401.
func requireUser(ctx context.Context) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, errNoUser
	}
	return rd.UserID, nil
}

// optionalUser returns nil when the context carries no user (webhooks).
func optionalUser(ctx context.Context) *uuid.UUID {
	id := ctxutil.CurrentUserID(ctx)
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// inTx runs fn inside dbc's transaction when it has one, otherwise in a new one.
func inTx(db *gorm.DB, dbc dbctx.Context, fn func(inner dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	ctx := ctxutil.Default(dbc.Ctx)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

// conflictOr maps unique-index violations onto a 422 for field, keeping
// other errors untouched.
func conflictOr(err error, field, msg string) error {
	if pkgerrors.IsUniqueViolation(err) {
		return apierr.Field(field, msg)
	}
	return err
}

const alphanumerics = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomAlphanumeric(n int) (string, error) {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(alphanumerics)))
	for i := range buf {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("random id: %w", err)
		}
		buf[i] = alphanumerics[k.Int64()]
	}
	return string(buf), nil
}
