package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
)

func dbcFrom(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// pathID parses a uuid path parameter. Malformed ids render 404 since they
// cannot name an existing row.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		response.Fail(c, http.StatusNotFound, "not_found", "Recurso no encontrado")
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID returns nil for an absent parameter.
func queryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apierr.Field(name, "El campo "+name+" debe ser un identificador válido.")
	}
	return &id, nil
}

// queryBool accepts the usual truthy spellings; anything else is def.
func queryBool(c *gin.Context, name string, def bool) bool {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def
	}
	return parseBool(raw, def)
}

func parseBool(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// queryOptBool is nil unless the parameter is present and recognizable.
func queryOptBool(c *gin.Context, name string) *bool {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		v := true
		return &v
	case "0", "false", "no", "off":
		v := false
		return &v
	}
	return nil
}

func queryPage(c *gin.Context) int {
	page, _ := strconv.Atoi(c.Query("page"))
	return page
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime reads the date formats browsers and the bridge send. Values
// without a zone are taken as UTC.
func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// optTime collects a parse failure on verr under field.
func optTime(verr *apierr.ValidationError, field string, raw *string) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	t, ok := parseTime(*raw)
	if !ok {
		verr.Add(field, "El campo "+field+" no es una fecha válida.")
		return nil
	}
	return &t
}

func optUUID(verr *apierr.ValidationError, field string, raw *string) *uuid.UUID {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		verr.Add(field, "El campo "+field+" debe ser un identificador válido.")
		return nil
	}
	return &id
}
