package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/testutil"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
	httpH "github.com/yungbote/terrenos-crm-backend/internal/http/handlers"
	httpMW "github.com/yungbote/terrenos-crm-backend/internal/http/middleware"
	"github.com/yungbote/terrenos-crm-backend/internal/realtime"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

const testWebhookSecret = "s3cret"

type apiEnv struct {
	db     *gorm.DB
	router *gin.Engine
	admin  string
	asesor string

	adminID  uuid.UUID
	asesorID uuid.UUID
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC))
	hub := realtime.NewSSEHub(log)
	emit := &services.HubEmitter{Hub: hub}

	userRepo := repos.NewUserRepo(db, log)
	tokenRepo := repos.NewUserTokenRepo(db, log)
	terrenoRepo := repos.NewTerrenoRepo(db, log)
	proyectoRepo := repos.NewProyectoRepo(db, log)
	categoriaRepo := repos.NewCategoriaRepo(db, log)
	leadRepo := repos.NewLeadRepo(db, log)
	negocioRepo := repos.NewNegocioRepo(db, log)
	embudoRepo := repos.NewEmbudoRepo(db, log)
	seguimientoRepo := repos.NewSeguimientoRepo(db, log)
	convRepo := repos.NewWhatsappConversationRepo(db, log)
	msgRepo := repos.NewWhatsappMessageRepo(db, log)
	autoReplyRepo := repos.NewWhatsappAutoReplyRepo(db, log)

	authSvc := services.NewAuthService(db, log, clock, userRepo, tokenRepo, "test-secret", time.Hour, 24*time.Hour)
	userSvc := services.NewUserService(db, log, userRepo)
	crmNotifier := services.NewCRMNotifier(emit)
	waNotifier := services.NewWhatsappNotifier(emit)

	r := NewRouter(RouterConfig{
		Log:              log,
		WebhookSecret:    testWebhookSecret,
		WebhookRateLimit: 1000,
		WebhookBurst:     1000,

		HealthHandler:  httpH.NewHealthHandler(db),
		AuthHandler:    httpH.NewAuthHandler(authSvc),
		AuthMiddleware: httpMW.NewAuthMiddleware(log, authSvc),
		UserHandler:    httpH.NewUserHandler(userSvc),

		RealtimeHandler: httpH.NewRealtimeHandler(log, hub, nil),

		InventoryHandler: httpH.NewInventoryHandler(services.NewInventoryService(db, log, terrenoRepo, proyectoRepo, categoriaRepo)),
		MapaHandler:      httpH.NewMapaHandler(services.NewMapaService(db, log, proyectoRepo, terrenoRepo, repos.NewMapaRepo(db, log))),
		LeadHandler:      httpH.NewLeadHandler(services.NewLeadService(db, log, leadRepo, negocioRepo, seguimientoRepo, embudoRepo, terrenoRepo)),
		NegocioHandler:   httpH.NewNegocioHandler(services.NewNegocioService(db, log, negocioRepo, embudoRepo, seguimientoRepo, terrenoRepo, crmNotifier)),
		EmbudoHandler:    httpH.NewEmbudoHandler(services.NewEmbudoService(db, log, embudoRepo, negocioRepo, seguimientoRepo)),

		ConversationHandler: httpH.NewWhatsappConversationHandler(
			services.NewWhatsappConversationService(db, log, clock, convRepo, msgRepo, leadRepo, userRepo),
		),
		MessageHandler: httpH.NewWhatsappMessageHandler(log, services.NewWhatsappMessageService(
			db, log, clock, msgRepo, convRepo, autoReplyRepo, nil, waNotifier, nil,
		)),
		AutoReplyHandler: httpH.NewWhatsappAutoReplyHandler(services.NewWhatsappAutoReplyService(db, log, autoReplyRepo)),
	})

	env := &apiEnv{db: db, router: r}
	ctx := context.Background()
	admin, err := userSvc.Create(ctx, services.CreateUserInput{Name: "Admin", Email: "admin@example.com", Password: "password123", Role: user.RoleAdmin})
	require.NoError(t, err)
	asesor, err := userSvc.Create(ctx, services.CreateUserInput{Name: "Asesor", Email: "asesor@example.com", Password: "password123", Role: user.RoleAsesor})
	require.NoError(t, err)
	env.adminID, env.asesorID = admin.ID, asesor.ID
	env.admin = env.login(t, "admin@example.com")
	env.asesor = env.login(t, "asesor@example.com")
	return env
}

func (e *apiEnv) login(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/login", "", map[string]any{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Data.AccessToken)
	return out.Data.AccessToken
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) webhook(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", testWebhookSecret)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndAuthGate(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(t, http.MethodGet, "/up", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/leads", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])

	rec = e.do(t, http.MethodGet, "/api/leads", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	e := newAPIEnv(t)
	body := map[string]any{"name": "Nuevo", "email": "nuevo@example.com", "password": "password123", "role": "asesor"}

	rec := e.do(t, http.MethodPost, "/api/users", e.asesor, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/users", e.admin, body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestLeadLifecycle(t *testing.T) {
	e := newAPIEnv(t)
	ctx := context.Background()
	testutil.SeedEmbudos(t, ctx, e.db)
	p := testutil.SeedProyecto(t, ctx, e.db, "Urb. Las Palmas")
	terreno := testutil.SeedTerreno(t, ctx, e.db, p.ID, "UV1-MZ2-L3", testutil.TerrenoOpts{Numero: "3", Precio: 15000})

	rec := e.do(t, http.MethodPost, "/api/leads", e.asesor, map[string]any{"carnet": "123"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Error de validación", out["message"])
	assert.Contains(t, out["errors"], "nombre")

	rec = e.do(t, http.MethodPost, "/api/leads", e.asesor, map[string]any{
		"nombre":         "Juan Pérez",
		"carnet":         "4455667",
		"numero_1":       "70000000",
		"crear_acuerdo":  true,
		"terreno_id":     terreno.ID.String(),
		"etapa":          "Contacto Inicial",
		"fecha_inicio":   "2025-03-10",
		"monto_estimado": 15000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lead := decode(t, rec)["data"].(map[string]any)
	id := lead["id"].(string)

	rec = e.do(t, http.MethodGet, "/api/leads/"+id, e.asesor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "Juan Pérez", got["nombre"])
	require.NotNil(t, got["negocio"])

	rec = e.do(t, http.MethodGet, "/api/leads/not-a-uuid", e.asesor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/leads", e.asesor, map[string]any{
		"nombre": "Otro", "carnet": "4455667", "numero_1": "7111",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "carnet")

	rec = e.do(t, http.MethodDelete, "/api/leads/"+id, e.asesor, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/leads/"+id, e.asesor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmbudoValidation(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(t, http.MethodPost, "/api/embudos", e.admin, map[string]any{"nombre": "Nueva", "color": "blue"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "color")

	rec = e.do(t, http.MethodPost, "/api/embudos/reordenar", e.admin, map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMapaReturnsBareJSON(t *testing.T) {
	e := newAPIEnv(t)
	testutil.SeedProyecto(t, context.Background(), e.db, "Urb. Norte")

	rec := e.do(t, http.MethodGet, "/api/mapa/proyectos", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Urb. Norte", out[0]["nombre"])
}

func TestMapaUnknownProyecto(t *testing.T) {
	e := newAPIEnv(t)
	missing := uuid.New().String()

	rec := e.do(t, http.MethodGet, "/api/mapa/proyectos/"+missing, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, layer := range []string{"barrios", "cuadras", "terrenos", "terrenos/disponibles"} {
		rec = e.do(t, http.MethodGet, "/api/mapa/proyectos/"+missing+"/"+layer, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, layer)
		assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, rec.Body.String(), layer)
	}

	rec = e.do(t, http.MethodGet, "/api/mapa/proyectos/"+missing+"/categorias", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSSESubscribeChannels(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(t, http.MethodPost, "/api/sse/subscribe", e.asesor, map[string]any{"channel": realtime.UserChannel(e.adminID)})
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/sse/subscribe", e.asesor, map[string]any{"channel": "leads"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Allowed channels get past the check and only fail for lack of an open stream.
	for _, ch := range []string{realtime.ChannelWhatsapp, realtime.UserChannel(e.asesorID)} {
		rec = e.do(t, http.MethodPost, "/api/sse/subscribe", e.asesor, map[string]any{"channel": ch})
		assert.Equal(t, http.StatusConflict, rec.Code, ch)
	}

	rec = e.do(t, http.MethodPost, "/api/sse/unsubscribe", e.asesor, map[string]any{"channel": realtime.UserChannel(e.adminID)})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWebhookRequiresSecret(t *testing.T) {
	e := newAPIEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/whatsapp/clear-chats", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookMessageWithAutoReply(t *testing.T) {
	e := newAPIEnv(t)
	testutil.SeedAutoReply(t, context.Background(), e.db, "precio", "Nuestros lotes desde 10.000 Bs", 10, true)

	msg := map[string]any{
		"message_id":    "wamid.1",
		"contact_phone": "59170000001",
		"contact_name":  "Ana",
		"content":       "Hola, cuál es el PRECIO?",
		"type":          "text",
	}
	rec := e.webhook(t, "/api/whatsapp/webhook/message", msg)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "Mensaje recibido exitosamente", out["message"])
	data := out["data"].(map[string]any)
	require.NotNil(t, data["message"])
	reply, ok := data["auto_reply"].(map[string]any)
	require.True(t, ok, "expected auto reply")
	assert.Equal(t, "Nuestros lotes desde 10.000 Bs", reply["content"])
	assert.Equal(t, true, reply["is_auto_reply"])

	rec = e.webhook(t, "/api/whatsapp/webhook/message", msg)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mensaje ya registrado", decode(t, rec)["message"])

	rec = e.do(t, http.MethodGet, "/api/whatsapp/conversations/unread", e.asesor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	convs := decode(t, rec)["data"].([]any)
	require.Len(t, convs, 1)
	assert.Equal(t, "59170000001", convs[0].(map[string]any)["contact_phone"])

	rec = e.do(t, http.MethodPost, "/api/whatsapp/conversations/search", e.asesor, map[string]any{"phone": "59100000000"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookSyncChats(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.webhook(t, "/api/whatsapp/sync-chats", map[string]any{
		"contact_phone": "59170000001",
		"contact_name":  "Juan",
		"unread_count":  2,
		"status":        "active",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "Chat sincronizado exitosamente", out["message"])
	conv := out["data"].(map[string]any)
	assert.Equal(t, "59170000001", conv["contact_phone"])
	assert.Equal(t, "Juan", conv["contact_name"])
	assert.Equal(t, float64(2), conv["unread_count"])

	rec = e.webhook(t, "/api/whatsapp/sync-chats", map[string]any{"contact_name": "Sin teléfono"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "contact_phone")

	rec = e.webhook(t, "/api/whatsapp/sync-chats", map[string]any{
		"chats": []map[string]any{
			{"contact_phone": "59170000001", "contact_name": "Juan Pérez"},
			{"contact_phone": "59170000002", "contact_name": "Ana"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(2), res["synced"])
	assert.Equal(t, float64(1), res["created"])
	assert.Equal(t, float64(1), res["updated"])
}

func TestWebhookMultipartWithoutStorage(t *testing.T) {
	e := newAPIEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("message_id", "wamid.media"))
	require.NoError(t, mw.WriteField("contact_phone", "59170000002"))
	require.NoError(t, mw.WriteField("type", "image"))
	fw, err := mw.CreateFormFile("file", "foto.jpg")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("\xff\xd8\xff fake jpeg"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook/message", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Webhook-Secret", testWebhookSecret)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]any)
	m := data["message"].(map[string]any)
	assert.Equal(t, "image", m["type"])
	assert.Empty(t, m["media_url"])
	assert.Nil(t, data["auto_reply"])
}

func TestWebhookRejectsMissingFields(t *testing.T) {
	e := newAPIEnv(t)
	rec := e.webhook(t, "/api/whatsapp/webhook/message", map[string]any{"type": "text"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := decode(t, rec)["errors"].(map[string]any)
	assert.Contains(t, errs, "message_id")
	assert.Contains(t, errs, "contact_phone")
	assert.Contains(t, errs, "content")
}

func TestAutoReplyEndpoints(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(t, http.MethodPost, "/api/whatsapp/auto-replies", e.admin, map[string]any{
		"reply_message": "sin clave",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/whatsapp/auto-replies", e.admin, map[string]any{
		"trigger_keyword": "ubicacion",
		"reply_message":   "Estamos en la zona norte",
		"priority":        5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/whatsapp/auto-replies/find-match", e.admin, map[string]any{"message": "  UBICACION  "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Estamos en la zona norte", decode(t, rec)["data"].(map[string]any)["reply_message"])

	rec = e.do(t, http.MethodPost, "/api/whatsapp/auto-replies/find-match", e.admin, map[string]any{"message": "hola"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No se encontró respuesta automática para este mensaje", decode(t, rec)["message"])

	rec = e.do(t, http.MethodGet, "/api/whatsapp/auto-replies/greeting", e.admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
