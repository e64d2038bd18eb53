package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/testutil"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/ctxutil"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
	"github.com/yungbote/terrenos-crm-backend/internal/realtime"
)

// testNow is a Wednesday; date-sensitive tests pin the fake clock here.
var testNow = time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (r *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingEmitter) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, string(m.Event))
	}
	return out
}

func (r *recordingEmitter) last() realtime.SSEMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return realtime.SSEMessage{}
	}
	return r.msgs[len(r.msgs)-1]
}

type env struct {
	db    *gorm.DB
	log   *logger.Logger
	clock *clockwork.FakeClock
	emit  *recordingEmitter

	users         repos.UserRepo
	tokens        repos.UserTokenRepo
	terrenos      repos.TerrenoRepo
	proyectos     repos.ProyectoRepo
	categorias    repos.CategoriaRepo
	mapa          repos.MapaRepo
	leads         repos.LeadRepo
	negocios      repos.NegocioRepo
	embudos       repos.EmbudoRepo
	seguimientos  repos.SeguimientoRepo
	sessions      repos.WhatsappSessionRepo
	conversations repos.WhatsappConversationRepo
	messages      repos.WhatsappMessageRepo
	autoReplies   repos.WhatsappAutoReplyRepo
}

// newEnv wires repos over a private sqlite database. Seed through e.db, not
// through a testutil.Tx: services open their own transactions on the single
// sqlite connection.
func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	return &env{
		db:            db,
		log:           log,
		clock:         clockwork.NewFakeClockAt(testNow),
		emit:          &recordingEmitter{},
		users:         repos.NewUserRepo(db, log),
		tokens:        repos.NewUserTokenRepo(db, log),
		terrenos:      repos.NewTerrenoRepo(db, log),
		proyectos:     repos.NewProyectoRepo(db, log),
		categorias:    repos.NewCategoriaRepo(db, log),
		mapa:          repos.NewMapaRepo(db, log),
		leads:         repos.NewLeadRepo(db, log),
		negocios:      repos.NewNegocioRepo(db, log),
		embudos:       repos.NewEmbudoRepo(db, log),
		seguimientos:  repos.NewSeguimientoRepo(db, log),
		sessions:      repos.NewWhatsappSessionRepo(db, log),
		conversations: repos.NewWhatsappConversationRepo(db, log),
		messages:      repos.NewWhatsappMessageRepo(db, log),
		autoReplies:   repos.NewWhatsappAutoReplyRepo(db, log),
	}
}

func asUser(id uuid.UUID, role string) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: id, Role: role})
}

func (e *env) leadService() LeadService {
	return NewLeadService(e.db, e.log, e.leads, e.negocios, e.seguimientos, e.embudos, e.terrenos)
}

func (e *env) negocioService() NegocioService {
	return NewNegocioService(e.db, e.log, e.negocios, e.embudos, e.seguimientos, e.terrenos, NewCRMNotifier(e.emit))
}

func (e *env) embudoService() EmbudoService {
	return NewEmbudoService(e.db, e.log, e.embudos, e.negocios, e.seguimientos)
}

func (e *env) seguimientoService() SeguimientoService {
	return NewSeguimientoService(e.db, e.log, e.clock, e.seguimientos, e.negocios, NewCRMNotifier(e.emit))
}

func (e *env) sessionService() WhatsappSessionService {
	return NewWhatsappSessionService(e.db, e.log, e.clock, e.sessions, NewWhatsappNotifier(e.emit))
}

func (e *env) conversationService() WhatsappConversationService {
	return NewWhatsappConversationService(e.db, e.log, e.clock, e.conversations, e.messages, e.leads, e.users)
}

func (e *env) autoReplyService() WhatsappAutoReplyService {
	return NewWhatsappAutoReplyService(e.db, e.log, e.autoReplies)
}

func (e *env) messageService(media MediaStore) WhatsappMessageService {
	return NewWhatsappMessageService(e.db, e.log, e.clock, e.messages, e.conversations, e.autoReplies, media, NewWhatsappNotifier(e.emit), nil)
}

func (e *env) inventoryService() InventoryService {
	return NewInventoryService(e.db, e.log, e.terrenos, e.proyectos, e.categorias)
}

func (e *env) mapaService() MapaService {
	return NewMapaService(e.db, e.log, e.proyectos, e.terrenos, e.mapa)
}
