package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/testutil"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
	wa "github.com/yungbote/terrenos-crm-backend/internal/domain/whatsapp"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pointers"
	"github.com/yungbote/terrenos-crm-backend/internal/realtime"
)

type fakeMediaStore struct {
	mu      sync.Mutex
	enabled bool
	err     error
	puts    map[string]string
	deletes []string
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{enabled: true, puts: map[string]string{}}
}

func (f *fakeMediaStore) Enabled() bool { return f.enabled }

func (f *fakeMediaStore) Put(_ context.Context, key, contentType string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts[key] = contentType + ":" + string(b)
	return "https://media.test/" + key, nil
}

func (f *fakeMediaStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.puts, key)
	f.deletes = append(f.deletes, key)
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	agent := testutil.SeedUser(t, ctx, e.db, "agente@crm.test", user.RoleAsesor)
	svc := e.sessionService()

	sess, err := svc.Create(asUser(agent.ID, user.RoleAsesor), SessionInput{SessionID: pointers.String("bridge-1")})
	require.NoError(t, err)
	assert.Equal(t, wa.SessionDisconnected, sess.Status)
	require.NotNil(t, sess.AgentID)
	assert.Equal(t, agent.ID, *sess.AgentID)

	_, err = svc.Create(ctx, SessionInput{SessionID: pointers.String("bridge-1")})
	requireFieldError(t, err, "session_id")

	_, err = svc.Create(ctx, SessionInput{SessionID: pointers.String("bridge-2"), PhoneNumber: pointers.String(strings.Repeat("5", 21))})
	requireFieldError(t, err, "phone_number")

	dbc := dbctx.Context{Ctx: ctx}
	_, err = svc.GetQR(dbc, sess.ID)
	requireStatus(t, err, http.StatusNotFound)

	withQR, err := svc.SetQR(ctx, sess.ID, "qr-payload")
	require.NoError(t, err)
	assert.Equal(t, wa.SessionQRReady, withQR.Status)
	require.NotNil(t, withQR.LastActivity)
	assert.True(t, withQR.LastActivity.Equal(testNow))

	got, err := svc.GetQR(dbc, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "qr-payload", got.QRCode)

	_, err = svc.SetStatus(ctx, sess.ID, "sleeping")
	requireFieldError(t, err, "status")

	e.clock.Advance(time.Minute)
	connected, err := svc.SetStatus(ctx, sess.ID, wa.SessionConnected)
	require.NoError(t, err)
	assert.Equal(t, wa.SessionConnected, connected.Status)

	active, err := svc.Active(dbc)
	require.NoError(t, err)
	require.Len(t, active, 1)

	assert.Equal(t, []string{
		string(realtime.SSEEventWhatsappSessionQR),
		string(realtime.SSEEventWhatsappSessionStatus),
	}, e.emit.events())

	require.NoError(t, svc.Delete(ctx, sess.ID))
	_, err = svc.Get(dbc, sess.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestConversationCreateConflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	existing := testutil.SeedConversation(t, ctx, e.db, "59170000001")
	svc := e.conversationService()

	_, err := svc.Create(ctx, ConversationInput{ContactPhone: pointers.String("59170000001")})
	aerr := requireStatus(t, err, http.StatusConflict)
	data, ok := aerr.Extra["data"].(*types.WhatsappConversation)
	require.True(t, ok)
	assert.Equal(t, existing.ID, data.ID)

	_, err = svc.Create(ctx, ConversationInput{ContactPhone: pointers.String("59170000002"), LeadID: pointers.Ptr(uuid.New())})
	requireFieldError(t, err, "lead_id")

	c, err := svc.Create(ctx, ConversationInput{ContactPhone: pointers.String(" 59170000002 "), ContactName: pointers.String("Rosa")})
	require.NoError(t, err)
	assert.Equal(t, "59170000002", c.ContactPhone)
	assert.Equal(t, wa.ConversationOpen, c.Status)
}

func TestConversationSearchAndLinks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	agent := testutil.SeedUser(t, ctx, e.db, "agente@crm.test", user.RoleAsesor)
	lead := testutil.SeedLead(t, ctx, e.db, "Rosa", "321", nil)
	conv := testutil.SeedConversation(t, ctx, e.db, "59170000001")
	svc := e.conversationService()
	dbc := dbctx.Context{Ctx: ctx}

	found, err := svc.SearchByPhone(dbc, "59170000001")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, found.ID)
	_, err = svc.SearchByPhone(dbc, "000")
	requireStatus(t, err, http.StatusNotFound)

	assigned, err := svc.Assign(ctx, conv.ID, agent.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedAgentID)
	assert.Equal(t, agent.ID, *assigned.AssignedAgentID)

	linked, err := svc.LinkLead(ctx, conv.ID, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.LeadID)
	assert.Equal(t, lead.ID, *linked.LeadID)

	_, err = svc.SetStatus(ctx, conv.ID, "spam")
	requireFieldError(t, err, "status")
	closed, err := svc.SetStatus(ctx, conv.ID, wa.ConversationClosed)
	require.NoError(t, err)
	assert.Equal(t, wa.ConversationClosed, closed.Status)
}

func TestSyncChats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	existing := testutil.SeedConversation(t, ctx, e.db, "59170000001")
	svc := e.conversationService()

	_, err := svc.SyncChats(ctx, []SyncChat{
		{ContactPhone: "59170000009", ContactName: "Ok"},
		{ContactPhone: "abc-defg-hij", ContactName: "Bad"},
	})
	requireFieldError(t, err, "chats.1.contact_phone")
	var n int64
	require.NoError(t, e.db.Model(&types.WhatsappConversation{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	last := testNow.Add(-time.Hour)
	res, err := svc.SyncChats(ctx, []SyncChat{
		{ContactPhone: "59170000001", ContactName: "Renombrado", UnreadCount: pointers.Int(3), Status: "archived"},
		{ContactPhone: "59170000002", ContactName: "Nuevo", LastMessageAt: &last},
	})
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Synced: 2, Created: 1, Updated: 1}, res)

	dbc := dbctx.Context{Ctx: ctx}
	got, err := e.conversations.GetByID(dbc, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renombrado", got.ContactName)
	assert.Equal(t, wa.ConversationArchived, got.Status)
	assert.Equal(t, 3, got.UnreadCount)
	assert.True(t, got.Unread)

	created, err := e.conversations.GetByPhone(dbc, "59170000002")
	require.NoError(t, err)
	require.NotNil(t, created.LastMessageAt)
	assert.True(t, created.LastMessageAt.Equal(last))
	assert.False(t, created.Unread)
}

func TestSyncSingleChat(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.conversationService()

	_, err := svc.SyncChat(ctx, SyncChat{ContactPhone: "123", ContactName: "Corto"})
	requireFieldError(t, err, "contact_phone")

	conv, err := svc.SyncChat(ctx, SyncChat{ContactPhone: "59170000001", ContactName: "Juan", UnreadCount: pointers.Int(2), Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, "Juan", conv.ContactName)
	assert.Equal(t, wa.ConversationOpen, conv.Status)
	assert.Equal(t, 2, conv.UnreadCount)
	assert.True(t, conv.Unread)

	again, err := svc.SyncChat(ctx, SyncChat{ContactPhone: "59170000001", ContactName: "Juan Pérez", Status: "archived"})
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)
	assert.Equal(t, "Juan Pérez", again.ContactName)
	assert.Equal(t, wa.ConversationArchived, again.Status)
	assert.False(t, again.Unread)
}

func TestClearChats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.SeedConversation(t, ctx, e.db, "59170000001")
	b := testutil.SeedConversation(t, ctx, e.db, "59170000002")
	testutil.SeedMessage(t, ctx, e.db, a.ID, "m1", wa.TypeText, wa.DirectionIncoming, testNow)
	testutil.SeedMessage(t, ctx, e.db, a.ID, "m2", wa.TypeText, wa.DirectionOutgoing, testNow)
	testutil.SeedMessage(t, ctx, e.db, b.ID, "m3", wa.TypeText, wa.DirectionIncoming, testNow)

	res, err := e.conversationService().ClearChats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &ClearResult{ConversationsDeleted: 2, MessagesDeleted: 3}, res)
}

func TestAutoReplyGreetingRule(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.autoReplyService()

	_, err := svc.Create(ctx, AutoReplyInput{ReplyMessage: pointers.String("Hola"), IsGreeting: pointers.Ptr(true), TriggerKeyword: pointers.String("hola")})
	requireFieldError(t, err, "trigger_keyword")

	_, err = svc.Create(ctx, AutoReplyInput{ReplyMessage: pointers.String("Precios")})
	requireFieldError(t, err, "trigger_keyword")

	_, err = svc.Create(ctx, AutoReplyInput{ReplyMessage: pointers.String("x"), TriggerKeyword: pointers.String("x"), Priority: pointers.Int(101)})
	requireFieldError(t, err, "priority")

	greeting, err := svc.Create(ctx, AutoReplyInput{ReplyMessage: pointers.String("¡Bienvenido!"), IsGreeting: pointers.Ptr(true)})
	require.NoError(t, err)
	assert.True(t, greeting.IsActive)

	got, err := svc.Greeting(dbctx.Context{Ctx: ctx})
	require.NoError(t, err)
	assert.Equal(t, greeting.ID, got.ID)

	// Dropping the greeting flag without adding a keyword breaks the rule.
	_, err = svc.Update(ctx, greeting.ID, AutoReplyInput{IsGreeting: pointers.Ptr(false)})
	requireFieldError(t, err, "trigger_keyword")

	updated, err := svc.Update(ctx, greeting.ID, AutoReplyInput{IsGreeting: pointers.Ptr(false), TriggerKeyword: pointers.String(" info ")})
	require.NoError(t, err)
	assert.Equal(t, "info", updated.Keyword())
	assert.False(t, updated.IsGreeting)
}

func TestAutoReplyBulkToggle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.SeedAutoReply(t, ctx, e.db, "precio", "Nuestros precios", 10, true)
	b := testutil.SeedAutoReply(t, ctx, e.db, "ubicacion", "Estamos en", 5, true)
	svc := e.autoReplyService()

	_, err := svc.BulkToggle(ctx, []uuid.UUID{a.ID, uuid.New()}, false)
	requireFieldError(t, err, "ids")

	n, err := svc.BulkToggle(ctx, []uuid.UUID{a.ID, b.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	active, err := svc.Active(dbctx.Context{Ctx: ctx})
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.SetPriority(ctx, a.ID, -1)
	requireFieldError(t, err, "priority")
	got, err := svc.SetPriority(ctx, a.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Priority)
}

func TestMatchAutoReply(t *testing.T) {
	reply := func(kw string, active bool) *types.WhatsappAutoReply {
		return &types.WhatsappAutoReply{ID: uuid.New(), TriggerKeyword: pointers.String(kw), ReplyMessage: kw, IsActive: active}
	}
	precio := reply("precio", true)
	precioLote := reply("precio lote", true)
	info := reply("INFO", true)
	off := reply("hola", false)
	greeting := &types.WhatsappAutoReply{ID: uuid.New(), ReplyMessage: "saludo", IsActive: true, IsGreeting: true}
	// Priority order as the repo returns it.
	candidates := []*types.WhatsappAutoReply{precio, info, greeting, off, precioLote}

	cases := []struct {
		name    string
		message string
		want    *types.WhatsappAutoReply
	}{
		{"higher priority substring beats later exact", "precio lote", precio},
		{"substring by priority", "quiero el precio del lote", precio},
		{"exact match", "info", info},
		{"case and spaces ignored", "  info ", info},
		{"inactive never matches", "hola", nil},
		{"greeting never matches", "saludo", nil},
		{"empty message", "   ", nil},
		{"no keyword present", "buenas tardes", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MatchAutoReply(tc.message, candidates)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.want.ID, got.ID)
		})
	}

	reordered := []*types.WhatsappAutoReply{precioLote, precio}
	got := MatchAutoReply("precio lote", reordered)
	require.NotNil(t, got)
	assert.Equal(t, precioLote.ID, got.ID)
}

func TestSendMessage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	agent := testutil.SeedUser(t, ctx, e.db, "agente@crm.test", user.RoleAsesor)
	conv := testutil.SeedConversation(t, ctx, e.db, "59170000001")
	require.NoError(t, e.db.Model(&types.WhatsappConversation{}).Where("id = ?", conv.ID).
		Updates(map[string]interface{}{"unread": true, "unread_count": 4}).Error)
	svc := e.messageService(nil)

	_, err := svc.Send(ctx, SendMessageInput{ConversationID: conv.ID, Content: "hola"})
	requireStatus(t, err, http.StatusUnauthorized)

	uctx := asUser(agent.ID, user.RoleAsesor)
	_, err = svc.Send(uctx, SendMessageInput{ConversationID: uuid.New(), Content: "hola"})
	requireFieldError(t, err, "conversation_id")

	m, err := svc.Send(uctx, SendMessageInput{ConversationID: conv.ID, Content: "Hola Rosa"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(m.MessageID, "msg_"))
	assert.Len(t, m.MessageID, len("msg_")+20)
	assert.Equal(t, wa.TypeText, m.Type)
	assert.Equal(t, wa.StatusPending, m.Status)
	assert.Equal(t, wa.DirectionOutgoing, m.Direction)
	assert.True(t, m.FromMe)
	require.NotNil(t, m.SentByAgentID)
	assert.Equal(t, agent.ID, *m.SentByAgentID)

	got, err := e.conversations.GetByID(dbctx.Context{Ctx: ctx}, conv.ID)
	require.NoError(t, err)
	assert.False(t, got.Unread)
	assert.Zero(t, got.UnreadCount)
	assert.Equal(t, string(realtime.SSEEventWhatsappMessageCreated), e.emit.events()[0])

	pending, err := svc.PendingOutgoing(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, m.ID, pending[0].ID)
}

func TestReceiveCreatesConversationAndAutoReply(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.SeedAutoReply(t, ctx, e.db, "precio", "Los lotes desde 10.000 USD", 10, true)
	svc := e.messageService(nil)

	in := IncomingMessage{
		MessageID:    "wamid.1",
		ContactPhone: "59170000001",
		Content:      "Hola, cuál es el PRECIO?",
		Type:         wa.TypeText,
		Timestamp:    testNow.Add(-time.Minute).Unix(),
	}
	res, err := svc.Receive(ctx, in)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, wa.DirectionIncoming, res.Message.Direction)
	assert.Equal(t, wa.StatusDelivered, res.Message.Status)
	assert.True(t, res.Message.SentAt.Equal(testNow.Add(-time.Minute)))
	require.NotNil(t, res.AutoReply)
	assert.True(t, res.AutoReply.IsAutoReply)
	assert.True(t, strings.HasPrefix(res.AutoReply.MessageID, "auto_"))
	assert.Equal(t, "Los lotes desde 10.000 USD", res.AutoReply.Content)

	conv, err := e.conversations.GetByPhone(dbctx.Context{Ctx: ctx}, "59170000001")
	require.NoError(t, err)
	assert.Equal(t, DefaultContactName, conv.ContactName)
	assert.Equal(t, 1, conv.UnreadCount)
	assert.True(t, conv.Unread)

	dup, err := svc.Receive(ctx, in)
	require.NoError(t, err)
	assert.True(t, dup.Duplicate)
	assert.Equal(t, res.Message.ID, dup.Message.ID)

	var n int64
	require.NoError(t, e.db.Model(&types.WhatsappMessage{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []string{string(realtime.SSEEventWhatsappMessageReceived)}, e.emit.events())

	second, err := svc.Receive(ctx, IncomingMessage{MessageID: "wamid.2", ContactPhone: "59170000001", Content: "gracias", Type: wa.TypeText})
	require.NoError(t, err)
	assert.Nil(t, second.AutoReply)
	conv, err = e.conversations.GetByPhone(dbctx.Context{Ctx: ctx}, "59170000001")
	require.NoError(t, err)
	assert.Equal(t, 2, conv.UnreadCount)
}

func TestReceiveValidation(t *testing.T) {
	e := newEnv(t)
	svc := e.messageService(nil)
	_, err := svc.Receive(context.Background(), IncomingMessage{ContactPhone: "1", Type: "fax"})
	requireFieldError(t, err, "message_id")
	requireFieldError(t, err, "type")
	requireFieldError(t, err, "content")

	_, err = svc.Receive(context.Background(), IncomingMessage{
		MessageID: "big", ContactPhone: "1", Type: wa.TypeDocument,
		File: &IncomingFile{Filename: "a.pdf", Size: MaxMediaBytes + 1, Body: strings.NewReader("")},
	})
	requireFieldError(t, err, "file")
}

func TestReceiveStoresMedia(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	store := newFakeMediaStore()
	svc := e.messageService(store)

	res, err := svc.Receive(ctx, IncomingMessage{
		MessageID:    "wamid.img",
		ContactPhone: "59170000001",
		ContactName:  "Rosa",
		Type:         wa.TypeImage,
		File:         &IncomingFile{Filename: "Foto.JPG", ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("img")},
	})
	require.NoError(t, err)
	require.Len(t, store.puts, 1)
	for key, val := range store.puts {
		assert.True(t, strings.HasPrefix(key, "whatsapp/2025/03/"), key)
		assert.True(t, strings.HasSuffix(key, ".jpg"), key)
		assert.Equal(t, "image/jpeg:img", val)
		assert.Equal(t, "https://media.test/"+key, res.Message.MediaURL)
	}
	assert.Equal(t, "image/jpeg", res.Message.MediaMimeType)
	assert.Nil(t, res.AutoReply)

	media, err := svc.Media(dbctx.Context{Ctx: ctx}, res.Message.ConversationID)
	require.NoError(t, err)
	require.Len(t, media, 1)
}

func TestReceiveKeepsMessageWhenUploadFails(t *testing.T) {
	e := newEnv(t)
	store := newFakeMediaStore()
	store.err = errors.New("bucket unavailable")
	svc := e.messageService(store)

	res, err := svc.Receive(context.Background(), IncomingMessage{
		MessageID:    "wamid.doc",
		ContactPhone: "59170000001",
		Type:         wa.TypeDocument,
		File:         &IncomingFile{Filename: "plano.pdf", ContentType: "application/pdf", Size: 4, Body: strings.NewReader("%PDF")},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Message.MediaURL)
	assert.Empty(t, res.Message.MediaMimeType)
}

func TestReceiveDeletesUploadWhenInsertFails(t *testing.T) {
	e := newEnv(t)
	store := newFakeMediaStore()
	svc := e.messageService(store)

	insertErr := errors.New("disk full")
	require.NoError(t, e.db.Callback().Create().Before("gorm:create").Register("fail_message_insert", func(db *gorm.DB) {
		if db.Statement.Table == "whatsapp_messages" {
			_ = db.AddError(insertErr)
		}
	}))

	_, err := svc.Receive(context.Background(), IncomingMessage{
		MessageID:    "wamid.lost",
		ContactPhone: "59170000001",
		Type:         wa.TypeImage,
		File:         &IncomingFile{Filename: "lote.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")},
	})
	require.ErrorIs(t, err, insertErr)
	require.Len(t, store.deletes, 1)
	assert.True(t, strings.HasPrefix(store.deletes[0], "whatsapp/2025/03/"), store.deletes[0])
	assert.Empty(t, store.puts, "no attachment left behind")

	var n int64
	require.NoError(t, e.db.Model(&types.WhatsappConversation{}).Count(&n).Error)
	assert.Zero(t, n, "conversation insert rolled back")
}

func TestMessageStatusAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	conv := testutil.SeedConversation(t, ctx, e.db, "59170000001")
	m := testutil.SeedMessage(t, ctx, e.db, conv.ID, "m1", wa.TypeText, wa.DirectionOutgoing, testNow)
	svc := e.messageService(nil)

	_, err := svc.SetStatus(ctx, m.ID, "lost")
	requireFieldError(t, err, "status")

	got, err := svc.SetStatus(ctx, m.ID, wa.StatusSent)
	require.NoError(t, err)
	assert.Equal(t, wa.StatusSent, got.Status)
	assert.Equal(t, realtime.SSEEventWhatsappMessageStatus, e.emit.last().Event)

	n, err := svc.MarkRead(ctx, []uuid.UUID{m.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, svc.Delete(ctx, m.ID))
	_, err = svc.Get(dbctx.Context{Ctx: ctx}, m.ID)
	requireStatus(t, err, http.StatusNotFound)
}
