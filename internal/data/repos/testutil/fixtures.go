package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/crm"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/whatsapp"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email, role string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:       uuid.New(),
		Name:     "Asesor " + email,
		Email:    email,
		Password: "pw",
		Role:     role,
		Active:   true,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProyecto(tb testing.TB, ctx context.Context, tx *gorm.DB, nombre string) *types.Proyecto {
	tb.Helper()
	p := &types.Proyecto{
		ID:     uuid.New(),
		Nombre: nombre,
		Estado: inventory.ProyectoActivo,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed proyecto: %v", err)
	}
	return p
}

func SeedBarrio(tb testing.TB, ctx context.Context, tx *gorm.DB, proyectoID uuid.UUID, nombre string) *types.Barrio {
	tb.Helper()
	b := &types.Barrio{
		ID:         uuid.New(),
		ProyectoID: proyectoID,
		Nombre:     nombre,
		Poligono:   square(),
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed barrio: %v", err)
	}
	return b
}

func SeedCuadra(tb testing.TB, ctx context.Context, tx *gorm.DB, barrioID uuid.UUID, nombre string) *types.Cuadra {
	tb.Helper()
	c := &types.Cuadra{
		ID:       uuid.New(),
		BarrioID: barrioID,
		Nombre:   nombre,
		Poligono: square(),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed cuadra: %v", err)
	}
	return c
}

func SeedCategoria(tb testing.TB, ctx context.Context, tx *gorm.DB, proyectoID uuid.UUID, nombre, color string) *types.CategoriaTerreno {
	tb.Helper()
	c := &types.CategoriaTerreno{
		ID:         uuid.New(),
		ProyectoID: proyectoID,
		Nombre:     nombre,
		Color:      color,
		Estado:     inventory.CategoriaActiva,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed categoria: %v", err)
	}
	return c
}

type TerrenoOpts struct {
	CuadraID    *uuid.UUID
	CategoriaID *uuid.UUID
	Numero      string
	Estado      int
	Condicion   int
	Precio      float64
}

func SeedTerreno(tb testing.TB, ctx context.Context, tx *gorm.DB, proyectoID uuid.UUID, ubicacion string, opts TerrenoOpts) *types.Terreno {
	tb.Helper()
	cond := opts.Condicion
	if cond == 0 {
		cond = inventory.CondicionHabilitado
	}
	t := &types.Terreno{
		ID:            uuid.New(),
		ProyectoID:    proyectoID,
		CuadraID:      opts.CuadraID,
		CategoriaID:   opts.CategoriaID,
		Ubicacion:     ubicacion,
		NumeroTerreno: opts.Numero,
		Superficie:    300,
		PrecioVenta:   opts.Precio,
		Estado:        opts.Estado,
		Condicion:     cond,
		Poligono:      square(),
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed terreno: %v", err)
	}
	return t
}

// SeedEmbudos inserts the standard seven-stage pipeline and returns it in order.
func SeedEmbudos(tb testing.TB, ctx context.Context, tx *gorm.DB) []*types.Embudo {
	tb.Helper()
	names := []string{
		crm.EtapaInteres, crm.EtapaContacto, crm.EtapaVisita, crm.EtapaPropuesta,
		crm.EtapaNegociacion, crm.EtapaCierre, crm.EtapaPerdido,
	}
	out := make([]*types.Embudo, 0, len(names))
	for i, n := range names {
		e := &types.Embudo{
			ID:     uuid.New(),
			Nombre: n,
			Color:  "#3B82F6",
			Icono:  "circle",
			Orden:  i + 1,
			Activo: true,
		}
		if err := tx.WithContext(ctx).Create(e).Error; err != nil {
			tb.Fatalf("seed embudo: %v", err)
		}
		out = append(out, e)
	}
	return out
}

func SeedLead(tb testing.TB, ctx context.Context, tx *gorm.DB, nombre, carnet string, asesorID *uuid.UUID) *types.Lead {
	tb.Helper()
	l := &types.Lead{
		ID:       uuid.New(),
		Nombre:   nombre,
		Carnet:   carnet,
		Numero1:  "70000000",
		AsesorID: asesorID,
		Estado:   true,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lead: %v", err)
	}
	return l
}

func SeedNegocio(tb testing.TB, ctx context.Context, tx *gorm.DB, leadID uuid.UUID, terrenoID *uuid.UUID, etapa string, monto *float64) *types.Negocio {
	tb.Helper()
	n := &types.Negocio{
		ID:            uuid.New(),
		LeadID:        leadID,
		TerrenoID:     terrenoID,
		TipoOperacion: crm.TipoOperacionVentas,
		Embudo:        crm.EmbudoVentas,
		Etapa:         etapa,
		FechaInicio:   datatypes.Date(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)),
		MontoEstimado: monto,
	}
	if err := tx.WithContext(ctx).Create(n).Error; err != nil {
		tb.Fatalf("seed negocio: %v", err)
	}
	return n
}

func SeedConversation(tb testing.TB, ctx context.Context, tx *gorm.DB, phone string) *types.WhatsappConversation {
	tb.Helper()
	now := time.Now().UTC()
	c := &types.WhatsappConversation{
		ID:            uuid.New(),
		ContactPhone:  phone,
		ContactName:   "Contacto " + phone,
		Status:        whatsapp.ConversationOpen,
		LastMessageAt: &now,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	return c
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, convID uuid.UUID, messageID, typ, direction string, sentAt time.Time) *types.WhatsappMessage {
	tb.Helper()
	m := &types.WhatsappMessage{
		ID:             uuid.New(),
		ConversationID: convID,
		MessageID:      messageID,
		Type:           typ,
		Content:        "hola",
		Direction:      direction,
		FromMe:         direction == whatsapp.DirectionOutgoing,
		Status:         whatsapp.StatusDelivered,
		SentAt:         sentAt,
	}
	if direction == whatsapp.DirectionOutgoing {
		m.Status = whatsapp.StatusPending
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func SeedAutoReply(tb testing.TB, ctx context.Context, tx *gorm.DB, keyword string, reply string, priority int, active bool) *types.WhatsappAutoReply {
	tb.Helper()
	a := &types.WhatsappAutoReply{
		ID:           uuid.New(),
		ReplyMessage: reply,
		IsActive:     active,
		Priority:     priority,
	}
	if keyword == "" {
		a.IsGreeting = true
	} else {
		kw := keyword
		a.TriggerKeyword = &kw
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed auto reply: %v", err)
	}
	return a
}

func square() datatypes.JSON {
	return datatypes.JSON([]byte(`{"type":"Polygon","coordinates":[[[-63.18,-17.78],[-63.17,-17.78],[-63.17,-17.77],[-63.18,-17.77],[-63.18,-17.78]]]}`))
}
