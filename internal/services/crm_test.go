package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/testutil"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/crm"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pointers"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/realtime"
)

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var verr *apierr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, field, "fields: %v", verr.Fields)
}

func requireStatus(t *testing.T, err error, status int) *apierr.Error {
	t.Helper()
	var aerr *apierr.Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, status, aerr.Status)
	return aerr
}

func TestLeadCreateWithNegocio(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	asesor := testutil.SeedUser(t, ctx, e.db, "ana@crm.test", user.RoleAsesor)
	etapas := testutil.SeedEmbudos(t, ctx, e.db)
	p := testutil.SeedProyecto(t, ctx, e.db, "Las Palmas")
	terreno := testutil.SeedTerreno(t, ctx, e.db, p.ID, "A-12", testutil.TerrenoOpts{Precio: 15000})

	inicio := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	lead, err := e.leadService().Create(asUser(asesor.ID, user.RoleAsesor), LeadInput{
		Nombre:        "  Juan Pérez ",
		Carnet:        "1234567",
		Numero1:       "70011223",
		CrearAcuerdo:  true,
		TerrenoID:     &terreno.ID,
		Etapa:         crm.EtapaContacto,
		FechaInicio:   &inicio,
		MontoEstimado: pointers.Float64(15000),
	})
	require.NoError(t, err)
	assert.Equal(t, "Juan Pérez", lead.Nombre)
	require.NotNil(t, lead.AsesorID)
	assert.Equal(t, asesor.ID, *lead.AsesorID)

	neg, err := e.negocios.GetByLeadID(dbctx.Context{Ctx: ctx}, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, neg)
	assert.Equal(t, crm.EtapaContacto, neg.Etapa)
	assert.Equal(t, crm.TipoOperacionVentas, neg.TipoOperacion)
	assert.False(t, neg.ConvertidoCliente)
	require.NotNil(t, neg.EmbudoID)
	assert.Equal(t, etapas[1].ID, *neg.EmbudoID)
}

func TestLeadCreateRequiresUser(t *testing.T) {
	e := newEnv(t)
	_, err := e.leadService().Create(context.Background(), LeadInput{Nombre: "X", Carnet: "1", Numero1: "7"})
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestLeadCreateRejectsDuplicateCarnet(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	asesor := testutil.SeedUser(t, ctx, e.db, "ana@crm.test", user.RoleAsesor)
	testutil.SeedLead(t, ctx, e.db, "Primero", "555", &asesor.ID)

	_, err := e.leadService().Create(asUser(asesor.ID, user.RoleAsesor), LeadInput{
		Nombre: "Segundo", Carnet: "555", Numero1: "70000001",
	})
	requireFieldError(t, err, "carnet")
}

func TestLeadCreateDealFieldsRequired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	asesor := testutil.SeedUser(t, ctx, e.db, "ana@crm.test", user.RoleAsesor)

	_, err := e.leadService().Create(asUser(asesor.ID, user.RoleAsesor), LeadInput{
		Nombre: "Sin acuerdo", Carnet: "777", Numero1: "70000001", CrearAcuerdo: true,
	})
	var verr *apierr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "terreno_id")
	assert.Contains(t, verr.Fields, "etapa")
	assert.Contains(t, verr.Fields, "fecha_inicio")

	var n int64
	require.NoError(t, e.db.Model(&types.Lead{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestLeadDeleteCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	asesor := testutil.SeedUser(t, ctx, e.db, "ana@crm.test", user.RoleAsesor)
	lead := testutil.SeedLead(t, ctx, e.db, "Borrar", "999", &asesor.ID)
	neg := testutil.SeedNegocio(t, ctx, e.db, lead.ID, nil, crm.EtapaInteres, nil)
	seg := &types.Seguimiento{
		ID:               uuid.New(),
		NegocioID:        neg.ID,
		Tipo:             crm.TipoLlamada,
		Descripcion:      "Llamar",
		FechaSeguimiento: testNow,
	}
	require.NoError(t, e.db.Create(seg).Error)

	require.NoError(t, e.leadService().Delete(ctx, lead.ID))

	dbc := dbctx.Context{Ctx: ctx}
	got, err := e.negocios.GetByID(dbc, neg.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	gotSeg, err := e.seguimientos.GetByID(dbc, seg.ID)
	require.NoError(t, err)
	assert.Nil(t, gotSeg)

	err = e.leadService().Delete(ctx, lead.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestBuscarPorCodigo(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testutil.SeedProyecto(t, ctx, e.db, "Las Palmas")
	want := testutil.SeedTerreno(t, ctx, e.db, p.ID, "UV-12 MZ-3", testutil.TerrenoOpts{})
	testutil.SeedTerreno(t, ctx, e.db, p.ID, "UV-13 MZ-3", testutil.TerrenoOpts{})
	testutil.SeedTerreno(t, ctx, e.db, p.ID, "ZZ-99", testutil.TerrenoOpts{})
	svc := e.leadService()
	dbc := dbctx.Context{Ctx: ctx}

	t.Run("normalized exact match", func(t *testing.T) {
		got, err := svc.BuscarPorCodigo(dbc, " uv12-mz3 ", &p.ID)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
	})

	t.Run("suggestions on miss", func(t *testing.T) {
		_, err := svc.BuscarPorCodigo(dbc, "UV14MZ3", &p.ID)
		aerr := requireStatus(t, err, http.StatusNotFound)
		assert.ElementsMatch(t, []string{"UV-12 MZ-3", "UV-13 MZ-3"}, aerr.Extra["sugerencias"])
	})

	t.Run("missing inputs", func(t *testing.T) {
		_, err := svc.BuscarPorCodigo(dbc, "", &p.ID)
		requireStatus(t, err, http.StatusBadRequest)
		_, err = svc.BuscarPorCodigo(dbc, "UV12MZ3", nil)
		requireStatus(t, err, http.StatusBadRequest)
	})
}

func TestNormalizeCodigo(t *testing.T) {
	assert.Equal(t, "UV12MZ3", NormalizeCodigo(" uv-12 mz 3 "))
	assert.Equal(t, "A1", NormalizeCodigo("a--1"))
}

func TestActualizarEtapa(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	asesor := testutil.SeedUser(t, ctx, e.db, "ana@crm.test", user.RoleAsesor)
	testutil.SeedEmbudos(t, ctx, e.db)
	lead := testutil.SeedLead(t, ctx, e.db, "Cliente", "101", &asesor.ID)
	neg := testutil.SeedNegocio(t, ctx, e.db, lead.ID, nil, crm.EtapaPropuesta, nil)
	require.NoError(t, e.db.Model(&types.Negocio{}).Where("id = ?", neg.ID).Update("asesor_id", asesor.ID).Error)
	svc := e.negocioService()

	out, err := svc.ActualizarEtapa(ctx, neg.ID, crm.EtapaCierre)
	require.NoError(t, err)
	assert.Equal(t, crm.EtapaPropuesta, out.EtapaAnterior)
	assert.Equal(t, crm.EtapaCierre, out.Negocio.Etapa)
	assert.True(t, out.Negocio.ConvertidoCliente)

	msg := e.emit.last()
	assert.Equal(t, realtime.SSEEventNegocioEtapaActualizada, msg.Event)
	assert.Equal(t, realtime.UserChannel(asesor.ID), msg.Channel)

	_, err = svc.ActualizarEtapa(ctx, neg.ID, "Inexistente")
	requireFieldError(t, err, "etapa")

	_, err = svc.ActualizarEtapa(ctx, uuid.New(), crm.EtapaVisita)
	requireStatus(t, err, http.StatusNotFound)
}

func TestTablero(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ana := testutil.SeedUser(t, ctx, e.db, "ana@crm.test", user.RoleAsesor)
	beto := testutil.SeedUser(t, ctx, e.db, "beto@crm.test", user.RoleAsesor)
	etapas := testutil.SeedEmbudos(t, ctx, e.db)
	require.NoError(t, e.db.Model(&types.Embudo{}).Where("id = ?", etapas[1].ID).Update("color", "").Error)
	require.NoError(t, e.db.Model(&types.Embudo{}).Where("id = ?", etapas[6].ID).Update("activo", false).Error)

	seed := func(nombre, carnet, etapa string, asesor uuid.UUID) {
		lead := testutil.SeedLead(t, ctx, e.db, nombre, carnet, &asesor)
		n := testutil.SeedNegocio(t, ctx, e.db, lead.ID, nil, etapa, nil)
		require.NoError(t, e.db.Model(&types.Negocio{}).Where("id = ?", n.ID).Update("asesor_id", asesor).Error)
	}
	seed("Uno", "1", crm.EtapaInteres, ana.ID)
	seed("Dos", "2", crm.EtapaInteres, beto.ID)
	seed("Tres", "3", crm.EtapaVisita, ana.ID)
	seed("Cuatro", "4", crm.EtapaPerdido, ana.ID)

	cases := []struct {
		name    string
		asesor  *uuid.UUID
		interes int
		visita  int
	}{
		{"all advisors", nil, 2, 1},
		{"ana only", &ana.ID, 1, 1},
		{"beto only", &beto.ID, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cols, err := e.negocioService().Tablero(dbctx.Context{Ctx: ctx}, tc.asesor)
			require.NoError(t, err)

			names := make([]string, 0, len(cols))
			for _, c := range cols {
				names = append(names, c.Etapa)
				assert.Equal(t, len(c.Negocios), c.Cantidad, c.Etapa)
				assert.NotNil(t, c.Negocios, c.Etapa)
			}
			assert.Equal(t, []string{
				crm.EtapaInteres, crm.EtapaContacto, crm.EtapaVisita, crm.EtapaPropuesta,
				crm.EtapaNegociacion, crm.EtapaCierre,
			}, names, "inactive stages are not columns")

			assert.Equal(t, tc.interes, cols[0].Cantidad)
			assert.Equal(t, tc.visita, cols[2].Cantidad)
			assert.Equal(t, "#3B82F6", cols[0].Color)
			assert.Equal(t, crm.DefaultEmbudoColor, cols[1].Color)
		})
	}
}

func TestNegocioUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	etapas := testutil.SeedEmbudos(t, ctx, e.db)
	p := testutil.SeedProyecto(t, ctx, e.db, "Las Palmas")
	terreno := testutil.SeedTerreno(t, ctx, e.db, p.ID, "A-1", testutil.TerrenoOpts{})
	lead := testutil.SeedLead(t, ctx, e.db, "Cliente", "101", nil)
	neg := testutil.SeedNegocio(t, ctx, e.db, lead.ID, nil, crm.EtapaPropuesta, nil)
	require.NoError(t, e.db.Model(&types.Embudo{}).Where("id = ?", etapas[4].ID).Update("activo", false).Error)
	svc := e.negocioService()

	fecha := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	input := func(etapa string) NegocioInput {
		return NegocioInput{
			TerrenoID:     &terreno.ID,
			Etapa:         etapa,
			FechaInicio:   &fecha,
			MontoEstimado: pointers.Float64(18000),
			Notas:         "Reserva firmada",
		}
	}

	t.Run("intermediate stage keeps prospect", func(t *testing.T) {
		out, err := svc.Update(ctx, neg.ID, input(crm.EtapaVisita))
		require.NoError(t, err)
		assert.Equal(t, crm.EtapaVisita, out.Etapa)
		assert.False(t, out.ConvertidoCliente)
		require.NotNil(t, out.EmbudoID)
		assert.Equal(t, etapas[2].ID, *out.EmbudoID)
	})

	t.Run("won stage converts", func(t *testing.T) {
		out, err := svc.Update(ctx, neg.ID, input(crm.EtapaCierre))
		require.NoError(t, err)
		assert.Equal(t, crm.EtapaCierre, out.Etapa)
		assert.True(t, out.ConvertidoCliente)
		require.NotNil(t, out.TerrenoID)
		assert.Equal(t, terreno.ID, *out.TerrenoID)
		assert.Equal(t, "Reserva firmada", out.Notas)
	})

	t.Run("unknown stage", func(t *testing.T) {
		_, err := svc.Update(ctx, neg.ID, input("Inexistente"))
		requireFieldError(t, err, "etapa")
		var verr *apierr.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{msgEtapaInvalida}, verr.Fields["etapa"])
	})

	t.Run("inactive stage", func(t *testing.T) {
		_, err := svc.Update(ctx, neg.ID, input(etapas[4].Nombre))
		requireFieldError(t, err, "etapa")
	})

	t.Run("missing terreno", func(t *testing.T) {
		in := input(crm.EtapaVisita)
		missing := uuid.New()
		in.TerrenoID = &missing
		_, err := svc.Update(ctx, neg.ID, in)
		requireFieldError(t, err, "terreno_id")
	})

	t.Run("missing negocio", func(t *testing.T) {
		_, err := svc.Update(ctx, uuid.New(), input(crm.EtapaVisita))
		requireStatus(t, err, http.StatusNotFound)
	})
}

func TestInventoryDropdownLabels(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testutil.SeedProyecto(t, ctx, e.db, "Las Palmas")
	otro := testutil.SeedProyecto(t, ctx, e.db, "Otro")
	conNumero := testutil.SeedTerreno(t, ctx, e.db, p.ID, "UV-1 MZ-2", testutil.TerrenoOpts{Numero: "7", Precio: 12000})
	sinNumero := testutil.SeedTerreno(t, ctx, e.db, p.ID, "UV-1 MZ-3", testutil.TerrenoOpts{Precio: 9000})
	testutil.SeedTerreno(t, ctx, e.db, p.ID, "UV-1 MZ-4", testutil.TerrenoOpts{Numero: "9", Estado: inventory.EstadoVendido})
	testutil.SeedTerreno(t, ctx, e.db, otro.ID, "UV-9", testutil.TerrenoOpts{})

	opts, err := e.inventoryService().Dropdown(dbctx.Context{Ctx: ctx}, &p.ID)
	require.NoError(t, err)
	assert.Equal(t, []TerrenoOption{
		{ID: conNumero.ID, Label: "UV-1 MZ-2 - Nº 7", Precio: 12000},
		{ID: sinNumero.ID, Label: "UV-1 MZ-3", Precio: 9000},
	}, opts)

	all, err := e.inventoryService().Dropdown(dbctx.Context{Ctx: ctx}, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEstadisticas(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.SeedLead(t, ctx, e.db, "A", "1", nil)
	b := testutil.SeedLead(t, ctx, e.db, "B", "2", nil)
	c := testutil.SeedLead(t, ctx, e.db, "C", "3", nil)
	testutil.SeedNegocio(t, ctx, e.db, a.ID, nil, crm.EtapaCierre, pointers.Float64(20000))
	testutil.SeedNegocio(t, ctx, e.db, b.ID, nil, crm.EtapaPerdido, pointers.Float64(5000))
	testutil.SeedNegocio(t, ctx, e.db, c.ID, nil, crm.EtapaVisita, nil)

	st, err := e.negocioService().Estadisticas(dbctx.Context{Ctx: ctx}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Total)
	assert.Equal(t, int64(1), st.Activos)
	assert.Equal(t, int64(1), st.Ganados)
	assert.Equal(t, int64(1), st.Perdidos)
	assert.InDelta(t, 20000, st.MontoTotalGanado, 0.001)
	assert.InDelta(t, 33.33, st.TasaConversion, 0.001)
}

func TestTasaConversion(t *testing.T) {
	assert.Equal(t, 0.0, TasaConversion(0, 0))
	assert.Equal(t, 50.0, TasaConversion(1, 2))
	assert.Equal(t, 66.67, TasaConversion(2, 3))
}

func TestEmbudoDeleteRefusesWithNegocios(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	etapas := testutil.SeedEmbudos(t, ctx, e.db)
	visita := etapas[2]
	lead := testutil.SeedLead(t, ctx, e.db, "Cliente", "101", nil)
	neg := testutil.SeedNegocio(t, ctx, e.db, lead.ID, nil, visita.Nombre, nil)
	svc := e.embudoService()

	err := svc.Delete(ctx, visita.ID, false)
	aerr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, 1, aerr.Extra["negocios_count"])

	require.NoError(t, svc.Delete(ctx, visita.ID, true))
	dbc := dbctx.Context{Ctx: ctx}
	got, err := e.negocios.GetByID(dbc, neg.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	gone, err := e.embudos.GetByID(dbc, visita.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestEmbudoRenameMovesNegocios(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	etapas := testutil.SeedEmbudos(t, ctx, e.db)
	lead := testutil.SeedLead(t, ctx, e.db, "Cliente", "101", nil)
	neg := testutil.SeedNegocio(t, ctx, e.db, lead.ID, nil, etapas[0].Nombre, nil)

	_, err := e.embudoService().Update(ctx, etapas[0].ID, EmbudoInput{Nombre: pointers.String("Interesado")})
	require.NoError(t, err)

	got, err := e.negocios.GetByID(dbctx.Context{Ctx: ctx}, neg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Interesado", got.Etapa)

	_, err = e.embudoService().Update(ctx, etapas[1].ID, EmbudoInput{Nombre: pointers.String("Interesado")})
	requireFieldError(t, err, "nombre")
}

func TestEmbudoReordenar(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	etapas := testutil.SeedEmbudos(t, ctx, e.db)
	svc := e.embudoService()

	ids := []uuid.UUID{etapas[6].ID, etapas[0].ID}
	out, err := svc.Reordenar(ctx, []OrdenItem{{ID: ids[0], Orden: 1}, {ID: ids[1], Orden: 7}})
	require.NoError(t, err)
	require.Len(t, out, 7)
	assert.Equal(t, etapas[6].ID, out[0].ID)

	_, err = svc.Reordenar(ctx, []OrdenItem{{ID: uuid.New(), Orden: 1}})
	requireFieldError(t, err, "embudos")

	_, err = svc.Reordenar(ctx, []OrdenItem{{ID: etapas[0].ID, Orden: 0}})
	requireFieldError(t, err, "embudos.0.orden")

	items := OrdenFromIDs(ids)
	assert.Equal(t, []OrdenItem{{ID: ids[0], Orden: 1}, {ID: ids[1], Orden: 2}}, items)
}

func TestSeguimientoCreateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	asesor := testutil.SeedUser(t, ctx, e.db, "ana@crm.test", user.RoleAsesor)
	lead := testutil.SeedLead(t, ctx, e.db, "Cliente", "101", &asesor.ID)
	neg := testutil.SeedNegocio(t, ctx, e.db, lead.ID, nil, crm.EtapaVisita, nil)
	svc := e.seguimientoService()
	uctx := asUser(asesor.ID, user.RoleAsesor)

	fecha := testNow
	ayer := testNow.AddDate(0, 0, -1)
	mismoDia := testNow.Add(-2 * time.Hour)

	_, err := svc.Create(uctx, SeguimientoInput{NegocioID: neg.ID, Tipo: "Fax", Descripcion: "x", FechaSeguimiento: &fecha})
	requireFieldError(t, err, "tipo")

	_, err = svc.Create(uctx, SeguimientoInput{NegocioID: neg.ID, Tipo: crm.TipoLlamada, Descripcion: "x", FechaSeguimiento: &fecha, ProximoSeguimiento: &ayer})
	requireFieldError(t, err, "proximo_seguimiento")

	_, err = svc.Create(uctx, SeguimientoInput{NegocioID: uuid.New(), Tipo: crm.TipoLlamada, Descripcion: "x", FechaSeguimiento: &fecha})
	requireFieldError(t, err, "negocio_id")

	seg, err := svc.Create(uctx, SeguimientoInput{NegocioID: neg.ID, Tipo: crm.TipoLlamada, Descripcion: " Llamar ", FechaSeguimiento: &fecha, ProximoSeguimiento: &mismoDia})
	require.NoError(t, err)
	assert.Equal(t, "Llamar", seg.Descripcion)
	assert.False(t, seg.RecordatorioEnviado)
	require.NotNil(t, seg.AsesorID)
	assert.Equal(t, asesor.ID, *seg.AsesorID)

	_, err = svc.Get(dbctx.Context{Ctx: ctx}, uuid.New())
	requireStatus(t, err, http.StatusNotFound)
}

func TestSeguimientoRemindersAndPendientes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	asesor := testutil.SeedUser(t, ctx, e.db, "ana@crm.test", user.RoleAsesor)
	lead := testutil.SeedLead(t, ctx, e.db, "Cliente", "101", &asesor.ID)
	neg := testutil.SeedNegocio(t, ctx, e.db, lead.ID, nil, crm.EtapaVisita, nil)
	svc := e.seguimientoService()
	uctx := asUser(asesor.ID, user.RoleAsesor)

	fecha := testNow.AddDate(0, 0, -3)
	hoy := testNow
	manana := testNow.AddDate(0, 0, 1)
	dueToday, err := svc.Create(uctx, SeguimientoInput{NegocioID: neg.ID, Tipo: crm.TipoVisita, Descripcion: "Visita", FechaSeguimiento: &fecha, ProximoSeguimiento: &hoy})
	require.NoError(t, err)
	_, err = svc.Create(uctx, SeguimientoInput{NegocioID: neg.ID, Tipo: crm.TipoEmail, Descripcion: "Correo", FechaSeguimiento: &fecha, ProximoSeguimiento: &manana})
	require.NoError(t, err)

	pend, err := svc.Pendientes(dbctx.Context{Ctx: ctx}, &asesor.ID)
	require.NoError(t, err)
	require.Len(t, pend, 2)
	assert.Equal(t, dueToday.ID, pend[0].ID)

	n, err := svc.SendDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{string(realtime.SSEEventSeguimientoRecordatorio)}, e.emit.events())

	n, err = svc.SendDueReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	e.clock.Advance(24 * time.Hour)
	n, err = svc.SendDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pend, err = svc.Pendientes(dbctx.Context{Ctx: ctx}, &asesor.ID)
	require.NoError(t, err)
	assert.Empty(t, pend)
}

func TestSeguimientoListByMissingNegocio(t *testing.T) {
	e := newEnv(t)
	_, err := e.seguimientoService().ListByNegocio(dbctx.Context{Ctx: context.Background()}, uuid.New())
	require.Error(t, err)
	assert.True(t, errors.As(err, new(*apierr.Error)))
}
