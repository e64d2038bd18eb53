package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/testutil"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
)

func featureProps(fc *FeatureCollection) map[string]map[string]any {
	out := make(map[string]map[string]any, len(fc.Features))
	for _, f := range fc.Features {
		out[f.Properties["ubicacion"].(string)] = f.Properties
	}
	return out
}

func TestMapaTerrenosFeatures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	p := testutil.SeedProyecto(t, ctx, e.db, "Las Palmas")
	b := testutil.SeedBarrio(t, ctx, e.db, p.ID, "Norte")
	cu := testutil.SeedCuadra(t, ctx, e.db, b.ID, "MZ-1")
	cat := testutil.SeedCategoria(t, ctx, e.db, p.ID, "Esquina", "#ff0000")

	testutil.SeedTerreno(t, ctx, e.db, p.ID, "UV-1", testutil.TerrenoOpts{Numero: "12", CategoriaID: &cat.ID, CuadraID: &cu.ID})
	testutil.SeedTerreno(t, ctx, e.db, p.ID, "UV-2", testutil.TerrenoOpts{})
	testutil.SeedTerreno(t, ctx, e.db, p.ID, "UV-3", testutil.TerrenoOpts{Estado: inventory.EstadoVendido})
	sinPoligono := testutil.SeedTerreno(t, ctx, e.db, p.ID, "UV-4", testutil.TerrenoOpts{})
	testutil.SeedTerreno(t, ctx, e.db, p.ID, "UV-5", testutil.TerrenoOpts{Condicion: 2})
	require.NoError(t, e.db.Model(&types.Terreno{}).Where("id = ?", sinPoligono.ID).
		Update("poligono", gorm.Expr("NULL")).Error)

	svc := e.mapaService()

	t.Run("all enabled plots", func(t *testing.T) {
		fc, err := svc.Terrenos(dbc, p.ID, false)
		require.NoError(t, err)
		assert.Equal(t, "FeatureCollection", fc.Type)
		props := featureProps(fc)
		require.Len(t, props, 3, "plots without polygon or disabled are left out")

		uv1 := props["UV-1"]
		assert.Equal(t, "12", uv1["codigo"])
		assert.Equal(t, "Esquina", uv1["categoria"])
		assert.Equal(t, "#ff0000", uv1["categoria_color"])
		assert.Equal(t, "MZ-1", uv1["cuadra"])
		assert.Equal(t, "Norte", uv1["barrio"])
		assert.Equal(t, "terreno", uv1["tipo"])

		uv2 := props["UV-2"]
		assert.Equal(t, "N/A", uv2["codigo"])
		assert.Equal(t, inventory.DefaultCategoriaNombre, uv2["categoria"])
		assert.Equal(t, "#6b7280", uv2["categoria_color"])
		assert.Equal(t, "", uv2["cuadra"])

		assert.Equal(t, "Vendido", props["UV-3"]["estado_label"])
		for name, pr := range props {
			assert.Contains(t, pr, "condicion", name)
		}
	})

	t.Run("available plots", func(t *testing.T) {
		fc, err := svc.Terrenos(dbc, p.ID, true)
		require.NoError(t, err)
		props := featureProps(fc)
		require.Len(t, props, 2)
		for name, pr := range props {
			assert.NotContains(t, pr, "condicion", name)
			assert.Equal(t, "Disponible", pr["estado_label"], name)
		}
	})

	t.Run("barrios and cuadras", func(t *testing.T) {
		testutil.SeedBarrio(t, ctx, e.db, p.ID, "Sur")
		require.NoError(t, e.db.Model(&types.Barrio{}).Where("nombre = ?", "Sur").
			Update("poligono", gorm.Expr("NULL")).Error)

		barrios, err := svc.Barrios(dbc, p.ID)
		require.NoError(t, err)
		require.Len(t, barrios.Features, 1)
		assert.Equal(t, "Norte", barrios.Features[0].Properties["nombre"])
		assert.Equal(t, "barrio", barrios.Features[0].Properties["tipo"])
		assert.EqualValues(t, 1, barrios.Features[0].Properties["total_terrenos"])

		cuadras, err := svc.Cuadras(dbc, p.ID)
		require.NoError(t, err)
		require.Len(t, cuadras.Features, 1)
		assert.Equal(t, "Norte", cuadras.Features[0].Properties["barrio"])
	})
}

func TestMapaUnknownProyecto(t *testing.T) {
	e := newEnv(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	svc := e.mapaService()
	missing := uuid.New()

	_, err := svc.Proyecto(dbc, missing)
	requireStatus(t, err, http.StatusNotFound)

	for name, load := range map[string]func() (*FeatureCollection, error){
		"barrios":     func() (*FeatureCollection, error) { return svc.Barrios(dbc, missing) },
		"cuadras":     func() (*FeatureCollection, error) { return svc.Cuadras(dbc, missing) },
		"terrenos":    func() (*FeatureCollection, error) { return svc.Terrenos(dbc, missing, false) },
		"disponibles": func() (*FeatureCollection, error) { return svc.Terrenos(dbc, missing, true) },
	} {
		fc, err := load()
		require.NoError(t, err, name)
		assert.Equal(t, "FeatureCollection", fc.Type, name)
		assert.NotNil(t, fc.Features, name)
		assert.Empty(t, fc.Features, name)
	}

	cats, err := svc.Categorias(dbc, missing)
	require.NoError(t, err)
	assert.NotNil(t, cats)
	assert.Empty(t, cats)
}
