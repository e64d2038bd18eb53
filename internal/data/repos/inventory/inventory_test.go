package inventory

import (
	"context"
	"testing"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/testutil"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pointers"
)

func TestTerrenoRepoListAndCounts(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)

	p := testutil.SeedProyecto(t, ctx, tx, "Las Palmas")
	other := testutil.SeedProyecto(t, ctx, tx, "El Bosque")
	b := testutil.SeedBarrio(t, ctx, tx, p.ID, "Barrio Norte")
	cu := testutil.SeedCuadra(t, ctx, tx, b.ID, "C-1")
	cat := testutil.SeedCategoria(t, ctx, tx, p.ID, "Esquina", "#ff0000")

	libre := testutil.SeedTerreno(t, ctx, tx, p.ID, "UV1-MZ2-L01", testutil.TerrenoOpts{CuadraID: &cu.ID, CategoriaID: &cat.ID, Numero: "1", Precio: 15000})
	testutil.SeedTerreno(t, ctx, tx, p.ID, "UV1-MZ2-L02", testutil.TerrenoOpts{CuadraID: &cu.ID, Estado: inventory.EstadoVendido})
	testutil.SeedTerreno(t, ctx, tx, p.ID, "UV1-MZ2-L03", testutil.TerrenoOpts{CuadraID: &cu.ID, Estado: inventory.EstadoReservado})
	testutil.SeedTerreno(t, ctx, tx, p.ID, "UV1-MZ2-L04", testutil.TerrenoOpts{Condicion: 2})
	testutil.SeedTerreno(t, ctx, tx, other.ID, "B-01", testutil.TerrenoOpts{})

	repo := NewTerrenoRepo(db, log)

	res, err := repo.List(dbc, TerrenoFilter{SoloDisponibles: true, ProyectoID: &p.ID}, pagination.New(1, 50, 50))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != 1 || len(res.Data) != 1 || res.Data[0].ID != libre.ID {
		t.Fatalf("List(disponibles): unexpected result total=%d data=%+v", res.Total, res.Data)
	}
	if res.Data[0].Proyecto == nil || res.Data[0].Categoria == nil || res.Data[0].Cuadra == nil || res.Data[0].Cuadra.Barrio == nil {
		t.Fatalf("List: relations not preloaded: %+v", res.Data[0])
	}

	all, err := repo.List(dbc, TerrenoFilter{ProyectoID: &p.ID, Buscar: "MZ2"}, pagination.New(1, 2, 50))
	if err != nil {
		t.Fatalf("List(buscar): %v", err)
	}
	if all.Total != 4 || len(all.Data) != 2 || all.LastPage != 2 {
		t.Fatalf("List(buscar): total=%d len=%d last=%d", all.Total, len(all.Data), all.LastPage)
	}
	if all.Data[0].Ubicacion != "UV1-MZ2-L01" {
		t.Fatalf("List: expected ubicacion order, got %s first", all.Data[0].Ubicacion)
	}

	lower, err := repo.List(dbc, TerrenoFilter{ProyectoID: &p.ID, Buscar: "uv1-mz2"}, pagination.New(1, 50, 50))
	if err != nil {
		t.Fatalf("List(buscar lower case): %v", err)
	}
	if lower.Total != 4 {
		t.Fatalf("List(buscar lower case): expected 4, got %d", lower.Total)
	}

	detail, err := repo.GetByID(dbc, libre.ID)
	if err != nil || detail == nil {
		t.Fatalf("GetByID: err=%v detail=%v", err, detail)
	}

	total, err := repo.Count(dbc, CountFilter{ProyectoID: p.ID, Condicion: pointers.Int(inventory.CondicionHabilitado)})
	if err != nil || total != 3 {
		t.Fatalf("Count(condicion): err=%v total=%d", err, total)
	}
	vendidos, err := repo.Count(dbc, CountFilter{ProyectoID: p.ID, Estado: pointers.Int(inventory.EstadoVendido)})
	if err != nil || vendidos != 1 {
		t.Fatalf("Count(vendidos): err=%v n=%d", err, vendidos)
	}

	codes, err := repo.ListCodes(dbc, p.ID)
	if err != nil || len(codes) != 4 {
		t.Fatalf("ListCodes: err=%v len=%d", err, len(codes))
	}

	drop, err := repo.ListDisponibles(dbc, nil)
	if err != nil || len(drop) != 2 {
		t.Fatalf("ListDisponibles: err=%v len=%d", err, len(drop))
	}
}

func TestMapaRepoShapes(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	p := testutil.SeedProyecto(t, ctx, tx, "Las Palmas")
	b := testutil.SeedBarrio(t, ctx, tx, p.ID, "Barrio Norte")
	cu := testutil.SeedCuadra(t, ctx, tx, b.ID, "C-1")
	cat := testutil.SeedCategoria(t, ctx, tx, p.ID, "Esquina", "#ff0000")
	testutil.SeedTerreno(t, ctx, tx, p.ID, "L01", testutil.TerrenoOpts{CuadraID: &cu.ID, CategoriaID: &cat.ID})
	testutil.SeedTerreno(t, ctx, tx, p.ID, "L02", testutil.TerrenoOpts{CuadraID: &cu.ID, CategoriaID: &cat.ID, Estado: inventory.EstadoVendido})

	repo := NewMapaRepo(db, testutil.Logger(t))

	barrios, err := repo.Barrios(dbc, p.ID)
	if err != nil {
		t.Fatalf("Barrios: %v", err)
	}
	if len(barrios) != 1 || barrios[0].TotalTerrenos != 1 || len(barrios[0].Poligono) == 0 {
		t.Fatalf("Barrios: unexpected %+v", barrios)
	}

	cuadras, err := repo.Cuadras(dbc, p.ID)
	if err != nil {
		t.Fatalf("Cuadras: %v", err)
	}
	if len(cuadras) != 1 || cuadras[0].BarrioNombre == nil || *cuadras[0].BarrioNombre != "Barrio Norte" {
		t.Fatalf("Cuadras: unexpected %+v", cuadras)
	}

	disp, err := repo.Terrenos(dbc, p.ID, true)
	if err != nil || len(disp) != 1 {
		t.Fatalf("Terrenos(disponibles): err=%v len=%d", err, len(disp))
	}
	todos, err := repo.Terrenos(dbc, p.ID, false)
	if err != nil || len(todos) != 2 {
		t.Fatalf("Terrenos(all): err=%v len=%d", err, len(todos))
	}

	cats, err := repo.Categorias(dbc, p.ID)
	if err != nil || len(cats) != 1 || cats[0].TotalTerrenos != 2 {
		t.Fatalf("Categorias: err=%v %+v", err, cats)
	}
}
