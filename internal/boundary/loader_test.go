package boundary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/geosalud/acceso/internal/geospatial"
	"github.com/geosalud/acceso/internal/model"
)

// squareShape returns a clockwise unit square around (cx, cy) in shapefile
// winding.
func squareShape(cx, cy float64) *shp.Polygon {
	points := []shp.Point{
		{X: cx - 0.5, Y: cy - 0.5},
		{X: cx - 0.5, Y: cy + 0.5},
		{X: cx + 0.5, Y: cy + 0.5},
		{X: cx + 0.5, Y: cy - 0.5},
		{X: cx - 0.5, Y: cy - 0.5},
	}
	return &shp.Polygon{
		Box:       shp.Box{MinX: cx - 0.5, MinY: cy - 0.5, MaxX: cx + 0.5, MaxY: cy + 0.5},
		NumParts:  1,
		NumPoints: int32(len(points)),
		Parts:     []int32{0},
		Points:    points,
	}
}

// writeDistricts writes a minimal district shapefile with the given id field
// name and rows of (id, name, center).
func writeDistricts(t *testing.T, dir, idField string, rows []struct {
	id, name string
	cx, cy   float64
}) string {
	t.Helper()
	path := filepath.Join(dir, "distritos.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField(idField, 10),
		shp.StringField("DISTRITO", 40),
	})

	for _, row := range rows {
		n := w.Write(squareShape(row.cx, row.cy))
		require.NoError(t, w.WriteAttribute(int(n), 0, row.id))
		require.NoError(t, w.WriteAttribute(int(n), 1, row.name))
	}
	w.Close()
	fixWriterDBF(t, path)
	return path
}

// fixWriterDBF renames the attribute file the go-shp writer emits without an
// extension dot to the <base>.dbf name the reader opens.
func fixWriterDBF(t *testing.T, shpPath string) {
	t.Helper()
	base := strings.TrimSuffix(shpPath, ".shp")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
}

func TestLoad_Basic(t *testing.T) {
	path := writeDistricts(t, t.TempDir(), "IDDIST", []struct {
		id, name string
		cx, cy   float64
	}{
		{"150101", "LIMA", -77.0, -12.0},
		{"150102", "ANCON", -77.1, -11.7},
	})

	districts, err := Load(path)
	require.NoError(t, err)
	require.Len(t, districts, 2)

	assert.Equal(t, 150101, districts[0].DistrictCode)
	assert.Equal(t, "LIMA", districts[0].DistrictName)
	require.False(t, districts[0].Boundary.IsZero())
	assert.True(t, geospatial.IsValid(districts[0].Boundary.T))
	assert.True(t, geospatial.Contains(districts[0].Boundary.T, geom.Coord{-77.0, -12.0}))
}

func TestLoad_UbigeoFallbackColumn(t *testing.T) {
	path := writeDistricts(t, t.TempDir(), "UBIGEO", []struct {
		id, name string
		cx, cy   float64
	}{
		{"010101", "CHACHAPOYAS", -77.87, -6.23},
	})

	districts, err := Load(path)
	require.NoError(t, err)
	require.Len(t, districts, 1)
	assert.Equal(t, 10101, districts[0].DistrictCode)
}

func TestLoad_MissingIDColumnIsSchemaError(t *testing.T) {
	path := writeDistricts(t, t.TempDir(), "OTHERCOL", []struct {
		id, name string
		cx, cy   float64
	}{
		{"150101", "LIMA", -77.0, -12.0},
	})

	_, err := Load(path)
	require.Error(t, err)

	var schemaErr *model.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "boundary", schemaErr.Source)
}

func TestLoad_DropsNonNumericIDs(t *testing.T) {
	path := writeDistricts(t, t.TempDir(), "IDDIST", []struct {
		id, name string
		cx, cy   float64
	}{
		{"150101", "LIMA", -77.0, -12.0},
		{"ABC", "ROTO", -77.2, -12.2},
	})

	districts, err := Load(path)
	require.NoError(t, err)
	require.Len(t, districts, 1)
	assert.Equal(t, 150101, districts[0].DistrictCode)
}

func TestLoad_DuplicateCodesKeepFirst(t *testing.T) {
	path := writeDistricts(t, t.TempDir(), "IDDIST", []struct {
		id, name string
		cx, cy   float64
	}{
		{"150101", "PRIMERO", -77.0, -12.0},
		{"150101", "SEGUNDO", -76.0, -11.0},
	})

	districts, err := Load(path)
	require.NoError(t, err)
	require.Len(t, districts, 1)
	assert.Equal(t, "PRIMERO", districts[0].DistrictName)
}

func TestLoad_UTMPrjReprojectsToWGS84(t *testing.T) {
	dir := t.TempDir()
	// Lima's plaza in UTM 18S meters.
	path := writeDistricts(t, dir, "IDDIST", []struct {
		id, name string
		cx, cy   float64
	}{
		{"150101", "LIMA", 277000, 8667000},
	})

	prj := `PROJCS["WGS_1984_UTM_Zone_18S",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]]],UNIT["Meter",1.0]]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "distritos.prj"), []byte(prj), 0o644))

	districts, err := Load(path)
	require.NoError(t, err)
	require.Len(t, districts, 1)

	b := districts[0].Boundary.T.Bounds()
	assert.InDelta(t, -77.0, b.Min(0), 0.5)
	assert.InDelta(t, -12.0, b.Min(1), 0.5)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.shp"))
	require.Error(t, err)
}
