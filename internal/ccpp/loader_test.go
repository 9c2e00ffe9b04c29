package ccpp

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type centerRow struct {
	name, dep, prov, dist, code string
	x, y                        float64
}

// writeCenters writes a point shapefile with the known CCPP attribute schema
// and zips it (with sidecars) the way the source archive is published.
func writeCenters(t *testing.T, rows []centerRow) string {
	t.Helper()
	dir := t.TempDir()
	shpPath := filepath.Join(dir, "CCPP_0.shp")

	w, err := shp.Create(shpPath, shp.POINT)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("NOM_POBLAD", 60),
		shp.StringField("DEP", 30),
		shp.StringField("PROV", 30),
		shp.StringField("DIST", 30),
		shp.StringField("CODIGO", 15),
	})
	for _, row := range rows {
		n := w.Write(&shp.Point{X: row.x, Y: row.y})
		require.NoError(t, w.WriteAttribute(int(n), 0, row.name))
		require.NoError(t, w.WriteAttribute(int(n), 1, row.dep))
		require.NoError(t, w.WriteAttribute(int(n), 2, row.prov))
		require.NoError(t, w.WriteAttribute(int(n), 3, row.dist))
		require.NoError(t, w.WriteAttribute(int(n), 4, row.code))
	}
	w.Close()
	// The writer emits the attribute file without an extension dot; rename
	// it to the <base>.dbf name the reader opens.
	require.NoError(t, os.Rename(filepath.Join(dir, "CCPP_0dbf"), filepath.Join(dir, "CCPP_0.dbf")))

	zipPath := filepath.Join(dir, "CCPP_0.zip")
	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	sidecars, err := filepath.Glob(filepath.Join(dir, "CCPP_0.*"))
	require.NoError(t, err)
	for _, path := range sidecars {
		if filepath.Ext(path) == ".zip" {
			continue
		}
		src, err := os.Open(path)
		require.NoError(t, err)
		entry, err := zw.Create(filepath.Base(path))
		require.NoError(t, err)
		_, err = io.Copy(entry, src)
		require.NoError(t, err)
		require.NoError(t, src.Close())
	}
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())
	return zipPath
}

func TestLoad_KnownSchema(t *testing.T) {
	zipPath := writeCenters(t, []centerRow{
		{"SAN JUAN", "LIMA", "LIMA", "SAN JUAN DE LURIGANCHO", "0001", -77.0, -12.0},
		{"BELEN", "LORETO", "MAYNAS", "BELEN", "0002", -73.25, -3.77},
	})

	centers, err := Load(zipPath)
	require.NoError(t, err)
	require.Len(t, centers, 2)

	c := centers[0]
	assert.Equal(t, "SAN JUAN", c.Name)
	assert.Equal(t, "LIMA", c.Department)
	assert.Equal(t, "LIMA", c.Province)
	assert.Equal(t, "SAN JUAN DE LURIGANCHO", c.District)
	assert.Equal(t, "0001", c.ID)
	require.False(t, c.Location.IsZero())
}

func TestLoad_DeduplicatesByID(t *testing.T) {
	zipPath := writeCenters(t, []centerRow{
		{"PRIMERO", "LIMA", "LIMA", "LIMA", "0001", -77.0, -12.0},
		{"SEGUNDO", "LIMA", "LIMA", "LIMA", "0001", -77.1, -12.1},
		{"TERCERO", "LIMA", "LIMA", "LIMA", "0003", -77.2, -12.2},
	})

	centers, err := Load(zipPath)
	require.NoError(t, err)
	require.Len(t, centers, 2)
	assert.Equal(t, "PRIMERO", centers[0].Name)
	assert.Equal(t, "TERCERO", centers[1].Name)
}

func TestLoad_AbsentArchiveIsUnavailableNotError(t *testing.T) {
	centers, err := Load(filepath.Join(t.TempDir(), "CCPP_0.zip"))
	require.NoError(t, err)
	assert.Nil(t, centers)
}

func TestMapColumns_KnownSchema(t *testing.T) {
	mapping := mapColumns([]string{"NOM_POBLAD", "DEP", "PROV", "DIST", "CODIGO"}, zap.NewNop())

	assert.Equal(t, 0, mapping["name"])
	assert.Equal(t, 1, mapping["department"])
	assert.Equal(t, 2, mapping["province"])
	assert.Equal(t, 3, mapping["district"])
	assert.Equal(t, 4, mapping["id"])
}

func TestMapColumns_LowercaseVariants(t *testing.T) {
	mapping := mapColumns([]string{"centro_poblado", "departamento", "provincia", "distrito", "codigo_ccpp"}, zap.NewNop())

	assert.Contains(t, mapping, "name")
	assert.Contains(t, mapping, "department")
	assert.Contains(t, mapping, "province")
	assert.Contains(t, mapping, "district")
	assert.Contains(t, mapping, "id")
}

func TestMapColumns_UnmappedColumnsIgnored(t *testing.T) {
	mapping := mapColumns([]string{"NOM_POBLAD", "ALTITUD"}, zap.NewNop())

	assert.Len(t, mapping, 1)
	assert.Equal(t, 0, mapping["name"])
}

func TestMapColumns_FirstMatchWins(t *testing.T) {
	// Two department-looking columns: the first claims the field, the second
	// falls through to the next unclaimed target it matches, if any.
	mapping := mapColumns([]string{"DEP", "DEPARTAMENTO"}, zap.NewNop())
	assert.Equal(t, 0, mapping["department"])
	assert.NotContains(t, mapping, "name")
}
