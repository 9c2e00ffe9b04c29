package pipeline

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geosalud/acceso/internal/config"
	"github.com/geosalud/acceso/internal/model"
)

const facilityHeader = "Código Único,Nombre del establecimiento,UBIGEO,NORTE,ESTE,Departamento,Estado,Condición"

// writeFixtures lays out a complete data directory: facility CSV, district
// shapefile, and optionally the population-center archive. It returns a
// Config pointing at it.
func writeFixtures(t *testing.T, withCenters bool) *config.Config {
	t.Helper()
	dir := t.TempDir()

	csvLines := []string{
		facilityHeader,
		"00001,HOSPITAL CENTRO,150101,-77.03,-12.04,LIMA,ACTIVADO,EN FUNCIONAMIENTO",
		"00002,HOSPITAL NORTE,150102,-77.08,-11.72,LIMA,ACTIVADO,EN FUNCIONAMIENTO",
		"00003,POSTA CERRADA,150101,-77.01,-12.02,LIMA,DESACTIVADO,EN FUNCIONAMIENTO",
		"00004,HOSPITAL SELVA,160101,-73.25,-3.75,LORETO,ACTIVADO,EN FUNCIONAMIENTO",
		// Passes the operational filters but its district code matches no
		// boundary, so the join drops it and no analysis may count it.
		"00005,HOSPITAL HUERFANO,999999,-77.02,-12.03,LIMA,ACTIVADO,EN FUNCIONAMIENTO",
	}
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "IPRESS.csv"),
		[]byte(strings.Join(csvLines, "\n")+"\n"), 0o644))

	shapeDir := filepath.Join(dir, "shape_file")
	require.NoError(t, os.MkdirAll(shapeDir, 0o755))
	writeDistrictShapefile(t, filepath.Join(shapeDir, "DISTRITOS.shp"), []districtRow{
		{"150101", "LIMA", -77.0, -12.0},
		{"150102", "ANCON", -77.1, -11.7},
		{"150103", "ATE", -76.9, -12.0},
		{"160101", "IQUITOS", -73.25, -3.75},
	})

	if withCenters {
		writeCentersArchive(t, filepath.Join(dir, "CCPP_0.zip"), []centerRow{
			{"PUEBLO A", "LIMA", "LIMA", "LIMA", "0001", -77.02, -12.03},
			{"PUEBLO B", "LORETO", "MAYNAS", "IQUITOS", "0002", -73.9, -4.3},
		})
	}

	return &config.Config{
		Data: config.DataConfig{
			Dir:          dir,
			FacilityFile: "IPRESS.csv",
			BoundaryFile: filepath.Join("shape_file", "DISTRITOS.shp"),
			CentersFile:  "CCPP_0.zip",
		},
		Analysis: config.AnalysisConfig{
			RadiusMeters: 10000,
			Departments:  []string{"LIMA", "LORETO"},
		},
		Cache: config.CacheConfig{TTLHours: 1},
	}
}

type districtRow struct {
	id, name string
	cx, cy   float64
}

func writeDistrictShapefile(t *testing.T, path string, rows []districtRow) {
	t.Helper()
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("IDDIST", 10),
		shp.StringField("DISTRITO", 40),
	})
	for _, row := range rows {
		// Clockwise unit square, shapefile outer-ring winding.
		points := []shp.Point{
			{X: row.cx - 0.5, Y: row.cy - 0.5},
			{X: row.cx - 0.5, Y: row.cy + 0.5},
			{X: row.cx + 0.5, Y: row.cy + 0.5},
			{X: row.cx + 0.5, Y: row.cy - 0.5},
			{X: row.cx - 0.5, Y: row.cy - 0.5},
		}
		n := w.Write(&shp.Polygon{
			Box:       shp.Box{MinX: row.cx - 0.5, MinY: row.cy - 0.5, MaxX: row.cx + 0.5, MaxY: row.cy + 0.5},
			NumParts:  1,
			NumPoints: int32(len(points)),
			Parts:     []int32{0},
			Points:    points,
		})
		require.NoError(t, w.WriteAttribute(int(n), 0, row.id))
		require.NoError(t, w.WriteAttribute(int(n), 1, row.name))
	}
	w.Close()
	fixWriterDBF(t, path)
}

// fixWriterDBF renames the attribute file the go-shp writer emits without an
// extension dot to the <base>.dbf name the reader opens.
func fixWriterDBF(t *testing.T, shpPath string) {
	t.Helper()
	base := strings.TrimSuffix(shpPath, ".shp")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
}

type centerRow struct {
	name, dep, prov, dist, code string
	x, y                        float64
}

func writeCentersArchive(t *testing.T, zipPath string, rows []centerRow) {
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
	fixWriterDBF(t, shpPath)

	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	sidecars, err := filepath.Glob(filepath.Join(dir, "CCPP_0.*"))
	require.NoError(t, err)
	for _, path := range sidecars {
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
}

func TestLoadAll_FullRun(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())
	cfg := writeFixtures(t, true)

	bundle, err := LoadAll(context.Background(), cfg)
	require.NoError(t, err)

	assert.Len(t, bundle.Facilities, 4)
	assert.Len(t, bundle.Districts, 4)
	assert.Len(t, bundle.Joined, 3)

	// Every district appears in the counts, including zero-hospital ones.
	require.Len(t, bundle.DistrictCounts, 4)
	byCode := map[int]int{}
	for _, c := range bundle.DistrictCounts {
		byCode[c.DistrictCode] = c.HospitalCount
	}
	assert.Equal(t, 1, byCode[150101])
	assert.Equal(t, 1, byCode[150102])
	assert.Equal(t, 0, byCode[150103])
	assert.Equal(t, 1, byCode[160101])

	require.Len(t, bundle.DepartmentTotals, 2)
	assert.Equal(t, "LIMA", bundle.DepartmentTotals[0].Department)
	assert.Equal(t, 2, bundle.DepartmentTotals[0].TotalHospitals)

	require.Len(t, bundle.Centers, 2)
	require.Contains(t, bundle.Proximity, "LIMA")
	require.Contains(t, bundle.Proximity, "LORETO")

	lima := bundle.Proximity["LIMA"]
	require.NotNil(t, lima)
	require.Len(t, lima.Centers, 1)
	// PUEBLO A sits a couple of km from HOSPITAL CENTRO, well over 10 km
	// from HOSPITAL NORTE, and right next to HOSPITAL HUERFANO, which only
	// joined facilities may contribute.
	assert.Equal(t, 1, lima.Centers[0].FacilitiesWithin)

	loreto := bundle.Proximity["LORETO"]
	require.NotNil(t, loreto)
	require.Len(t, loreto.Centers, 1)
	// PUEBLO B is roughly 90 km from the Iquitos hospital.
	assert.Equal(t, 0, loreto.Centers[0].FacilitiesWithin)
}

func TestLoadAll_MissingFacilityFile(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())
	cfg := writeFixtures(t, false)
	require.NoError(t, os.Remove(cfg.Data.FacilityPath()))

	_, err := LoadAll(context.Background(), cfg)
	var missing *model.MissingFileError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, cfg.Data.FacilityPath(), missing.Path)
}

func TestLoadAll_CentersOptional(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())
	cfg := writeFixtures(t, false)

	bundle, err := LoadAll(context.Background(), cfg)
	require.NoError(t, err)

	assert.Nil(t, bundle.Centers)
	require.Len(t, bundle.Proximity, 2)
	assert.Nil(t, bundle.Proximity["LIMA"])
	assert.Nil(t, bundle.Proximity["LORETO"])
}

func TestLoadAll_EmptyJoinFatal(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())
	cfg := writeFixtures(t, false)

	// Replace the boundary file with districts whose codes match no facility.
	writeDistrictShapefile(t, cfg.Data.BoundaryPath(), []districtRow{
		{"999901", "NINGUNO", -70.0, -15.0},
	})

	_, err := LoadAll(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "join produced no rows")
}

func TestLoadAll_Cancelled(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())
	cfg := writeFixtures(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadAll(ctx, cfg)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFingerprint_StableAndSensitive(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(a, []byte("one"), 0o644))

	first := Fingerprint(a)
	assert.Equal(t, first, Fingerprint(a))

	// Changing content changes size, which must change the key.
	require.NoError(t, os.WriteFile(a, []byte("longer content"), 0o644))
	assert.NotEqual(t, first, Fingerprint(a))
}

func TestFingerprint_AbsentFileDistinct(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.csv")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o644))

	withAbsent := Fingerprint(present, filepath.Join(dir, "ghost.zip"))
	withoutAbsent := Fingerprint(present)
	assert.NotEqual(t, withAbsent, withoutAbsent)
}

type fakeStore struct {
	bundles map[string]*model.Bundle
	gets    int
	puts    int
}

func (f *fakeStore) GetBundle(_ context.Context, fp string) (*model.Bundle, error) {
	f.gets++
	return f.bundles[fp], nil
}

func (f *fakeStore) PutBundle(_ context.Context, fp string, b *model.Bundle, _ time.Duration) error {
	f.puts++
	f.bundles[fp] = b
	return nil
}

func TestRunner_CachesComputedBundle(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())
	cfg := writeFixtures(t, false)
	cache := &fakeStore{bundles: map[string]*model.Bundle{}}
	runner := NewRunner(cfg, cache)

	first, err := runner.Bundle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)

	second, err := runner.Bundle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts, "unchanged inputs should hit the cache")
	assert.Equal(t, len(first.Facilities), len(second.Facilities))
}

func TestRunner_NilCacheStillRuns(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())
	cfg := writeFixtures(t, false)
	runner := NewRunner(cfg, nil)

	bundle, err := runner.Bundle(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, bundle.Facilities)
}
