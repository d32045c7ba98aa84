package app

import (
	"os"
	"path/filepath"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/schema"
	"github.com/vk/slurmcodec/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

const catalogHCL = `
tres "cpu" {
  id = 1
}

qos "normal" {
  id       = 1
  priority = 10
}

qos "high" {
  id       = 2
  priority = 100
  preempt  = { list = ["normal"] }
}

assoc "c1" "physics" "alice" {
  id      = 10
  default = { qos = "normal" }
}
`

// setupApp writes the catalog into a temporary directory and builds an App
// reading it.
func setupApp(t *testing.T, mutate func(*Config)) (*App, *testutil.SafeBuffer) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.hcl"), []byte(catalogHCL), 0o644))

	cfg := validConfig()
	cfg.CatalogPaths = []string{dir}
	cfg.LogLevel = "debug"
	if mutate != nil {
		mutate(&cfg)
	}
	logs := &testutil.SafeBuffer{}
	a := NewApp(logs, &cfg)
	t.Cleanup(func() {
		if os.Getenv("SLURMCODEC_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, logs
}

func TestNewApp(t *testing.T) {
	t.Parallel()
	// Act
	a, logs := setupApp(t, nil)

	// Assert
	assert.Equal(t, schema.NewRegistry().Len(), a.Registry().Len())
	assert.Len(t, a.Catalogs().QOS, 2)
	assert.Len(t, a.Catalogs().Assocs, 1)
	assert.Equal(t, 2.0, promtest.ToFloat64(a.Metrics().Catalogs().WithLabelValues("qos")))
	assert.Contains(t, logs.String(), "Registry validation passed.")
	assert.Contains(t, logs.String(), "component=slurmcodec")
}

func TestNewApp_PanicsOnBrokenCatalog(t *testing.T) {
	t.Parallel()
	// Arrange
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.hcl"), []byte(`qos "normal" {`), 0o644))
	cfg := validConfig()
	cfg.CatalogPaths = []string{dir}

	// Act & Assert
	assert.Panics(t, func() { NewApp(&testutil.SafeBuffer{}, &cfg) })
}

func TestApp_Parse(t *testing.T) {
	t.Parallel()
	// Arrange
	a, _ := setupApp(t, nil)
	doc := cty.ObjectVal(map[string]cty.Value{
		"user":    cty.StringVal("bob"),
		"account": cty.StringVal("physics"),
		"default": cty.ObjectVal(map[string]cty.Value{"qos": cty.StringVal("high")}),
		"colour":  cty.StringVal("red"),
	})

	// Act
	rec, diags, err := a.Parse(a.Context(), schema.TypeAssoc, doc)

	// Assert
	require.NoError(t, err)
	assoc, ok := rec.(*model.Assoc)
	require.True(t, ok)
	assert.Equal(t, "bob", assoc.User)
	assert.Equal(t, uint32(2), assoc.DefaultQOS)
	assert.Equal(t, []diag.Code{diag.CodeUnknownField}, diags.Codes())
	assert.Equal(t, 1.0, promtest.ToFloat64(a.Metrics().Calls().WithLabelValues("parse", "ASSOC", "ok")))
}

func TestApp_ParseErrors(t *testing.T) {
	t.Parallel()
	a, _ := setupApp(t, nil)

	_, _, err := a.Parse(a.Context(), "NOPE", cty.EmptyObjectVal)
	assert.ErrorIs(t, err, diag.ErrSchema)

	_, diags, err := a.Parse(a.Context(), schema.TypeAssoc, cty.ObjectVal(map[string]cty.Value{
		"user":    cty.StringVal("bob"),
		"default": cty.ObjectVal(map[string]cty.Value{"qos": cty.StringVal("gold")}),
	}))
	assert.ErrorIs(t, err, diag.ErrReference)
	assert.True(t, diags.HasErrors())
}

func TestApp_Dump(t *testing.T) {
	t.Parallel()
	// Arrange
	a, _ := setupApp(t, nil)
	assoc := a.Catalogs().Assocs[0]

	// Act
	v, _, err := a.Dump(a.Context(), schema.TypeAssoc, &assoc)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "alice", v.GetAttr("user").AsString())
	assert.Equal(t, "normal", v.GetAttr("default").GetAttr("qos").AsString())
}

func TestApp_RoundTrip(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name         string
		mode         string
		wantPriority func(t *testing.T, v cty.Value)
	}{
		{
			name: "compact",
			mode: "compact",
			wantPriority: func(t *testing.T, v cty.Value) {
				assert.True(t, v.RawEquals(cty.StringVal("Infinity")), "got %#v", v)
			},
		},
		{
			name: "verbose",
			mode: "verbose",
			wantPriority: func(t *testing.T, v cty.Value) {
				assert.True(t, v.GetAttr("unbounded").True())
				assert.True(t, v.GetAttr("present").True())
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// Arrange
			a, _ := setupApp(t, func(c *Config) { c.Mode = tc.mode })
			doc := cty.ObjectVal(map[string]cty.Value{
				"name":     cty.StringVal("burst"),
				"priority": cty.StringVal("Infinity"),
				"preempt":  cty.ObjectVal(map[string]cty.Value{"list": cty.TupleVal([]cty.Value{cty.StringVal("HIGH")})}),
			})

			// Act
			out, diags, err := a.RoundTrip(a.Context(), schema.TypeQOS, doc)

			// Assert
			require.NoError(t, err)
			assert.False(t, diags.HasErrors())
			assert.Equal(t, "burst", out.GetAttr("name").AsString())
			tc.wantPriority(t, out.GetAttr("priority"))
			assert.True(t, cty.TupleVal([]cty.Value{cty.StringVal("high")}).RawEquals(out.GetAttr("preempt").GetAttr("list")))
		})
	}
}

func TestApp_Reload(t *testing.T) {
	t.Parallel()
	// Arrange
	a, _ := setupApp(t, nil)
	before := a.Catalogs()
	extra := filepath.Join(a.Config().CatalogPaths[0], "more.hcl")
	require.NoError(t, os.WriteFile(extra, []byte("qos \"debug\" {\n  id = 7\n}\n"), 0o644))

	// Act
	err := a.Reload(a.Context())

	// Assert
	require.NoError(t, err)
	assert.Len(t, before.QOS, 2, "old snapshot must stay untouched")
	assert.Len(t, a.Catalogs().QOS, 3)
	_, ok := a.Catalogs().QOSByName("debug")
	assert.True(t, ok)
}

func TestApp_WriteMetrics(t *testing.T) {
	t.Parallel()
	// Arrange
	file := filepath.Join(t.TempDir(), "slurmcodec.prom")
	a, _ := setupApp(t, func(c *Config) { c.MetricsFile = file })
	_, _, err := a.Parse(a.Context(), schema.TypeQOS, cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("x")}))
	require.NoError(t, err)

	// Act
	require.NoError(t, a.WriteMetrics())

	// Assert
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `slurmcodec_codec_calls_total{op="parse",status="ok",type="QOS"} 1`)
	assert.Contains(t, string(raw), `slurmcodec_catalog_records{catalog="qos"} 2`)
}

func TestApp_WriteMetricsDisabled(t *testing.T) {
	t.Parallel()
	a, _ := setupApp(t, nil)
	assert.NoError(t, a.WriteMetrics())
}

func TestApp_OpenAPI(t *testing.T) {
	t.Parallel()
	a, _ := setupApp(t, func(c *Config) { c.APIVersion = "v0.0.41" })

	doc, err := a.OpenAPI(a.Context(), "slurmcodec")

	require.NoError(t, err)
	assert.Equal(t, "v0.0.41", doc.GetAttr("info").GetAttr("version").AsString())
}
