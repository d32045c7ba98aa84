package hcl_adapter

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slurmcodec/internal/catalog"
	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/schema"
	"github.com/vk/slurmcodec/internal/sentinel"
	"github.com/vk/slurmcodec/internal/testutil"
)

// writeFiles creates files relative to a fresh temporary directory and
// returns the directory.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func newLoader(t *testing.T, opts ...LoaderOption) *Loader {
	t.Helper()
	r := schema.NewRegistry()
	r.MustValidate(testutil.Quiet(t))
	return NewLoader(r, opts...)
}

type recordingObserver struct {
	counts map[string]int
	at     time.Time
}

func (o *recordingObserver) ObserveCatalogs(counts map[string]int, at time.Time) {
	o.counts, o.at = counts, at
}

const tresHCL = `
tres "cpu" {
  id = 1
}

tres "gres/gpu" {
  id = 1001
}

tres "mem" {}
`

// QOS are declared before the TRES they use, in a file read earlier.
const qosHCL = `
qos "normal" {
  id       = 1
  priority = 10
  flags    = ["DENY_LIMIT"]
  limits = {
    max = {
      wall_clock = { per = { job = 60 } }
      tres       = { per = { job = "cpu=4,gres/gpu=2" } }
    }
  }
}

qos "high" {
  priority = unlimited
  preempt = {
    list = ["normal"]
    mode = ["REQUEUE"]
  }
}
`

const assocHCL = `
assoc "c1" "physics" "alice" {
  is_default = true
  default    = { qos = "normal" }
  qos        = ["normal", "high"]
  shares_raw = 5
}

assoc "c1" "physics" "" {}
`

func TestLoader_Load(t *testing.T) {
	t.Parallel()
	// Arrange
	dir := writeFiles(t, map[string]string{
		"a_qos.hcl":          qosHCL,
		"b_tres.hcl":         tresHCL,
		"nested/assocs.hcl":  assocHCL,
		"nested/ignored.txt": "not a catalog",
	})
	obs := &recordingObserver{}
	loader := newLoader(t, WithObserver(obs))
	loader.now = func() time.Time { return time.Unix(1700000000, 0) }

	// Act
	set, err := loader.Load(testutil.Quiet(t), dir)

	// Assert
	require.NoError(t, err)

	normal := model.NewQOS()
	normal.ID = 1
	normal.Name = "normal"
	normal.Priority = sentinel.Of[uint32](10)
	normal.Flags = model.QOSFlagDenyLimit
	normal.Limits.MaxWallPerJob = 60
	normal.Limits.MaxTRESPerJob = "1=4,1001=2"

	high := model.NewQOS()
	high.ID = 2
	high.Name = "high"
	high.Priority = sentinel.Unlimited[uint32]()
	high.Preempt.List = []string{"normal"}
	high.Preempt.Mode = model.PreemptModeRequeue

	cpu, gpu, mem := model.NewTRES(), model.NewTRES(), model.NewTRES()
	cpu.ID, cpu.Type = 1, "cpu"
	gpu.ID, gpu.Type, gpu.Name = 1001, "gres", "gpu"
	mem.ID, mem.Type = 1002, "mem"

	alice, account := model.NewAssoc(), model.NewAssoc()
	alice.ID, alice.Cluster, alice.Account, alice.User = 1, "c1", "physics", "alice"
	alice.IsDefault = 1
	alice.DefaultQOS = 1
	alice.QOS = []string{"normal", "high"}
	alice.SharesRaw = 5
	account.ID, account.Cluster, account.Account = 2, "c1", "physics"

	want := &catalog.Set{
		QOS:    []model.QOS{normal, high},
		TRES:   []model.TRES{cpu, gpu, mem},
		Assocs: []model.Assoc{alice, account},
	}
	if diff := cmp.Diff(want, set, cmpopts.EquateNaNs(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("loaded catalogs mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, math.IsNaN(set.QOS[0].UsageFactor))

	assert.Equal(t, map[string]int{"tres": 3, "qos": 2, "assoc": 2}, obs.counts)
	assert.Equal(t, int64(1700000000), obs.at.Unix())
}

func TestLoader_LoadSingleFileAndMissingPath(t *testing.T) {
	t.Parallel()
	// Arrange
	dir := writeFiles(t, map[string]string{"tres.hcl": tresHCL})

	// Act
	set, err := newLoader(t).Load(testutil.Quiet(t), filepath.Join(dir, "tres.hcl"), filepath.Join(dir, "missing"))

	// Assert
	require.NoError(t, err)
	assert.Len(t, set.TRES, 3)
	assert.Empty(t, set.QOS)
	assert.Empty(t, set.Assocs)
}

func TestLoader_LogsWarnings(t *testing.T) {
	t.Parallel()
	// Arrange
	ctx, logs := testutil.Context(t)
	dir := writeFiles(t, map[string]string{"qos.hcl": `
qos "normal" {
  colour = "red"
}
`})

	// Act
	set, err := newLoader(t).Load(ctx, dir)

	// Assert
	require.NoError(t, err)
	require.Len(t, set.QOS, 1)
	assert.Contains(t, logs.String(), "Catalog block converted with a warning.")
	assert.Contains(t, logs.String(), "colour")
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		files    map[string]string
		wantErr  string
		wantCode diag.Code
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"bad.hcl": `qos "normal" {`},
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "unknown block type",
			files:   map[string]string{"bad.hcl": `partition "debug" {}`},
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "top-level attribute",
			files:   map[string]string{"bad.hcl": `answer = 42`},
			wantErr: `unexpected top-level attribute "answer"`,
		},
		{
			name:    "nested block inside a record",
			files:   map[string]string{"bad.hcl": "qos \"normal\" {\n  limits {\n  }\n}\n"},
			wantErr: "Unexpected \"limits\" block",
		},
		{
			name:    "unknown variable",
			files:   map[string]string{"bad.hcl": "qos \"normal\" {\n  priority = forever\n}\n"},
			wantErr: `invalid value for "priority"`,
		},
		{
			name:     "unknown flag",
			files:    map[string]string{"bad.hcl": "qos \"normal\" {\n  flags = [\"NOPE\"]\n}\n"},
			wantErr:  `invalid qos block "normal"`,
			wantCode: diag.CodeUnknownFlag,
		},
		{
			name:     "unknown TRES in a limit",
			files:    map[string]string{"bad.hcl": "qos \"normal\" {\n  limits = { max = { tres = { per = { job = \"gres/fpga=1\" } } } }\n}\n"},
			wantErr:  `qos["normal"].limits.max.tres.per.job`,
			wantCode: diag.CodeNotFound,
		},
		{
			name:     "association with an unknown default QOS",
			files:    map[string]string{"bad.hcl": "assoc \"c1\" \"physics\" \"bob\" {\n  default = { qos = \"gold\" }\n}\n"},
			wantErr:  `invalid assoc block "c1/physics/bob"`,
			wantCode: diag.CodeNotFound,
		},
		{
			name: "duplicate QOS name",
			files: map[string]string{
				"a.hcl": "qos \"normal\" {}\n",
				"b.hcl": "qos \"Normal\" {}\n",
			},
			wantErr: `qos "Normal": declared more than once`,
		},
		{
			name:    "duplicate TRES id",
			files:   map[string]string{"bad.hcl": "tres \"cpu\" {\n  id = 1\n}\ntres \"mem\" {\n  id = 1\n}\n"},
			wantErr: `tres "mem": id 1 is already used`,
		},
		{
			name:    "duplicate association",
			files:   map[string]string{"bad.hcl": "assoc \"c1\" \"physics\" \"alice\" {}\nassoc \"c1\" \"physics\" \"alice\" {}\n"},
			wantErr: `assoc "c1/physics/alice": declared more than once`,
		},
		{
			name:    "preemption of an undeclared QOS",
			files:   map[string]string{"bad.hcl": "qos \"high\" {\n  preempt = { list = [\"normal\"] }\n}\n"},
			wantErr: `qos "high" may preempt "normal", which is not declared`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// Arrange
			dir := writeFiles(t, tc.files)

			// Act
			set, err := newLoader(t).Load(testutil.Quiet(t), dir)

			// Assert
			require.Error(t, err)
			assert.Nil(t, set)
			assert.Contains(t, err.Error(), tc.wantErr)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, diag.CodeOf(err))
			}
		})
	}
}

func TestAssignIDs(t *testing.T) {
	t.Parallel()
	// Arrange
	records := []model.QOS{{Name: "a"}, {ID: 5, Name: "b"}, {Name: "c"}}

	// Act
	assignIDs(records, func(q *model.QOS) *uint32 { return &q.ID })

	// Assert
	assert.Equal(t, []uint32{6, 5, 7}, []uint32{records[0].ID, records[1].ID, records[2].ID})
}
