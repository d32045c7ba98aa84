package schema

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/vk/slurmcodec/internal/sentinel"
	"github.com/vk/slurmcodec/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

func newContext(t *testing.T, opts ...parser.ContextOption) *parser.Context {
	t.Helper()
	opts = append([]parser.ContextOption{parser.WithCatalogs(testutil.Catalogs())}, opts...)
	return parser.NewContext(testutil.Quiet(t), NewRegistry(), opts...)
}

func obj(attrs map[string]cty.Value) cty.Value { return cty.ObjectVal(attrs) }

func strs(ss ...string) cty.Value {
	if len(ss) == 0 {
		return cty.EmptyTupleVal
	}
	vals := make([]cty.Value, len(ss))
	for i, s := range ss {
		vals[i] = cty.StringVal(s)
	}
	return cty.TupleVal(vals)
}

// at walks nested attributes of an object value.
func at(t *testing.T, v cty.Value, keys ...string) cty.Value {
	t.Helper()
	for _, k := range keys {
		require.True(t, v.Type().IsObjectType(), "expected an object at %q, got %s", k, v.Type().FriendlyName())
		require.True(t, v.Type().HasAttribute(k), "missing attribute %q", k)
		v = v.GetAttr(k)
	}
	return v
}

func assertCty(t *testing.T, want, got cty.Value) {
	t.Helper()
	assert.True(t, want.RawEquals(got), "want %#v\n got %#v", want, got)
}

func minimalJob() map[string]cty.Value {
	return map[string]cty.Value{
		"current_working_directory": cty.StringVal("/home/alice"),
		"environment":               strs("PATH=/bin"),
	}
}

func with(base map[string]cty.Value, k string, v cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value, len(base)+1)
	for key, val := range base {
		out[key] = val
	}
	out[k] = v
	return out
}

func TestNewRegistry_Validates(t *testing.T) {
	t.Parallel()
	// Arrange
	reg := NewRegistry()

	// Act
	err := reg.ValidateRegistry(testutil.Quiet(t))

	// Assert
	require.NoError(t, err)
	for _, id := range []parser.TypeID{TypeQOS, TypeAssocList, TypeJobDesc, TypeJobInfoList, TypePartitionList, parser.TypeUint32NoVal} {
		_, ok := reg.Lookup(id)
		assert.True(t, ok, "%s is not registered", id)
	}
}

func TestQOS_ParseAndDump(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t)
	in := obj(map[string]cty.Value{
		"name":     cty.StringVal("batch"),
		"flags":    strs("NO_DECAY", "deny_limit"),
		"priority": cty.NumberIntVal(50),
		"limits": obj(map[string]cty.Value{
			"max": obj(map[string]cty.Value{
				"wall_clock": obj(map[string]cty.Value{"per": obj(map[string]cty.Value{"job": cty.NumberIntVal(60)})}),
				"tres":       obj(map[string]cty.Value{"per": obj(map[string]cty.Value{"job": cty.StringVal("cpu=4,gres/gpu=1")})}),
			}),
		}),
		"preempt": obj(map[string]cty.Value{
			"list": strs("normal", "later"),
			"mode": strs("REQUEUE", "GANG"),
		}),
	})

	// Act
	var q model.QOS
	err := parser.ParseAs(c, TypeQOS, in, &q, nil)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, c.Diagnostics())
	assert.Equal(t, "batch", q.Name)
	assert.Equal(t, model.QOSFlagDenyLimit|model.QOSFlagNoDecay, q.Flags)
	assert.Equal(t, sentinel.Of[uint32](50), q.Priority)
	assert.Equal(t, uint32(60), q.Limits.MaxWallPerJob)
	assert.Equal(t, "1=4,1001=1", q.Limits.MaxTRESPerJob)
	assert.Equal(t, []string{"normal", "later"}, q.Preempt.List, "forward names are kept")
	assert.Equal(t, model.PreemptModeRequeue|model.PreemptModeGang, q.Preempt.Mode)

	// Act
	out, err := parser.DumpAs(c, TypeQOS, &q, nil)

	// Assert
	require.NoError(t, err)
	assertCty(t, cty.StringVal("batch"), at(t, out, "name"))
	assertCty(t, strs("DENY_LIMIT", "NO_DECAY"), at(t, out, "flags"))
	assertCty(t, strs("REQUEUE", "GANG"), at(t, out, "preempt", "mode"))
	assertCty(t, strs("normal", "later"), at(t, out, "preempt", "list"))
	assertCty(t, cty.NumberIntVal(50), at(t, out, "priority"))
	tres := at(t, out, "limits", "max", "tres", "per", "job")
	require.Equal(t, 2, tres.LengthInt())
	assertCty(t, cty.StringVal("gres"), tres.Index(cty.NumberIntVal(1)).GetAttr("type"))
	assertCty(t, cty.StringVal("gpu"), tres.Index(cty.NumberIntVal(1)).GetAttr("name"))
	assertCty(t, cty.NumberIntVal(1), tres.Index(cty.NumberIntVal(1)).GetAttr("count"))
}

func TestQOS_MissingName(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t)

	// Act
	var q model.QOS
	err := parser.ParseAs(c, TypeQOS, obj(map[string]cty.Value{"description": cty.StringVal("x")}), &q, nil)

	// Assert
	require.Error(t, err)
	assert.Equal(t, diag.CodeMissingRequired, diag.CodeOf(err))
	assert.ErrorIs(t, err, diag.ErrConversion)
	require.Len(t, c.Diagnostics(), 1)
	assert.Equal(t, "name", diag.FormatPath(c.Diagnostics()[0].Path))
}

func TestQOS_DeprecatedFactor(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		version parser.Version
		want    []diag.Code
	}{
		{name: "no version", version: 0, want: []diag.Code{}},
		{name: "before deprecation", version: 40, want: []diag.Code{}},
		{name: "deprecated", version: 41, want: []diag.Code{diag.CodeDeprecatedField}},
		{name: "later version", version: 42, want: []diag.Code{diag.CodeDeprecatedField}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newContext(t, parser.WithVersion(tc.version))
			in := obj(map[string]cty.Value{
				"name":   cty.StringVal("old"),
				"limits": obj(map[string]cty.Value{"factor": cty.NumberIntVal(-3)}),
			})

			var q model.QOS
			require.NoError(t, parser.ParseAs(c, TypeQOS, in, &q, nil))

			assert.Equal(t, int32(-3), q.Limits.Factor)
			assert.Equal(t, tc.want, c.Diagnostics().Codes())
		})
	}
}

func TestTRES_NegativeCountIsUnspecified(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t)

	// Act
	var tres model.TRES
	err := parser.ParseAs(c, TypeTRES, obj(map[string]cty.Value{
		"type":  cty.StringVal("cpu"),
		"count": cty.NumberIntVal(-1),
	}), &tres, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, sentinel.NoVal64, tres.Count)
}

func TestJobDesc_HoldAndPriority(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name  string
		extra map[string]cty.Value
		want  uint32
	}{
		{name: "neither", extra: nil, want: sentinel.NoVal},
		{name: "priority", extra: map[string]cty.Value{"priority": cty.NumberIntVal(100)}, want: 100},
		{name: "hold", extra: map[string]cty.Value{"hold": cty.True}, want: 0},
		{name: "release on fresh record", extra: map[string]cty.Value{"hold": cty.False}, want: sentinel.NoVal},
		{name: "priority and hold", extra: map[string]cty.Value{"priority": cty.NumberIntVal(100), "hold": cty.True}, want: 0},
		{name: "priority and release", extra: map[string]cty.Value{"priority": cty.NumberIntVal(100), "hold": cty.False}, want: 100},
		{name: "unlimited priority", extra: map[string]cty.Value{"priority": cty.StringVal("Infinity")}, want: sentinel.Infinite},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// Arrange
			c := newContext(t)
			in := minimalJob()
			for k, v := range tc.extra {
				in[k] = v
			}

			// Act
			job := model.NewJobDesc()
			err := parser.ParseAs(c, TypeJobDesc, obj(in), &job, nil)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tc.want, job.Priority)
		})
	}
}

func TestJobDesc_DumpHold(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t)
	held := model.JobDesc{Priority: 0}
	free := model.JobDesc{Priority: sentinel.NoVal}

	// Act
	heldOut, err := parser.DumpAs(c, TypeJobDesc, &held, nil)
	require.NoError(t, err)
	freeOut, err := parser.DumpAs(c, TypeJobDesc, &free, nil)
	require.NoError(t, err)

	// Assert
	assertCty(t, cty.True, at(t, heldOut, "hold"))
	assertCty(t, cty.NumberIntVal(0), at(t, heldOut, "priority"))
	assertCty(t, cty.False, at(t, freeOut, "hold"))
	assert.True(t, at(t, freeOut, "priority").IsNull())
}

func TestJobDesc_Nodes(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		in       cty.Value
		min, max uint32
		dump     cty.Value
		code     diag.Code
	}{
		{name: "range", in: cty.StringVal("2-4"), min: 2, max: 4, dump: cty.StringVal("2-4")},
		{name: "count", in: cty.NumberIntVal(3), min: 3, max: 3, dump: cty.StringVal("3")},
		{name: "count string", in: cty.StringVal(" 5 "), min: 5, max: 5, dump: cty.StringVal("5")},
		{name: "null", in: cty.NullVal(cty.String), dump: cty.NullVal(cty.String)},
		{name: "reversed range", in: cty.StringVal("4-2"), code: diag.CodeOutOfRange},
		{name: "garbage", in: cty.StringVal("many"), code: diag.CodeInvalidType},
		{name: "wrong type", in: strs("1"), code: diag.CodeInvalidType},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// Arrange
			c := newContext(t)

			// Act
			var job model.JobDesc
			err := parser.ParseAs(c, TypeJobDesc, obj(with(minimalJob(), "nodes", tc.in)), &job, nil)

			// Assert
			if tc.code != "" {
				require.Error(t, err)
				assert.Equal(t, tc.code, diag.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.min, job.MinNodes)
			assert.Equal(t, tc.max, job.MaxNodes)

			out, err := parser.DumpAs(c, TypeJobDesc, &job, nil)
			require.NoError(t, err)
			assertCty(t, tc.dump, at(t, out, "nodes"))
		})
	}
}

func TestJobDesc_Parse(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t, parser.WithVersion(41))
	in := minimalJob()
	in["name"] = cty.StringVal("sim")
	in["qos"] = cty.StringVal("HIGH")
	in["script"] = cty.StringVal("#!/bin/sh\nsrun hostname\n")
	in["flags"] = cty.StringVal("SPREAD_JOB,NO_REQUEUE")
	in["shared"] = strs("user")
	in["deadline"] = cty.StringVal("2024-01-02T03:04:05Z")
	in["tres_per_job"] = cty.StringVal("gres/gpu=2")
	in["cpu_binding"] = cty.StringVal("cores")
	in["association"] = obj(map[string]cty.Value{
		"cluster": cty.StringVal("c1"),
		"account": cty.StringVal("physics"),
		"user":    cty.StringVal("alice"),
	})
	in["colour"] = cty.StringVal("blue")

	// Act
	var job model.JobDesc
	err := parser.ParseAs(c, TypeJobDesc, obj(in), &job, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sim", job.Name)
	assert.Equal(t, "high", job.QOS, "names are canonicalized through the catalog")
	assert.Equal(t, "/home/alice", job.CurrentWorkingDirectory)
	assert.Equal(t, []string{"PATH=/bin"}, job.Environment)
	assert.Equal(t, model.JobFlagSpreadJob|model.JobFlagNoRequeue, job.Flags)
	assert.Equal(t, model.JobSharedUser, job.Shared)
	assert.Equal(t, int64(1704164645), job.Deadline)
	assert.Equal(t, "1001=2", job.TRESPerJob)
	assert.Equal(t, "cores", job.CPUBinding)
	require.NotNil(t, job.Association)
	assert.Equal(t, model.AssocShort{Cluster: "c1", Account: "physics", User: "alice"}, *job.Association)
	assert.Equal(t, []diag.Code{diag.CodeDeprecatedField, diag.CodeUnknownField}, c.Diagnostics().Codes())
	assert.Equal(t, "colour", diag.FormatPath(c.Diagnostics()[1].Path))
}

func TestJobDesc_ParseErrors(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		in   map[string]cty.Value
		code diag.Code
		path string
	}{
		{
			name: "missing working directory",
			in:   map[string]cty.Value{"environment": strs()},
			code: diag.CodeMissingRequired,
			path: "current_working_directory",
		},
		{
			name: "unknown qos",
			in:   with(minimalJob(), "qos", cty.StringVal("missing")),
			code: diag.CodeNotFound,
			path: "qos",
		},
		{
			name: "removed field",
			in:   with(minimalJob(), "power", obj(map[string]cty.Value{"flags": strs()})),
			code: diag.CodeRemovedField,
			path: "power.flags",
		},
		{
			name: "unknown flag",
			in:   with(minimalJob(), "flags", strs("FAST")),
			code: diag.CodeUnknownFlag,
			path: "flags",
		},
		{
			name: "two sharing modes",
			in:   with(minimalJob(), "shared", strs("user", "mcs")),
			code: diag.CodeConflictingFlags,
			path: "shared",
		},
		{
			name: "unknown tres",
			in:   with(minimalJob(), "tres_per_job", cty.StringVal("licenses=1")),
			code: diag.CodeNotFound,
			path: "tres_per_job[0]",
		},
		{
			name: "bad environment element",
			in: with(minimalJob(), "environment", cty.TupleVal([]cty.Value{
				cty.StringVal("A=1"),
				cty.EmptyObjectVal,
			})),
			code: diag.CodeInvalidType,
			path: "environment[1]",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// Arrange
			c := newContext(t)

			// Act
			var job model.JobDesc
			err := parser.ParseAs(c, TypeJobDesc, obj(tc.in), &job, nil)

			// Assert
			require.Error(t, err)
			assert.Equal(t, tc.code, diag.CodeOf(err))
			require.True(t, c.Diagnostics().HasErrors())
			last := c.Diagnostics()[len(c.Diagnostics())-1]
			assert.Equal(t, tc.path, diag.FormatPath(last.Path))
		})
	}
}

func TestJobDesc_DumpOmitsScript(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t)
	job := model.JobDesc{Script: "#!/bin/sh\n", SubmitUID: 1000}

	// Act
	out, err := parser.DumpAs(c, TypeJobDesc, &job, nil)

	// Assert
	require.NoError(t, err)
	assert.False(t, out.Type().HasAttribute("script"))
	assertCty(t, cty.EmptyTupleVal, at(t, out, "power", "flags"))
	assert.Equal(t, []diag.Code{diag.CodeDisabled}, c.Diagnostics().Codes())
}

func TestJobInfo_Dump(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t)
	job := model.JobInfo{
		JobID:     42,
		Name:      "sim",
		State:     model.JobRunning | model.JobCompleting,
		Priority:  sentinel.Unset[uint32](),
		TimeLimit: sentinel.Infinite,
		StartTime: 100,
		EndTime:   160,
		AssocID:   testutil.AssocAlice,
		Billing:   1.5,
		Features:  []string{"a", "b", "", "c"},
		Steps:     []*model.StepInfo{{ID: "42.0", Name: "step", State: model.JobComplete}, nil, {ID: "42.1"}},
	}

	// Act
	out, err := parser.DumpAs(c, TypeJobInfo, &job, nil)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, c.Diagnostics())
	assertCty(t, cty.NumberIntVal(42), at(t, out, "job_id"))
	assertCty(t, strs("RUNNING", "COMPLETING"), at(t, out, "job_state"))
	assert.True(t, at(t, out, "priority").IsNull())
	assertCty(t, cty.StringVal(sentinel.InfinityString), at(t, out, "time_limit"))
	assertCty(t, cty.NumberIntVal(60), at(t, out, "time", "elapsed"))
	assertCty(t, strs("a", "b"), at(t, out, "features"))
	assert.True(t, at(t, out, "association").IsNull())
	assertCty(t, cty.StringVal("alice"), at(t, out, "association_id", "user"))
	assertCty(t, cty.NumberIntVal(int64(testutil.AssocAlice)), at(t, out, "association_id", "id"))
	steps := at(t, out, "steps")
	require.Equal(t, 1, steps.LengthInt())
	assertCty(t, strs("COMPLETED"), steps.Index(cty.NumberIntVal(0)).GetAttr("state"))
}

func TestJobInfo_UnknownAssociationWarns(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t)
	job := model.JobInfo{AssocID: 999}

	// Act
	out, err := parser.DumpAs(c, TypeJobInfo, &job, nil)

	// Assert
	require.NoError(t, err)
	assertCty(t, cty.NumberIntVal(999), at(t, out, "association_id", "id"))
	assert.Equal(t, []diag.Code{diag.CodeUnresolvedReference}, c.Diagnostics().Codes())
	assert.Equal(t, "association_id", diag.FormatPath(c.Diagnostics()[0].Path))
}

func TestJobInfo_ParseReadOnly(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t)
	in := obj(map[string]cty.Value{
		"job_id": cty.NumberIntVal(7),
		"time":   obj(map[string]cty.Value{"elapsed": cty.NumberIntVal(5)}),
		"steps": cty.TupleVal([]cty.Value{
			obj(map[string]cty.Value{"id": cty.StringVal("7.0")}),
			obj(map[string]cty.Value{"id": cty.StringVal("7.1")}),
		}),
	})

	// Act
	var job model.JobInfo
	err := parser.ParseAs(c, TypeJobInfo, in, &job, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint32(7), job.JobID)
	require.Len(t, job.Steps, 2)
	assert.Equal(t, "7.1", job.Steps[1].ID)
	assert.Equal(t, []diag.Code{diag.CodeDisabled}, c.Diagnostics().Codes())
	assert.Equal(t, "time.elapsed", diag.FormatPath(c.Diagnostics()[0].Path))
}

func TestPartition_ParseAndDump(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t)
	in := obj(map[string]cty.Value{
		"name":      cty.StringVal("debug"),
		"partition": obj(map[string]cty.Value{"state": strs("UP")}),
		"flags":     strs("DEFAULT", "HIDDEN"),
		"maximums":  obj(map[string]cty.Value{"time": cty.StringVal("Infinity"), "nodes": cty.NumberIntVal(4)}),
		"qos": obj(map[string]cty.Value{
			"allowed":  cty.StringVal("normal, high,,"),
			"assigned": cty.StringVal("high"),
		}),
	})

	// Act
	var p model.PartitionInfo
	err := parser.ParseAs(c, TypePartition, in, &p, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, model.PartitionUp, p.State)
	assert.Equal(t, model.PartitionFlagDefault|model.PartitionFlagHidden, p.Flags)
	assert.Equal(t, sentinel.Infinite, p.MaxTime)
	assert.Equal(t, uint32(4), p.MaxNodes)
	assert.Equal(t, "normal,high", p.AllowQOS)
	assert.Equal(t, "high", p.QOS)

	// Act
	out, err := parser.DumpAs(c, TypePartition, &p, nil)

	// Assert
	require.NoError(t, err)
	assertCty(t, strs("UP"), at(t, out, "partition", "state"))
	assertCty(t, cty.StringVal(sentinel.InfinityString), at(t, out, "maximums", "time"))
	assertCty(t, strs("normal", "high"), at(t, out, "qos", "allowed"))
}

func TestPartition_VerboseSentinels(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t, parser.WithMode(sentinel.Verbose))
	p := model.PartitionInfo{Name: "p", MaxTime: sentinel.Infinite, DefaultTime: sentinel.NoVal, MaxNodes: 8}

	// Act
	out, err := parser.DumpAs(c, TypePartition, &p, nil)

	// Assert
	require.NoError(t, err)
	assertCty(t, cty.True, at(t, out, "maximums", "time", sentinel.KeyUnbounded))
	assertCty(t, cty.False, at(t, out, "defaults", "time", sentinel.KeyPresent))
	assertCty(t, cty.NumberIntVal(8), at(t, out, "maximums", "nodes", sentinel.KeyValue))
}

func TestAssoc_ParseAndDump(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t, parser.WithVersion(40))
	in := obj(map[string]cty.Value{
		"user":    cty.StringVal("bob"),
		"account": cty.StringVal("physics"),
		"comment": cty.StringVal("legacy"),
		"default": obj(map[string]cty.Value{"qos": cty.StringVal("high")}),
		"qos":     strs("normal", "debug"),
		"max":     obj(map[string]cty.Value{"jobs": obj(map[string]cty.Value{"total": cty.NumberIntVal(5)})}),
	})

	// Act
	var a model.Assoc
	err := parser.ParseAs(c, TypeAssoc, in, &a, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, testutil.QOSHigh, a.DefaultQOS)
	assert.Equal(t, []string{"normal", "debug"}, a.QOS)
	assert.Equal(t, sentinel.Of[uint32](5), a.MaxJobs)
	assert.Equal(t, []diag.Code{diag.CodeDeprecatedField}, c.Diagnostics().Codes())

	// Act
	a.Lineage = "/physics/0-bob/"
	out, err := parser.DumpAs(c, TypeAssoc, &a, nil)

	// Assert
	require.NoError(t, err)
	assertCty(t, cty.StringVal("high"), at(t, out, "default", "qos"))
	assertCty(t, cty.NumberIntVal(5), at(t, out, "max", "jobs", "total"))
	assert.False(t, out.Type().HasAttribute("lineage"))
}

func TestAssocList_ElementErrorsCarryIndex(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t)
	in := cty.TupleVal([]cty.Value{
		obj(map[string]cty.Value{"user": cty.StringVal("a")}),
		obj(map[string]cty.Value{"user": cty.StringVal("b"), "default": obj(map[string]cty.Value{"qos": cty.StringVal("nope")})}),
	})

	// Act
	var list []model.Assoc
	err := parser.ParseAs(c, TypeAssocList, in, &list, cty.GetAttrPath("associations"))

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, diag.ErrReference)
	assert.Equal(t, "associations[1].default.qos", diag.FormatPath(c.Diagnostics()[0].Path))
	assert.Contains(t, err.Error(), "parse QOS_ID")
}

func TestNew_StartsWithUnsetLimits(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	qp, ok := r.Lookup(TypeQOS)
	require.True(t, ok)
	q, ok := qp.New().(*model.QOS)
	require.True(t, ok)
	assert.Equal(t, sentinel.NoVal, q.Limits.MaxWallPerJob)
	assert.Equal(t, sentinel.NoValI32, q.Limits.Factor)
	assert.True(t, math.IsNaN(q.UsageFactor))

	// Act
	out, err := parser.DumpAs(newContext(t), TypeQOS, q, nil)

	// Assert
	require.NoError(t, err)
	assert.True(t, at(t, out, "limits", "max", "wall_clock", "per", "job").IsNull())
	assert.True(t, at(t, out, "usage_factor").IsNull())

	tp, ok := r.Lookup(TypeTRES)
	require.True(t, ok)
	assert.Equal(t, sentinel.NoVal64, tp.New().(*model.TRES).Count)
}

func TestNew_JobAndPartitionStartUnset(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	testCases := []struct {
		name  string
		id    parser.TypeID
		in    cty.Value
		nulls [][]string
		want  map[string]cty.Value
	}{
		{
			name:  "job submission without priority or limits",
			id:    TypeJobDesc,
			in:    obj(minimalJob()),
			nulls: [][]string{{"priority"}, {"time_limit"}, {"time_minimum"}},
			want:  map[string]cty.Value{"hold": cty.False},
		},
		{
			name:  "job report without limit or billing",
			id:    TypeJobInfo,
			in:    obj(map[string]cty.Value{"job_id": cty.NumberIntVal(7)}),
			nulls: [][]string{{"time_limit"}, {"billable_tres"}},
		},
		{
			name:  "partition without maximums",
			id:    TypePartition,
			in:    obj(map[string]cty.Value{"name": cty.StringVal("debug")}),
			nulls: [][]string{{"maximums", "time"}, {"maximums", "nodes"}, {"defaults", "time"}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// Arrange
			c := newContext(t)
			p, ok := r.Lookup(tc.id)
			require.True(t, ok)
			dst := p.New()

			// Act
			err := parser.Parse(c, p, tc.in, dst, nil)
			require.NoError(t, err)
			out, err := parser.Dump(c, p, dst, nil)

			// Assert
			require.NoError(t, err)
			for _, keys := range tc.nulls {
				assert.True(t, at(t, out, keys...).IsNull(), "%v", keys)
			}
			for k, v := range tc.want {
				assertCty(t, v, at(t, out, k))
			}
		})
	}
}

func TestQOSList_ElementsStartUnset(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t)
	in := cty.TupleVal([]cty.Value{
		obj(map[string]cty.Value{"name": cty.StringVal("bare")}),
		obj(map[string]cty.Value{
			"name":   cty.StringVal("capped"),
			"limits": obj(map[string]cty.Value{"grace_time": cty.NumberIntVal(30)}),
		}),
	})

	// Act
	var list []model.QOS
	err := parser.ParseAs(c, TypeQOSList, in, &list, nil)
	require.NoError(t, err)
	out, err := parser.DumpAs(c, TypeQOSList, &list, nil)

	// Assert
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, sentinel.NoVal, list[0].Limits.MaxJobsPerUser)
	assert.Equal(t, sentinel.NoVal, list[0].Limits.GraceTime)
	assert.True(t, math.IsNaN(list[0].UsageFactor))
	assert.Equal(t, uint32(30), list[1].Limits.GraceTime)
	assert.Equal(t, sentinel.NoVal, list[1].Limits.MaxJobsPerUser)

	first := out.Index(cty.NumberIntVal(0))
	assert.True(t, at(t, first, "limits", "grace_time").IsNull())
	assert.True(t, at(t, first, "usage_factor").IsNull())
}

func TestQOS_MisspeltLimitWarnsAtItsPath(t *testing.T) {
	t.Parallel()
	// Arrange
	c := newContext(t)
	in := obj(map[string]cty.Value{
		"name":   cty.StringVal("x"),
		"limits": obj(map[string]cty.Value{"grace_tim": cty.NumberIntVal(5)}),
	})

	// Act
	q := model.NewQOS()
	err := parser.ParseAs(c, TypeQOS, in, &q, nil)

	// Assert
	require.NoError(t, err)
	ds := c.Diagnostics()
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeUnknownField, ds[0].Code)
	assert.Equal(t, "limits.grace_tim", diag.FormatPath(ds[0].Path))
	assert.Contains(t, ds[0].Message, `"limits.grace_tim"`)
	assert.Equal(t, sentinel.NoVal, q.Limits.GraceTime)
}

func TestJobDesc_PowerFlagsWithdrawnAtV42(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		version parser.Version
		want    bool
	}{
		{name: "v0.0.40", version: 40, want: true},
		{name: "v0.0.41", version: 41, want: true},
		{name: "v0.0.42", version: 42, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// Arrange
			c := newContext(t, parser.WithVersion(tc.version))
			job := model.NewJobDesc()

			// Act
			out, err := parser.DumpAs(c, TypeJobDesc, &job, nil)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.Type().HasAttribute("power"))
		})
	}
}
