package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/vk/slurmcodec/internal/resolve"
	"github.com/vk/slurmcodec/internal/sentinel"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Composite and one-directional leaves of the job records.
const (
	TypeJobHold    parser.TypeID = "JOB_HOLD"
	TypeJobNodes   parser.TypeID = "JOB_DESC_MSG_NODES"
	TypeJobScript  parser.TypeID = "JOB_SCRIPT"
	TypeJobElapsed parser.TypeID = "JOB_INFO_ELAPSED"
)

// removedPowerFlags is what clients up to v0.0.41 still see for the dropped
// power/flags key.
var removedPowerFlags = cty.EmptyTupleVal

func jobParsers() []*parser.Parser {
	return []*parser.Parser{
		parser.NewSimple[uint32](TypeJobHold, parseJobHold, dumpJobHold,
			parser.Describe("Hold the job, stored as priority zero"), parser.Renders(parser.SchemaBoolean)),
		parser.NewComplex[model.JobDesc](TypeJobNodes, parseJobNodes, dumpJobNodes,
			parser.Describe("Node count or min-max node count range"), parser.Renders(parser.SchemaString)),
		parser.NewSimple[string](TypeJobScript, parseJobScript, nil, parser.WriteOnly(),
			parser.Describe("Batch script, never reported back"), parser.Renders(parser.SchemaString)),
		parser.NewComplex[model.JobInfo](TypeJobElapsed, nil, dumpJobElapsed, parser.ReadOnly(),
			parser.Describe("Seconds between start and end"), parser.Renders(parser.SchemaInteger)),

		parser.NewArray[model.JobDesc](TypeJobDesc, []*parser.Field{
			parser.Linked("name", parser.TypeString, func(j *model.JobDesc) *string { return &j.Name }),
			parser.Linked("account", parser.TypeString, func(j *model.JobDesc) *string { return &j.Account }),
			parser.Linked("partition", parser.TypeString, func(j *model.JobDesc) *string { return &j.Partition }),
			parser.Linked("qos", resolve.TypeQOSName, func(j *model.JobDesc) *string { return &j.QOS }),
			parser.Linked("current_working_directory", parser.TypeString, func(j *model.JobDesc) *string { return &j.CurrentWorkingDirectory }, parser.Required()),
			parser.Linked("script", TypeJobScript, func(j *model.JobDesc) *string { return &j.Script }),
			parser.Linked("environment", parser.TypeStringList, func(j *model.JobDesc) *[]string { return &j.Environment }, parser.Required()),
			parser.Linked("priority", parser.TypeUint32NoVal, func(j *model.JobDesc) *uint32 { return &j.Priority }, parser.Overloads(2)),
			parser.Linked("hold", TypeJobHold, func(j *model.JobDesc) *uint32 { return &j.Priority }, parser.Overloads(2)),
			parser.Linked("time_limit", parser.TypeUint32NoVal, func(j *model.JobDesc) *uint32 { return &j.TimeLimit }),
			parser.Linked("time_minimum", parser.TypeUint32NoVal, func(j *model.JobDesc) *uint32 { return &j.TimeMinimum }),
			parser.Whole[model.JobDesc]("nodes", TypeJobNodes),
			parser.Linked("flags", TypeJobFlags, func(j *model.JobDesc) *uint64 { return &j.Flags }),
			parser.Linked("shared", TypeJobShared, func(j *model.JobDesc) *uint16 { return &j.Shared }),
			parser.Linked("deadline", parser.TypeTimestamp, func(j *model.JobDesc) *int64 { return &j.Deadline }),
			parser.Linked("tres_per_job", resolve.TypeTRESStr, func(j *model.JobDesc) *string { return &j.TRESPerJob }),
			parser.Linked("cpu_binding", parser.TypeString, func(j *model.JobDesc) *string { return &j.CPUBinding }, parser.Deprecated(40)),
			parser.Linked("association", resolve.TypeAssocPtr, func(j *model.JobDesc) **model.AssocShort { return &j.Association }),
			parser.Removed("power/flags", removedPowerFlags, parser.Deprecated(42)),
			parser.Skip(func(j *model.JobDesc) *uint32 { return &j.SubmitUID }),
		}, parser.Describe("Job submission"), parser.Initial(model.NewJobDesc)),
		parser.NewList[model.JobDesc](TypeJobDescList, TypeJobDesc),

		parser.NewArray[model.StepInfo](TypeStepInfo, []*parser.Field{
			parser.Linked("id", parser.TypeString, func(s *model.StepInfo) *string { return &s.ID }),
			parser.Linked("name", parser.TypeString, func(s *model.StepInfo) *string { return &s.Name }),
			parser.Linked("state", TypeJobState, func(s *model.StepInfo) *uint32 { return &s.State }),
		}, parser.Describe("Job step")),
		parser.NewNTPtrArray[model.StepInfo](TypeStepInfoArray, TypeStepInfo),
		parser.NewNTArray[string](TypeStringArray, parser.TypeString, func(s *string) bool { return *s == "" }),

		parser.NewArray[model.JobInfo](TypeJobInfo, []*parser.Field{
			parser.Linked("job_id", parser.TypeUint32, func(j *model.JobInfo) *uint32 { return &j.JobID }),
			parser.Linked("name", parser.TypeString, func(j *model.JobInfo) *string { return &j.Name }),
			parser.Linked("user_name", parser.TypeString, func(j *model.JobInfo) *string { return &j.UserName }),
			parser.Linked("account", parser.TypeString, func(j *model.JobInfo) *string { return &j.Account }),
			parser.Linked("partition", parser.TypeString, func(j *model.JobInfo) *string { return &j.Partition }),
			parser.Linked("qos", resolve.TypeQOSName, func(j *model.JobInfo) *string { return &j.QOS }),
			parser.Linked("job_state", TypeJobState, func(j *model.JobInfo) *uint32 { return &j.State }),
			parser.Linked("priority", parser.TypeUint32NoValStruct, func(j *model.JobInfo) *sentinel.Value[uint32] { return &j.Priority }),
			parser.Linked("time_limit", parser.TypeUint32NoVal, func(j *model.JobInfo) *uint32 { return &j.TimeLimit }),
			parser.Linked("submit_time", parser.TypeTimestamp, func(j *model.JobInfo) *int64 { return &j.SubmitTime }),
			parser.Linked("start_time", parser.TypeTimestamp, func(j *model.JobInfo) *int64 { return &j.StartTime }),
			parser.Linked("end_time", parser.TypeTimestamp, func(j *model.JobInfo) *int64 { return &j.EndTime }),
			parser.Whole[model.JobInfo]("time/elapsed", TypeJobElapsed),
			parser.Linked("nice", parser.TypeInt32, func(j *model.JobInfo) *int32 { return &j.Nice }),
			parser.Linked("association_id", resolve.TypeAssocID, func(j *model.JobInfo) *uint32 { return &j.AssocID }),
			parser.Linked("association", resolve.TypeAssocPtr, func(j *model.JobInfo) **model.AssocShort { return &j.Assoc }),
			parser.Linked("tres/allocated", resolve.TypeTRESStr, func(j *model.JobInfo) *string { return &j.TRESAlloc }),
			parser.Linked("billable_tres", parser.TypeFloat64NoVal, func(j *model.JobInfo) *float64 { return &j.Billing }),
			parser.Linked("features", TypeStringArray, func(j *model.JobInfo) *[]string { return &j.Features }),
			parser.Linked("steps", TypeStepInfoArray, func(j *model.JobInfo) *[]*model.StepInfo { return &j.Steps }),
			parser.Removed("power/flags", removedPowerFlags, parser.Deprecated(42)),
		}, parser.Describe("Job state as reported by the controller"), parser.Initial(model.NewJobInfo)),
		parser.NewList[model.JobInfo](TypeJobInfoList, TypeJobInfo),
	}
}

// parseJobHold sets priority zero for true. False releases a held job and
// leaves an explicit priority alone.
func parseJobHold(c *parser.Context, v cty.Value, dst *uint32, path cty.Path) error {
	if v.IsNull() {
		return nil
	}
	b, err := convert.Convert(v, cty.Bool)
	if err != nil || b.IsNull() {
		return diag.Errorf(diag.CodeInvalidType, path, "expected a boolean, got %s", v.Type().FriendlyName())
	}
	switch {
	case b.True():
		*dst = 0
	case *dst == 0:
		*dst = sentinel.NoVal
	}
	return nil
}

func dumpJobHold(c *parser.Context, src *uint32, path cty.Path) (cty.Value, error) {
	return cty.BoolVal(*src == 0), nil
}

// parseJobNodes accepts a count, "N" or "MIN-MAX".
func parseJobNodes(c *parser.Context, v cty.Value, job *model.JobDesc, path cty.Path) error {
	if v.IsNull() {
		return nil
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return diag.Errorf(diag.CodeInvalidType, path, "expected a node count or range, got %s", v.Type().FriendlyName())
	}
	lo, hi, isRange := strings.Cut(strings.TrimSpace(s.AsString()), "-")
	first, err := strconv.ParseUint(strings.TrimSpace(lo), 10, 32)
	if err != nil {
		return diag.Errorf(diag.CodeInvalidType, path, "invalid node count %q", s.AsString())
	}
	last := first
	if isRange {
		if last, err = strconv.ParseUint(strings.TrimSpace(hi), 10, 32); err != nil {
			return diag.Errorf(diag.CodeInvalidType, path, "invalid node count %q", s.AsString())
		}
		if last < first {
			return diag.Errorf(diag.CodeOutOfRange, path, "node range %q ends before it starts", s.AsString())
		}
	}
	job.MinNodes, job.MaxNodes = uint32(first), uint32(last)
	return nil
}

func dumpJobNodes(c *parser.Context, job *model.JobDesc, path cty.Path) (cty.Value, error) {
	switch {
	case job.MinNodes == 0 && job.MaxNodes == 0:
		return cty.NullVal(cty.String), nil
	case job.MaxNodes == 0 || job.MaxNodes == job.MinNodes:
		return cty.StringVal(strconv.FormatUint(uint64(job.MinNodes), 10)), nil
	}
	return cty.StringVal(fmt.Sprintf("%d-%d", job.MinNodes, job.MaxNodes)), nil
}

func parseJobScript(c *parser.Context, v cty.Value, dst *string, path cty.Path) error {
	if v.IsNull() {
		*dst = ""
		return nil
	}
	if !v.Type().Equals(cty.String) {
		return diag.Errorf(diag.CodeInvalidType, path, "script must be a string, got %s", v.Type().FriendlyName())
	}
	script := v.AsString()
	if script != "" && !strings.HasPrefix(script, "#!") {
		c.Warn(diag.CodeInvalidType, path, "script does not start with #!")
	}
	*dst = script
	return nil
}

func dumpJobElapsed(c *parser.Context, job *model.JobInfo, path cty.Path) (cty.Value, error) {
	if job.StartTime <= 0 || job.EndTime < job.StartTime {
		return cty.Zero, nil
	}
	return cty.NumberIntVal(job.EndTime - job.StartTime), nil
}
