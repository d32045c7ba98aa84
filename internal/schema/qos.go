package schema

import (
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/vk/slurmcodec/internal/resolve"
	"github.com/vk/slurmcodec/internal/sentinel"
)

func qosParsers() []*parser.Parser {
	return []*parser.Parser{
		parser.NewArray[model.QOS](TypeQOS, []*parser.Field{
			parser.Linked("id", parser.TypeUint32, func(q *model.QOS) *uint32 { return &q.ID }),
			parser.Linked("name", parser.TypeString, func(q *model.QOS) *string { return &q.Name }, parser.Required()),
			parser.Linked("description", parser.TypeString, func(q *model.QOS) *string { return &q.Description }),
			parser.Linked("flags", TypeQOSFlags, func(q *model.QOS) *uint32 { return &q.Flags }),
			parser.Linked("priority", parser.TypeUint32NoValStruct, func(q *model.QOS) *sentinel.Value[uint32] { return &q.Priority }),
			parser.Linked("usage_factor", parser.TypeFloat64NoVal, func(q *model.QOS) *float64 { return &q.UsageFactor }),
			parser.Linked("usage_threshold", parser.TypeFloat64NoVal, func(q *model.QOS) *float64 { return &q.UsageThreshold }),
			parser.Linked("limits/grace_time", parser.TypeUint32NoVal, func(q *model.QOS) *uint32 { return &q.Limits.GraceTime }),
			parser.Linked("limits/max/wall_clock/per/job", parser.TypeUint32NoVal, func(q *model.QOS) *uint32 { return &q.Limits.MaxWallPerJob }),
			parser.Linked("limits/max/jobs/per/user", parser.TypeUint32NoVal, func(q *model.QOS) *uint32 { return &q.Limits.MaxJobsPerUser }),
			parser.Linked("limits/max/tres/per/job", resolve.TypeTRESStr, func(q *model.QOS) *string { return &q.Limits.MaxTRESPerJob }),
			parser.Linked("limits/min/priority_threshold", parser.TypeUint32NoVal, func(q *model.QOS) *uint32 { return &q.Limits.MinPriority }),
			parser.Linked("limits/factor", parser.TypeInt32NoVal, func(q *model.QOS) *int32 { return &q.Limits.Factor },
				parser.Deprecated(41), parser.Doc("Replaced by usage_factor")),
			// Preemption may name a QOS declared later in the same catalog.
			parser.Linked("preempt/list", resolve.TypeQOSNameList, func(q *model.QOS) *[]string { return &q.Preempt.List }, parser.Forward()),
			parser.Linked("preempt/mode", TypePreemptMode, func(q *model.QOS) *uint16 { return &q.Preempt.Mode }),
			parser.Linked("preempt/exempt_time", parser.TypeUint32NoVal, func(q *model.QOS) *uint32 { return &q.Preempt.ExemptTime }),
		}, parser.Describe("Quality of service"), parser.Initial(model.NewQOS)),
		parser.NewList[model.QOS](TypeQOSList, TypeQOS),
	}
}
