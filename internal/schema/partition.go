package schema

import (
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/vk/slurmcodec/internal/resolve"
)

func partitionParsers() []*parser.Parser {
	return []*parser.Parser{
		parser.NewArray[model.PartitionInfo](TypePartition, []*parser.Field{
			parser.Linked("name", parser.TypeString, func(p *model.PartitionInfo) *string { return &p.Name }, parser.Required()),
			parser.Linked("nodes/configured", parser.TypeString, func(p *model.PartitionInfo) *string { return &p.Nodes }),
			parser.Linked("nodes/total", parser.TypeUint32, func(p *model.PartitionInfo) *uint32 { return &p.TotalNodes }),
			parser.Linked("cpus/total", parser.TypeUint32, func(p *model.PartitionInfo) *uint32 { return &p.TotalCPUs }),
			parser.Linked("partition/state", TypePartitionState, func(p *model.PartitionInfo) *uint16 { return &p.State }),
			parser.Linked("flags", TypePartitionFlags, func(p *model.PartitionInfo) *uint16 { return &p.Flags }),
			parser.Linked("priority/tier", parser.TypeUint16NoVal, func(p *model.PartitionInfo) *uint16 { return &p.PriorityTier }),
			parser.Linked("maximums/time", parser.TypeUint32NoVal, func(p *model.PartitionInfo) *uint32 { return &p.MaxTime }),
			parser.Linked("maximums/nodes", parser.TypeUint32NoVal, func(p *model.PartitionInfo) *uint32 { return &p.MaxNodes }),
			parser.Linked("maximums/over_time_limit", parser.TypeUint16NoVal, func(p *model.PartitionInfo) *uint16 { return &p.OverTimeLimit }),
			parser.Linked("defaults/time", parser.TypeUint32NoVal, func(p *model.PartitionInfo) *uint32 { return &p.DefaultTime }),
			parser.Linked("defaults/memory_per_cpu", parser.TypeUint64NoVal, func(p *model.PartitionInfo) *uint64 { return &p.MemPerCPU }),
			parser.Linked("suspend_time", parser.TypeInt64NoVal, func(p *model.PartitionInfo) *int64 { return &p.SuspendTime }),
			parser.Linked("qos/assigned", resolve.TypeQOSName, func(p *model.PartitionInfo) *string { return &p.QOS }),
			parser.Linked("qos/allowed", parser.TypeCSVString, func(p *model.PartitionInfo) *string { return &p.AllowQOS }),
			parser.Linked("tres/configured", resolve.TypeTRESStr, func(p *model.PartitionInfo) *string { return &p.TRES }),
			parser.Linked("tres/billing_weights", parser.TypeString, func(p *model.PartitionInfo) *string { return &p.BillingWeights }),
		}, parser.Describe("Partition"), parser.Initial(model.NewPartitionInfo)),
		parser.NewList[model.PartitionInfo](TypePartitionList, TypePartition),
	}
}
