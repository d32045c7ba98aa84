// Package schema declares the descriptor tables of the cluster API: records,
// lists of records, flag arrays and the composite leaves that touch several
// members of one record.
package schema

import (
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/vk/slurmcodec/internal/registry"
	"github.com/vk/slurmcodec/internal/resolve"
)

// Record type ids.
const (
	TypeTRES          parser.TypeID = "TRES"
	TypeTRESList      parser.TypeID = "TRES_LIST"
	TypeQOS           parser.TypeID = "QOS"
	TypeQOSList       parser.TypeID = "QOS_LIST"
	TypeAssoc         parser.TypeID = "ASSOC"
	TypeAssocList     parser.TypeID = "ASSOC_LIST"
	TypeJobDesc       parser.TypeID = "JOB_DESC_MSG"
	TypeJobDescList   parser.TypeID = "JOB_DESC_MSG_LIST"
	TypeJobInfo       parser.TypeID = "JOB_INFO"
	TypeJobInfoList   parser.TypeID = "JOB_INFO_LIST"
	TypeStepInfo      parser.TypeID = "STEP_INFO"
	TypeStepInfoArray parser.TypeID = "STEP_INFO_PTR_ARRAY"
	TypePartition     parser.TypeID = "PARTITION_INFO"
	TypePartitionList parser.TypeID = "PARTITION_INFO_LIST"
	TypeStringArray   parser.TypeID = "STRING_ARRAY"
)

// Module registers every descriptor of the API.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	r.Register(Parsers()...)
}

// NewRegistry returns a registry with every descriptor of the API. It is not
// validated.
func NewRegistry() *registry.Registry {
	return registry.New(Module{})
}

// Parsers returns fresh descriptors for the whole API, scalars and
// references included.
func Parsers() []*parser.Parser {
	var out []*parser.Parser
	out = append(out, parser.Builtins()...)
	out = append(out, resolve.Parsers()...)
	out = append(out, flagParsers()...)
	out = append(out, tresParsers()...)
	out = append(out, qosParsers()...)
	out = append(out, assocParsers()...)
	out = append(out, jobParsers()...)
	out = append(out, partitionParsers()...)
	return out
}
