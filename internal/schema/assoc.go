package schema

import (
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/vk/slurmcodec/internal/resolve"
	"github.com/vk/slurmcodec/internal/sentinel"
)

func assocParsers() []*parser.Parser {
	return []*parser.Parser{
		parser.NewArray[model.Assoc](TypeAssoc, []*parser.Field{
			parser.Linked("id", parser.TypeUint32, func(a *model.Assoc) *uint32 { return &a.ID }),
			parser.Linked("cluster", parser.TypeString, func(a *model.Assoc) *string { return &a.Cluster }),
			parser.Linked("account", parser.TypeString, func(a *model.Assoc) *string { return &a.Account }),
			parser.Linked("user", parser.TypeString, func(a *model.Assoc) *string { return &a.User }, parser.Required()),
			parser.Linked("partition", parser.TypeString, func(a *model.Assoc) *string { return &a.Partition }),
			parser.Linked("parent_account", parser.TypeString, func(a *model.Assoc) *string { return &a.ParentAccount }),
			parser.Linked("comment", parser.TypeString, func(a *model.Assoc) *string { return &a.Comment }, parser.Deprecated(40)),
			parser.Linked("is_default", parser.TypeBool16, func(a *model.Assoc) *uint16 { return &a.IsDefault }),
			parser.Linked("default/qos", resolve.TypeQOSID, func(a *model.Assoc) *uint32 { return &a.DefaultQOS }),
			parser.Linked("qos", resolve.TypeQOSNameList, func(a *model.Assoc) *[]string { return &a.QOS }),
			parser.Linked("flags", TypeAssocFlags, func(a *model.Assoc) *uint16 { return &a.Flags }),
			parser.Linked("shares_raw", parser.TypeUint32NoVal, func(a *model.Assoc) *uint32 { return &a.SharesRaw }),
			parser.Linked("max/jobs/total", parser.TypeUint32NoValStruct, func(a *model.Assoc) *sentinel.Value[uint32] { return &a.MaxJobs }),
			parser.Skip(func(a *model.Assoc) *string { return &a.Lineage }),
		}, parser.Describe("Association"), parser.Initial(model.NewAssoc)),
		parser.NewList[model.Assoc](TypeAssocList, TypeAssoc),
	}
}
