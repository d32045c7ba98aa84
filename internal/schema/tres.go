package schema

import (
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/parser"
)

func tresParsers() []*parser.Parser {
	return []*parser.Parser{
		parser.NewArray[model.TRES](TypeTRES, []*parser.Field{
			parser.Linked("type", parser.TypeString, func(t *model.TRES) *string { return &t.Type }, parser.Required()),
			parser.Linked("name", parser.TypeString, func(t *model.TRES) *string { return &t.Name }),
			parser.Linked("id", parser.TypeUint32, func(t *model.TRES) *uint32 { return &t.ID }),
			parser.Linked("count", parser.TypeUint64NoVal, func(t *model.TRES) *uint64 { return &t.Count }),
		}, parser.Describe("Trackable resource"), parser.Initial(model.NewTRES)),
		parser.NewList[model.TRES](TypeTRESList, TypeTRES),
	}
}
