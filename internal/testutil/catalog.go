package testutil

import (
	"github.com/vk/slurmcodec/internal/catalog"
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/sentinel"
)

// Fixture ids.
const (
	QOSNormal  uint32 = 1
	QOSHigh    uint32 = 2
	QOSDebug   uint32 = 7
	TRESGPU    uint32 = 1001
	AssocAlice uint32 = 10
	AssocLab   uint32 = 11
)

// Catalogs returns a small, fresh catalog set: three QOS, the usual TRES
// plus gres/gpu, and two associations of account "physics".
func Catalogs() *catalog.Set {
	return &catalog.Set{
		QOS: []model.QOS{
			{ID: QOSNormal, Name: "normal", Priority: sentinel.Of[uint32](10)},
			{ID: QOSHigh, Name: "high", Priority: sentinel.Of[uint32](100), Preempt: model.QOSPreempt{List: []string{"normal"}}},
			{ID: QOSDebug, Name: "debug", Priority: sentinel.Unset[uint32]()},
		},
		TRES: []model.TRES{
			{ID: model.TRESCPU, Type: "cpu"},
			{ID: model.TRESMem, Type: "mem"},
			{ID: model.TRESEnergy, Type: "energy"},
			{ID: model.TRESNode, Type: "node"},
			{ID: model.TRESBilling, Type: "billing"},
			{ID: TRESGPU, Type: "gres", Name: "gpu"},
		},
		Assocs: []model.Assoc{
			{ID: AssocAlice, Cluster: "c1", Account: "physics", User: "alice", DefaultQOS: QOSNormal},
			{ID: AssocLab, Cluster: "c1", Account: "physics"},
		},
	}
}
