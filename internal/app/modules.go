package app

import (
	"github.com/vk/slurmcodec/internal/registry"
	"github.com/vk/slurmcodec/internal/schema"
)

// coreModules is the definitive list of descriptor modules compiled into the
// slurmcodec binary.
var coreModules = []registry.Module{
	schema.Module{},
}
