package modules

import (
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/application"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/configuration"
)

// BuiltInModules lists the modules the server always mounts.
func BuiltInModules(conf *configuration.Configuration) []application.Module {
	return []application.Module{
		recruitment.NewModule(&recruitment.ModuleOptions{Config: conf}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	return application.LoadModules(app, externalModules...)
}
