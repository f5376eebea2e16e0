package modules

import (
	"github.com/dealdesk/dealdesk/modules/crm"
	"github.com/dealdesk/dealdesk/pkg/application"
)

var BuiltInModules = []application.Module{
	crm.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
