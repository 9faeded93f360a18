package orchestrator

import (
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
)

func (o *Orchestrator) exportOrchestratorIntrospection() error {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: orchestratorIface,
				Methods: []introspect.Method{
					{Name: "IsolateAll", Args: []introspect.Arg{
						{Name: "target", Type: "s", Direction: "in"},
						{Name: "job", Type: "o", Direction: "out"},
					}},
					{Name: "ListJobs", Args: []introspect.Arg{
						{Name: "jobs", Type: "ao", Direction: "out"},
					}},
					{Name: "ListNodes", Args: []introspect.Arg{
						{Name: "names", Type: "as", Direction: "out"},
					}},
				},
				Signals: []introspect.Signal{
					{Name: "JobNew", Args: []introspect.Arg{
						{Name: "id", Type: "u"},
						{Name: "job", Type: "o"},
					}},
					{Name: "JobRemoved", Args: []introspect.Arg{
						{Name: "id", Type: "u"},
						{Name: "job", Type: "o"},
						{Name: "result", Type: "s"},
					}},
				},
			},
		},
	}
	return o.bus.Export(introspect.NewIntrospectable(node), orchestratorPath, "org.freedesktop.DBus.Introspectable")
}

func (o *Orchestrator) exportJobIntrospection(path dbus.ObjectPath, props *prop.Properties) {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       jobIface,
				Properties: props.Introspection(jobIface),
			},
		},
	}
	if err := o.bus.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable"); err != nil {
		o.log.Warn().Err(err).Msg("exporting job introspection")
	}
}
