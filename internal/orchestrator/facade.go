package orchestrator

import (
	"github.com/godbus/dbus/v5"

	"github.com/fleetkit/orchestrator/internal/job"
)

// facade is exported at orchestratorPath on the public bus, exposing
// the orchestrator interface to external clients.
type facade struct {
	orch *Orchestrator
}

func (o *Orchestrator) publishFacade() error {
	f := &facade{orch: o}
	if err := o.bus.Export(f, orchestratorPath, orchestratorIface); err != nil {
		return err
	}
	return o.exportOrchestratorIntrospection()
}

// IsolateAll queues an IsolateAll job targeting every currently
// registered node and replies with the new job's object path.
func (f *facade) IsolateAll(target string) (dbus.ObjectPath, *dbus.Error) {
	type outcome struct {
		path dbus.ObjectPath
	}
	done := make(chan outcome, 1)
	f.orch.reactor.Post(func() {
		behaviors, _ := job.NewIsolateAll(target, f.orch.registry.Snapshot, f.orch.callTimeout)
		j := f.orch.jobs.Enqueue(job.TypeIsolateAll, behaviors, jobObjectPath, target)
		done <- outcome{path: j.ObjectPath}
	})
	r := <-done
	return r.path, nil
}

// ListJobs returns the current queue snapshot (waiting and running) in
// FIFO order. Supplements the specified interface with a read-only
// query so callers don't have to reconstruct queue state from signals.
func (f *facade) ListJobs() ([]dbus.ObjectPath, *dbus.Error) {
	done := make(chan []dbus.ObjectPath, 1)
	f.orch.reactor.Post(func() {
		jobs := f.orch.jobs.Snapshot()
		paths := make([]dbus.ObjectPath, len(jobs))
		for i, j := range jobs {
			paths[i] = j.ObjectPath
		}
		done <- paths
	})
	return <-done, nil
}

// ListNodes returns the currently registered node names.
func (f *facade) ListNodes() ([]string, *dbus.Error) {
	done := make(chan []string, 1)
	f.orch.reactor.Post(func() {
		nodes := f.orch.registry.Snapshot()
		names := make([]string, len(nodes))
		for i, n := range nodes {
			names[i] = n.Name
		}
		done <- names
	})
	return <-done, nil
}
