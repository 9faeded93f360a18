package status

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleetkit/orchestrator/internal/job"
	"github.com/fleetkit/orchestrator/internal/reactor"
	"github.com/fleetkit/orchestrator/internal/registry"
)

// Server serves the read-only status endpoints. It holds no lock of its
// own: every read crosses onto the reactor goroutine to take a
// consistent snapshot.
type Server struct {
	reactor  *reactor.Reactor
	registry *registry.Registry
	jobs     *job.Queue
}

// New builds a Server. Call Handler to obtain the http.Handler to serve.
func New(r *reactor.Reactor, reg *registry.Registry, jobs *job.Queue) *Server {
	return &Server{reactor: r, registry: reg, jobs: jobs}
}

// Handler returns the chi router exposing /healthz, /jobs and /nodes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Get("/jobs", s.handleJobs)
	r.Get("/nodes", s.handleNodes)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type jobView struct {
	ID     uint32 `json:"id"`
	Type   string `json:"type"`
	State  string `json:"state"`
	Path   string `json:"path"`
	Result string `json:"result,omitempty"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	type result struct {
		jobs []*job.Job
	}
	done := make(chan result, 1)
	s.reactor.Post(func() { done <- result{jobs: s.jobs.Snapshot()} })
	snapshot := (<-done).jobs

	views := make([]jobView, len(snapshot))
	for i, j := range snapshot {
		v := jobView{ID: j.ID, Type: string(j.Type), State: string(j.State()), Path: string(j.ObjectPath)}
		if j.State() == job.StateFinished {
			v.Result = string(j.Result())
		}
		views[i] = v
	}

	writeJSON(w, struct {
		Jobs []jobView `json:"jobs"`
	}{Jobs: views})
}

type nodeView struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	done := make(chan []*registry.Node, 1)
	s.reactor.Post(func() { done <- s.registry.Snapshot() })
	snapshot := <-done

	views := make([]nodeView, 0, len(snapshot))
	for _, n := range snapshot {
		if n.Name == "" {
			// Pending nodes that haven't completed Register yet aren't
			// part of the fleet as far as an operator cares.
			continue
		}
		views = append(views, nodeView{Name: n.Name, Path: string(n.ObjectPath)})
	}

	writeJSON(w, struct {
		Nodes []nodeView `json:"nodes"`
	}{Nodes: views})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
