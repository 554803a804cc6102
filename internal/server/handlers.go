package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/physics"
)

const (
	defaultLimit = 100
	maxLimit     = 10000
)

type StatusResponse struct {
	Step    int     `json:"step"`
	Time    float64 `json:"time"`
	Bodies  int     `json:"bodies"`
	Padding int     `json:"padding"`
	Backend string  `json:"backend"`
	Running bool    `json:"running"`
	Uptime  float64 `json:"uptime"`
	Error   string  `json:"error,omitempty"`
}

type BodyResponse struct {
	ID     int        `json:"id"`
	Mass   float64    `json:"mass"`
	Radius float64    `json:"radius"`
	Pos    [3]float64 `json:"pos"`
	Vel    [3]float64 `json:"vel"`
}

type BodiesResponse struct {
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Bodies []BodyResponse `json:"bodies"`
}

type AccelerationResponse struct {
	ID   int        `json:"id"`
	Step int        `json:"step"`
	Acc  [3]float64 `json:"acc"`
}

type ConservedResponse struct {
	Step            int        `json:"step"`
	Energy          float64    `json:"energy"`
	Momentum        [3]float64 `json:"momentum"`
	AngularMomentum [3]float64 `json:"angular_momentum"`
	CenterOfMass    [3]float64 `json:"center_of_mass"`
}

func vec(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func bodyResponse(id int, b bodies.Body) BodyResponse {
	return BodyResponse{ID: id, Mass: b.Mass, Radius: b.Radius, Pos: vec(b.Pos), Vel: vec(b.Vel)}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := StatusResponse{
		Step:    s.sim.StepCount(),
		Time:    s.sim.Time(),
		Bodies:  s.sim.Store().N(),
		Padding: s.sim.Store().Padding(),
		Backend: s.sim.Backend().Name(),
		Running: s.running,
		Uptime:  time.Since(s.started).Seconds(),
	}
	if s.lastErr != nil {
		resp.Error = s.lastErr.Error()
	}
	s.mu.RUnlock()

	writeJSON(w, resp)
}

func (s *Server) conserved(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	p := s.sim.Params()
	st := s.sim.Store()
	resp := ConservedResponse{
		Step:            s.sim.StepCount(),
		Energy:          metrics.TotalEnergy(st, p.G, p.Softening),
		Momentum:        vec(physics.Momentum(st)),
		AngularMomentum: vec(physics.AngularMomentum(st)),
		CenterOfMass:    vec(physics.CenterOfMass(st)),
	}
	s.mu.RUnlock()

	writeJSON(w, resp)
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func (s *Server) listBodies(w http.ResponseWriter, r *http.Request) {
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}
	limit, ok := queryInt(r, "limit", defaultLimit)
	if !ok {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	limit = min(limit, maxLimit)

	s.mu.RLock()
	all := s.sim.Store().Bodies()
	resp := BodiesResponse{Total: len(all), Offset: offset, Bodies: []BodyResponse{}}
	for i := offset; i < len(all) && i < offset+limit; i++ {
		resp.Bodies = append(resp.Bodies, bodyResponse(i, all[i]))
	}
	s.mu.RUnlock()

	writeJSON(w, resp)
}

// bodyID parses the {id} route parameter and checks it names a real body.
func (s *Server) bodyID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid body id", http.StatusBadRequest)
		return 0, false
	}
	if id < 0 || id >= s.sim.Store().N() {
		http.Error(w, "body not found", http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func (s *Server) getBody(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bodyID(w, r)
	if !ok {
		return
	}

	s.mu.RLock()
	resp := bodyResponse(id, s.sim.Store().Body(id))
	s.mu.RUnlock()

	writeJSON(w, resp)
}

func (s *Server) getAcceleration(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bodyID(w, r)
	if !ok {
		return
	}

	s.mu.RLock()
	resp := AccelerationResponse{
		ID:   id,
		Step: s.sim.StepCount(),
		Acc:  vec(s.sim.Accelerations().At(id)),
	}
	s.mu.RUnlock()

	writeJSON(w, resp)
}
