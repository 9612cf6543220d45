package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/example/groundtrack/ellipsoid"
	"github.com/example/groundtrack/routing"
	"github.com/example/groundtrack/simulation"
)

// Server exposes the solver and the running simulation over HTTP.
type Server struct {
	addr  string
	shape ellipsoid.Shape
	sim   *simulation.Simulator
}

type healthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

type simulationResponse struct {
	Message  string              `json:"message"`
	Snapshot simulation.Snapshot `json:"snapshot"`
}

type intersectRequest struct {
	Direction    [3]float64 `json:"direction"`
	Origin       [3]float64 `json:"origin"`
	Radius       *float64   `json:"radius,omitempty"`
	Eccentricity *float64   `json:"eccentricity,omitempty"`
}

type intersectResponse struct {
	Outcome   string      `json:"outcome"`
	Reason    string      `json:"reason,omitempty"`
	T         *float64    `json:"t,omitempty"`
	Point     *[3]float64 `json:"point,omitempty"`
	Latitude  *float64    `json:"latitude,omitempty"`
	Longitude *float64    `json:"longitude,omitempty"`
}

type routesResponse struct {
	From   string         `json:"from"`
	To     string         `json:"to"`
	Routes []routing.Path `json:"routes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer wires the HTTP surface to a reference shape and a running simulator.
func NewServer(addr string, shape ellipsoid.Shape, sim *simulation.Simulator) *Server {
	return &Server{
		addr:  addr,
		shape: shape,
		sim:   sim,
	}
}

// Handler returns the routed mux; Start serves it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("POST /intersect", s.intersectHandler)
	mux.HandleFunc("GET /simulation/snapshot", s.snapshotHandler)
	mux.HandleFunc("POST /simulation/step", s.stepHandler)
	mux.HandleFunc("GET /simulation/routes", s.routesHandler)
	return mux
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	log.Printf("API server listening on %s", s.addr)
	return srv.ListenAndServe()
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.sim.Snapshot()
	writeJSON(w, http.StatusOK, simulationResponse{Message: "current simulation state", Snapshot: snap})
}

func (s *Server) stepHandler(w http.ResponseWriter, r *http.Request) {
	seconds := 60.0
	if raw := r.URL.Query().Get("seconds"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 86400 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "seconds must be a number in [0, 86400]"})
			return
		}
		seconds = v
	}

	snap, err := s.sim.Step(time.Duration(seconds * float64(time.Second)))
	if err != nil {
		log.Printf("simulation step failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, simulationResponse{Message: "advanced simulation", Snapshot: snap})
}

func (s *Server) routesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from and to are required"})
		return
	}

	k := 1
	if raw := q.Get("k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 10 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "k must be an integer in [1, 10]"})
			return
		}
		k = v
	}

	paths, err := s.sim.Routes(from, to, k)
	if err != nil {
		status := http.StatusInternalServerError
		if simulation.IsUnknownNode(err) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, routesResponse{From: from, To: to, Routes: paths})
}

func (s *Server) intersectHandler(w http.ResponseWriter, r *http.Request) {
	var req intersectRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request: " + err.Error()})
		return
	}

	shape := s.shape
	if req.Radius != nil {
		shape.EquatorialRadius = *req.Radius
	}
	if req.Eccentricity != nil {
		shape.Eccentricity = *req.Eccentricity
	}

	ray := ellipsoid.NewRay(vec(req.Origin), vec(req.Direction))
	hit, err := ellipsoid.Intersect(ray, shape)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if !isInputError(err) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, toIntersectResponse(shape, hit))
}

func toIntersectResponse(shape ellipsoid.Shape, hit ellipsoid.Intersection) intersectResponse {
	resp := intersectResponse{Outcome: hit.Outcome.String()}
	if !hit.Hit() {
		resp.Reason = hit.Reason.String()
		return resp
	}

	ll, _ := shape.Geodetic(hit.Point)
	t := hit.T
	point := [3]float64{hit.Point.X, hit.Point.Y, hit.Point.Z}
	lat, lon := ll.Lat.Degrees(), ll.Lng.Degrees()

	resp.T = &t
	resp.Point = &point
	resp.Latitude = &lat
	resp.Longitude = &lon
	return resp
}

func isInputError(err error) bool {
	return errors.Is(err, ellipsoid.ErrDegenerateDirection) ||
		errors.Is(err, ellipsoid.ErrInvalidEccentricity) ||
		errors.Is(err, ellipsoid.ErrInvalidRadius) ||
		errors.Is(err, ellipsoid.ErrNonFiniteRay) ||
		errors.Is(err, ellipsoid.ErrOutOfRange)
}

func vec(v [3]float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// writeJSON encodes payload in full before writing the status; an encoding failure becomes a 500.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"failed to encode response"}` + "\n")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}
