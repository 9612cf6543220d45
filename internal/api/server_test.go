package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/groundtrack/ellipsoid"
	"github.com/example/groundtrack/simulation"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := NewServer(":0", ellipsoid.Earth, simulation.NewDemoSimulator(ellipsoid.Earth, 0))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postIntersect(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/intersect", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, payload
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "ok" {
		t.Fatalf("unexpected status %q", payload.Status)
	}
}

func TestIntersectHit(t *testing.T) {
	ts := newTestServer(t)

	resp, payload := postIntersect(t, ts, `{"direction":[-1,0,-0.1],"origin":[8000,0,500]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, payload)
	}
	if payload["outcome"] != "hit" {
		t.Fatalf("expected hit, got %v", payload)
	}

	raw, ok := payload["point"].([]any)
	if !ok || len(raw) != 3 {
		t.Fatalf("expected a three-component point, got %v", payload["point"])
	}
	x, y, z := raw[0].(float64), raw[1].(float64), raw[2].(float64)
	res := (x*x+y*y)/(6378.1363*6378.1363) + z*z/(6378.1363*6378.1363*(1-0.081819221456*0.081819221456)) - 1
	if math.Abs(res) > 1e-6 {
		t.Fatalf("returned point is off the surface: residual %g", res)
	}
	if _, ok := payload["latitude"].(float64); !ok {
		t.Fatalf("expected geodetic latitude in hit response, got %v", payload)
	}
}

func TestIntersectMiss(t *testing.T) {
	ts := newTestServer(t)

	resp, payload := postIntersect(t, ts, `{"direction":[1,0,0],"origin":[10000,0,0]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("a miss is not an error, got %d", resp.StatusCode)
	}
	if payload["outcome"] != "miss" || payload["reason"] != "both roots negative" {
		t.Fatalf("unexpected miss payload %v", payload)
	}
	if _, ok := payload["point"]; ok {
		t.Fatalf("miss should not carry a point: %v", payload)
	}
}

func TestIntersectInputErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		substr string
	}{
		{"zero direction", `{"direction":[0,0,0],"origin":[1,2,3]}`, http.StatusUnprocessableEntity, "zero direction"},
		{"bad eccentricity", `{"direction":[-1,0,0],"origin":[8000,0,0],"eccentricity":1.5}`, http.StatusUnprocessableEntity, "eccentricity"},
		{"bad radius", `{"direction":[-1,0,0],"origin":[8000,0,0],"radius":0}`, http.StatusUnprocessableEntity, "radius"},
		{"malformed json", `{"direction":`, http.StatusBadRequest, "malformed"},
		{"unknown field", `{"direction":[1,0,0],"origin":[0,0,0],"speed":3}`, http.StatusBadRequest, "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, payload := postIntersect(t, ts, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d: %v", tt.status, resp.StatusCode, payload)
			}
			msg, _ := payload["error"].(string)
			if !strings.Contains(msg, tt.substr) {
				t.Fatalf("expected error mentioning %q, got %q", tt.substr, msg)
			}
		})
	}
}

func TestIntersectExtremeDirection(t *testing.T) {
	ts := newTestServer(t)

	resp, payload := postIntersect(t, ts, `{"direction":[-1e200,0,0],"origin":[8000,0,500]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, payload)
	}
	if payload["outcome"] != "hit" {
		t.Fatalf("expected hit, got %v", payload)
	}
	if got, _ := payload["t"].(float64); got <= 0 || got > 1e-190 {
		t.Fatalf("expected a tiny positive parameter, got %v", payload["t"])
	}

	resp, payload = postIntersect(t, ts, `{"direction":[-1,0,0],"origin":[1e200,0,0]}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for an out of range origin, got %d: %v", resp.StatusCode, payload)
	}
}

func TestWriteJSONEncodingFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"t": math.NaN()})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when the payload cannot be encoded, got %d", rec.Code)
	}
	var payload errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || payload.Error == "" {
		t.Fatalf("expected an error body, got %q (err=%v)", rec.Body.String(), err)
	}
}

func TestRoutesEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/simulation/routes?from=svalbard&to=singapore&k=2")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var payload routesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload.Routes == nil || len(payload.Routes) > 2 {
		t.Fatalf("expected at most two routes as a JSON list, got %v", payload.Routes)
	}
	for _, route := range payload.Routes {
		if route.Nodes[0] != "svalbard" || route.Nodes[len(route.Nodes)-1] != "singapore" {
			t.Fatalf("route does not join the requested stations: %v", route.Nodes)
		}
	}

	tests := []struct {
		query  string
		status int
	}{
		{"from=svalbard", http.StatusBadRequest},
		{"from=svalbard&to=singapore&k=0", http.StatusBadRequest},
		{"from=svalbard&to=atlantis", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := http.Get(ts.URL + "/simulation/routes?" + tt.query)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Fatalf("%s: expected %d, got %d", tt.query, tt.status, resp.StatusCode)
		}
	}
}

func TestIntersectCustomBody(t *testing.T) {
	ts := newTestServer(t)

	// A unit sphere: the ray from (0,0,5) straight down lands on the pole at t=4.
	resp, payload := postIntersect(t, ts, `{"direction":[0,0,-1],"origin":[0,0,5],"radius":1,"eccentricity":0}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got, _ := payload["t"].(float64); math.Abs(got-4) > 1e-12 {
		t.Fatalf("expected t=4, got %v", payload["t"])
	}
}

func TestSimulationEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/simulation/snapshot")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var initial simulationResponse
	if err := json.NewDecoder(resp.Body).Decode(&initial); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(initial.Snapshot.Tracks) != 3 {
		t.Fatalf("expected demo tracks, got %d", len(initial.Snapshot.Tracks))
	}

	resp, err = http.Post(ts.URL+"/simulation/step?seconds=600", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var stepped simulationResponse
	if err := json.NewDecoder(resp.Body).Decode(&stepped); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if got := stepped.Snapshot.Timestamp.Sub(initial.Snapshot.Timestamp); got.Seconds() != 600 {
		t.Fatalf("expected the clock to advance 600s, got %v", got)
	}

	resp, err = http.Post(ts.URL+"/simulation/step?seconds=-5", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative step, got %d", resp.StatusCode)
	}
}
