package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/chrissnell/taup/pkg/geo"
	"github.com/chrissnell/taup/pkg/phase"
	"github.com/chrissnell/taup/pkg/tau"
	"github.com/chrissnell/taup/pkg/taup"
	"github.com/chrissnell/taup/pkg/velocity"
)

var errBadRequest = errors.New("bad request")

// PhaseCheck reports whether one phase name is well formed
type PhaseCheck struct {
	Name  string   `json:"name"`
	Valid bool     `json:"valid"`
	Legs  []string `json:"legs,omitempty"`
	Error string   `json:"error,omitempty"`
}

// ModelList is the /models response
type ModelList struct {
	Default string   `json:"default"`
	Models  []string `json:"models"`
}

func (s *Server) queryHandler(mode taup.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		q, err := s.parseQuery(req.URL.Query())
		if err != nil {
			s.writeError(w, req, err)
			return
		}
		q.Mode = mode

		res, err := s.engine.Arrivals(q)
		if err != nil {
			s.writeError(w, req, err)
			return
		}
		if res.Arrivals == nil {
			res.Arrivals = []taup.Arrival{}
		}

		w.Header().Set("Cache-Control", "max-age=3600")
		if err := s.formatter.WriteResponse(w, req, res); err != nil {
			s.logger.Errorf("error encoding arrivals: %v", err)
		}
	}
}

func (s *Server) validatePhases(w http.ResponseWriter, req *http.Request) {
	params := req.URL.Query()
	names := phaseNames(params)
	if len(names) == 0 {
		s.writeError(w, req, fmt.Errorf("%w: phase parameter is required", errBadRequest))
		return
	}
	expert := s.expert
	if v := params.Get("expert"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, req, fmt.Errorf("%w: expert: %v", errBadRequest, err))
			return
		}
		expert = b
	}

	checks := make([]PhaseCheck, len(names))
	for i, name := range names {
		checks[i].Name = name
		legs, err := phase.Parse(name, expert)
		if err != nil {
			checks[i].Error = err.Error()
			continue
		}
		checks[i].Valid = true
		for _, l := range legs {
			checks[i].Legs = append(checks[i].Legs, l.Token)
		}
	}

	if err := s.formatter.WriteResponse(w, req, checks); err != nil {
		s.logger.Errorf("error encoding phase checks: %v", err)
	}
}

func (s *Server) listModels(w http.ResponseWriter, req *http.Request) {
	list := ModelList{Default: s.model, Models: s.engine.Models()}
	if err := s.formatter.WriteResponse(w, req, list); err != nil {
		s.logger.Errorf("error encoding model list: %v", err)
	}
}

// parseQuery reads model, h (source depth, km), phase, and either deg or
// both evt and sta as "lat,lon" pairs.
func (s *Server) parseQuery(params url.Values) (taup.Query, error) {
	q := taup.Query{
		Model:  params.Get("model"),
		Phases: phaseNames(params),
	}
	if q.Model == "" {
		q.Model = s.model
	}

	var err error
	if v := params.Get("h"); v != "" {
		if q.SourceDepth, err = strconv.ParseFloat(v, 64); err != nil {
			return q, fmt.Errorf("%w: h: %v", errBadRequest, err)
		}
	}

	evt, sta := params.Get("evt"), params.Get("sta")
	switch {
	case evt != "" && sta != "":
		event, err := parseCoord(evt)
		if err != nil {
			return q, fmt.Errorf("%w: evt: %v", errBadRequest, err)
		}
		station, err := parseCoord(sta)
		if err != nil {
			return q, fmt.Errorf("%w: sta: %v", errBadRequest, err)
		}
		q.Event, q.Station = &event, &station
	case params.Get("deg") != "":
		if q.Distance, err = strconv.ParseFloat(params.Get("deg"), 64); err != nil {
			return q, fmt.Errorf("%w: deg: %v", errBadRequest, err)
		}
	default:
		return q, fmt.Errorf("%w: deg or both evt and sta are required", errBadRequest)
	}
	return q, nil
}

func parseCoord(v string) (geo.Coord, error) {
	lat, lon, ok := strings.Cut(v, ",")
	if !ok {
		return geo.Coord{}, fmt.Errorf("want lat,lon, got %q", v)
	}
	latDeg, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return geo.Coord{}, err
	}
	lonDeg, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return geo.Coord{}, err
	}
	return geo.NewCoord(latDeg, lonDeg), nil
}

// phaseNames accepts both repeated and comma-separated phase parameters.
func phaseNames(params url.Values) []string {
	var names []string
	for _, v := range params["phase"] {
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	return names
}

func (s *Server) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, taup.ErrQuery),
		errors.Is(err, phase.ErrPhaseGrammar),
		errors.Is(err, tau.ErrTauModel):
		status = http.StatusBadRequest
	case errors.Is(err, velocity.ErrUnknownModel):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Errorw("query failed", "path", req.URL.Path, "error", err)
	} else {
		s.logger.Debugw("rejected query", "path", req.URL.Path, "error", err)
	}
	if werr := s.formatter.WriteError(w, req, status, err); werr != nil {
		s.logger.Errorf("error encoding error response: %v", werr)
	}
}
