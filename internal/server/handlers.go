package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/nocsched/pkg/errors"
	nocio "github.com/matzehuels/nocsched/pkg/io"
	"github.com/matzehuels/nocsched/pkg/noc"
	"github.com/matzehuels/nocsched/pkg/occupancy"
	"github.com/matzehuels/nocsched/pkg/pipeline"
	"github.com/matzehuels/nocsched/pkg/store"
	"github.com/matzehuels/nocsched/pkg/traffic"
)

// request is the body of POST /v1/models and POST /v1/schedules.
type request struct {
	Topology    json.RawMessage   `json:"topology,omitempty"`
	Mesh        *meshSize         `json:"mesh,omitempty"`
	Application json.RawMessage   `json:"application"`
	Mapping     traffic.Mapping   `json:"mapping"`
	Options     *pipeline.Options `json:"options,omitempty"`
}

type meshSize struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// modelResponse summarizes an exported model.
type modelResponse struct {
	InputHash    string `json:"input_hash"`
	Hyperperiod  int    `json:"hyperperiod"`
	NumLinks     int    `json:"num_links"`
	SkippedLinks int    `json:"skipped_links"`
	NumPackets   int    `json:"num_packets"`
	DZN          string `json:"dzn"`
	Cached       bool   `json:"cached"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) error {
	in, opts, err := s.decode(w, r)
	if err != nil {
		return err
	}
	res, err := s.Runner.Model(r.Context(), in, opts)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, modelResponse{
		InputHash:    res.InputHash,
		Hyperperiod:  res.Hyperperiod,
		NumLinks:     res.Stats.UsedLinks,
		SkippedLinks: res.Stats.SkippedLinks,
		NumPackets:   res.Stats.NumPackets,
		DZN:          string(res.DZN),
		Cached:       res.CacheInfo.ExportHit,
	})
	return nil
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) error {
	if s.Solver == nil {
		return errors.New(errors.ErrCodeSolverUnavailable, "no solver configured")
	}
	in, opts, err := s.decode(w, r)
	if err != nil {
		return err
	}
	opts.Solver = s.Solver

	res, err := s.Runner.Execute(r.Context(), in, opts)
	if err != nil {
		return err
	}

	run := &store.Run{
		InputHash:    res.InputHash,
		SolverID:     res.SolverID,
		Hyperperiod:  res.Hyperperiod,
		NumLinks:     res.Stats.UsedLinks,
		SkippedLinks: res.Stats.SkippedLinks,
		NumPackets:   res.Stats.NumPackets,
		DZN:          string(res.DZN),
		Schedule:     res.Schedule,
		Warnings:     res.Warnings,
	}
	if err := s.Store.Save(r.Context(), run); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "archive run")
	}
	s.Logger.Info("scheduled", "id", run.ID, "packets", run.NumPackets, "solver", run.SolverID, "cached", res.CacheInfo.SolveHit)

	w.Header().Set("Location", "/v1/schedules/"+run.ID)
	writeJSON(w, http.StatusCreated, run)
	return nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) error {
	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v)
		}
		limit = n
	}
	runs, err := s.Store.List(r.Context(), limit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
	return nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	run, err := s.Store.Get(r.Context(), id)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return errors.Wrap(errors.ErrCodeNotFound, err, "run %s", id)
		}
		return err
	}
	writeJSON(w, http.StatusOK, run)
	return nil
}

// decode reads a request body into pipeline input and options.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (pipeline.Input, pipeline.Options, error) {
	var in pipeline.Input
	opts := pipeline.Options{Timing: s.Defaults.Timing, Pad: s.Defaults.Pad, Logger: s.Defaults.Logger}

	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	var req request
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return in, opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return in, opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request")
	}

	switch {
	case len(req.Topology) > 0 && req.Mesh != nil:
		return in, opts, errors.New(errors.ErrCodeInvalidInput, "topology and mesh are mutually exclusive")
	case len(req.Topology) > 0:
		t, err := nocio.ReadTopology(bytes.NewReader(req.Topology), nocio.FormatJSON)
		if err != nil {
			return in, opts, err
		}
		in.Topology = t
	case req.Mesh != nil:
		t, err := noc.NewMesh(req.Mesh.Cols, req.Mesh.Rows)
		if err != nil {
			return in, opts, err
		}
		in.Topology = t
	default:
		return in, opts, errors.New(errors.ErrCodeInvalidInput, "topology or mesh is required")
	}

	if len(req.Application) == 0 {
		return in, opts, errors.New(errors.ErrCodeInvalidInput, "application is required")
	}
	app, err := nocio.ReadApplication(bytes.NewReader(req.Application), nocio.FormatJSON)
	if err != nil {
		return in, opts, err
	}
	in.Application = app
	in.Mapping = req.Mapping

	if o := req.Options; o != nil {
		if o.Timing != (occupancy.Params{}) {
			opts.Timing = o.Timing
		}
		if o.Pad != 0 {
			opts.Pad = o.Pad
		}
		opts.Refresh = o.Refresh
	}
	return in, opts, nil
}

func (s *Server) maxBodyBytes() int64 {
	if s.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return s.MaxBodyBytes
}
