// Package api serves the clustering pipeline over HTTP: uploads, stored
// datasets, charts and exports of recent runs.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	lru "github.com/hashicorp/golang-lru"

	"github.com/banshee-data/wellness.report/internal/cluster"
	"github.com/banshee-data/wellness.report/internal/config"
	"github.com/banshee-data/wellness.report/internal/dataset"
	"github.com/banshee-data/wellness.report/internal/db"
	"github.com/banshee-data/wellness.report/internal/httputil"
	"github.com/banshee-data/wellness.report/internal/monitoring"
	"github.com/banshee-data/wellness.report/internal/report"
)

// maxUploadBytes bounds the combined size of an upload request.
const maxUploadBytes = 32 << 20

// Server holds the components behind the HTTP handlers. store may be nil,
// in which case the stored-dataset routes are not mounted.
type Server struct {
	pipeline *cluster.Pipeline
	loader   *dataset.Loader
	store    *db.DB
	cfg      *config.ClusteringConfig
	runs     *lru.Cache
}

// NewServer wires a Server. The recent-run cache holds cfg's cache_entries
// results; runs are kept in memory only.
func NewServer(pipeline *cluster.Pipeline, loader *dataset.Loader, store *db.DB, cfg *config.ClusteringConfig) (*Server, error) {
	if cfg == nil {
		cfg = config.EmptyClusteringConfig()
	}
	runs, err := lru.New(max(cfg.GetCacheEntries(), 1))
	if err != nil {
		return nil, fmt.Errorf("failed to create run cache: %w", err)
	}
	return &Server{
		pipeline: pipeline,
		loader:   loader,
		store:    store,
		cfg:      cfg,
		runs:     runs,
	}, nil
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cluster", s.handleCluster)
	mux.HandleFunc("/api/runs/{id}", s.handleRun)
	mux.HandleFunc("/api/runs/{id}/chart", s.handleRunChart)
	mux.HandleFunc("/api/runs/{id}/elbow.png", s.handleRunElbowPNG)
	mux.HandleFunc("/api/runs/{id}/clusters.png", s.handleRunClusterPNG)
	mux.HandleFunc("/api/runs/{id}/assignments.csv", s.handleRunAssignments)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/cache/invalidate", s.invalidateCache)
	if s.store != nil {
		mux.HandleFunc("/api/datasets", s.handleDatasets)
		mux.HandleFunc("/api/datasets/{name}", s.handleDataset)
		mux.HandleFunc("/api/datasets/{name}/cluster", s.clusterStoredDataset)
	}
	return mux
}

// runResponse is the JSON body returned for a pipeline run.
type runResponse struct {
	*cluster.Result
	RequestedK int               `json:"requested_k,omitempty"`
	Message    string            `json:"message"`
	DatasetKey string            `json:"dataset_key,omitempty"`
	Dataset    string            `json:"dataset,omitempty"`
	Links      map[string]string `json:"links"`
}

func newRunResponse(res *cluster.Result, requested int) *runResponse {
	base := "/api/runs/" + res.RunID
	return &runResponse{
		Result:     res,
		RequestedK: requested,
		Message:    report.KneeMessage(res.Knee, res.KSource),
		Links: map[string]string{
			"self":        base,
			"chart":       base + "/chart",
			"elbow":       base + "/elbow.png",
			"clusters":    base + "/clusters.png",
			"assignments": base + "/assignments.csv",
		},
	}
}

// parseK reads the optional k parameter. Missing or zero means automatic.
func parseK(r *http.Request) (int, error) {
	v := r.FormValue("k")
	if v == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(v)
	if err != nil || k < 0 {
		return 0, fmt.Errorf("invalid 'k' parameter %q", v)
	}
	return k, nil
}

// run clamps the requested k to the slider range, runs the pipeline and
// remembers the result for the chart and export routes.
func (s *Server) run(records []cluster.Record, requested int) (*runResponse, error) {
	k := s.cfg.ClampToSlider(requested, len(cluster.Aggregate(records)))
	res, err := s.pipeline.Run(records, k)
	if err != nil {
		return nil, err
	}
	s.runs.Add(res.RunID, res)
	return newRunResponse(res, requested), nil
}

// writeError maps pipeline, dataset and store errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cluster.ErrEmptyInput):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, dataset.ErrInvalidDataset),
		errors.Is(err, cluster.ErrInvalidClusterCount),
		errors.Is(err, cluster.ErrInvalidRange):
		httputil.UnprocessableEntity(w, err.Error())
	case errors.Is(err, db.ErrDatasetNotFound):
		httputil.NotFound(w, err.Error())
	default:
		monitoring.Logf("[api] request failed: %v", err)
		httputil.InternalServerError(w, "internal error")
	}
}

// readUpload parses a multipart upload carrying the centers and
// beneficiaries tables.
func readUpload(w http.ResponseWriter, r *http.Request) (centers, beneficiaries []byte, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart upload: %w", err)
	}
	if centers, err = formFile(r, "centers"); err != nil {
		return nil, nil, err
	}
	if beneficiaries, err = formFile(r, "beneficiaries"); err != nil {
		return nil, nil, err
	}
	return centers, beneficiaries, nil
}

func formFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing '%s' file", field)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s' file: %w", field, err)
	}
	return data, nil
}

// handleCluster clusters an uploaded pair of tables.
func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	centersCSV, beneficiariesCSV, err := readUpload(w, r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	k, err := parseK(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	ds, err := s.loader.Load(centersCSV, beneficiariesCSV)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.run(dataset.Records(ds.Beneficiaries), k)
	if err != nil {
		writeError(w, err)
		return
	}
	resp.DatasetKey = ds.Key
	httputil.WriteJSONOK(w, resp)
}

// configResponse reports the loaded file alongside the parameters the
// pipeline actually runs with.
type configResponse struct {
	Config    *config.ClusteringConfig `json:"config"`
	Effective effectiveParams          `json:"effective"`
}

type effectiveParams struct {
	KMin            int     `json:"k_min"`
	KMax            int     `json:"k_max"`
	DefaultK        int     `json:"default_k"`
	Seed            int64   `json:"seed"`
	KneeSensitivity float64 `json:"knee_sensitivity"`
	ParallelSweep   bool    `json:"parallel_sweep"`
	MaxIterations   int     `json:"max_iterations"`
	Tolerance       float64 `json:"tolerance"`
	Restarts        int     `json:"restarts"`
	SliderMin       int     `json:"slider_min"`
	SliderMax       int     `json:"slider_max"`
	CacheEntries    int     `json:"cache_entries"`
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	p := s.pipeline.Params()
	httputil.WriteJSONOK(w, configResponse{
		Config: s.cfg,
		Effective: effectiveParams{
			KMin:            p.KMin,
			KMax:            p.KMax,
			DefaultK:        p.DefaultK,
			Seed:            p.Seed,
			KneeSensitivity: p.KneeSensitivity,
			ParallelSweep:   p.ParallelSweep,
			MaxIterations:   p.KMeans.MaxIterations,
			Tolerance:       p.KMeans.Tolerance,
			Restarts:        p.KMeans.Restarts,
			SliderMin:       s.cfg.GetSliderMin(),
			SliderMax:       s.cfg.GetSliderMax(),
			CacheEntries:    s.cfg.GetCacheEntries(),
		},
	})
}

// invalidateCache drops one cached dataset when a key is given, otherwise
// the whole dataset cache.
func (s *Server) invalidateCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if key := r.FormValue("key"); key != "" {
		httputil.WriteJSONOK(w, map[string]bool{"invalidated": s.loader.Invalidate(key)})
		return
	}
	n := s.loader.Len()
	s.loader.Purge()
	monitoring.Logf("[api] purged %d cached datasets", n)
	httputil.WriteJSONOK(w, map[string]int{"purged": n})
}
