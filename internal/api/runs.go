package api

import (
	"io"
	"net/http"

	"github.com/banshee-data/wellness.report/internal/cluster"
	"github.com/banshee-data/wellness.report/internal/httputil"
	"github.com/banshee-data/wellness.report/internal/report"
)

// lookupRun resolves the {id} path value against the recent-run cache and
// writes the error response when it cannot.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*cluster.Result, bool) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return nil, false
	}
	id := r.PathValue("id")
	v, ok := s.runs.Get(id)
	if !ok {
		httputil.NotFound(w, "run not found or expired: "+id)
		return nil, false
	}
	return v.(*cluster.Result), true
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, newRunResponse(res, 0))
}

func (s *Server) handleRunChart(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	httputil.WriteRendered(w, "text/html; charset=utf-8", "", func(out io.Writer) error {
		return report.WriteHTML(out, res)
	})
}

func (s *Server) handleRunElbowPNG(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	httputil.WriteRendered(w, "image/png", "", func(out io.Writer) error {
		return report.WriteElbowPNG(out, res.Curve, res.Knee)
	})
}

func (s *Server) handleRunClusterPNG(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	httputil.WriteRendered(w, "image/png", "", func(out io.Writer) error {
		return report.WriteClusterPNG(out, res)
	})
}

func (s *Server) handleRunAssignments(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	httputil.WriteRendered(w, "text/csv; charset=utf-8", "assignments-"+res.RunID+".csv", func(out io.Writer) error {
		return report.WriteAssignmentsCSV(out, res)
	})
}
