package api

import (
	"net/http"
	"strings"

	"github.com/banshee-data/wellness.report/internal/dataset"
	"github.com/banshee-data/wellness.report/internal/httputil"
)

// handleDatasets lists stored datasets (GET) or imports an uploaded pair
// under a name (POST).
func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		infos, err := s.store.ListDatasets()
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.WriteJSONOK(w, infos)
	case http.MethodPost:
		s.importDataset(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) importDataset(w http.ResponseWriter, r *http.Request) {
	centersCSV, beneficiariesCSV, err := readUpload(w, r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		httputil.BadRequest(w, "missing 'name' parameter")
		return
	}

	ds, err := s.loader.Load(centersCSV, beneficiariesCSV)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := s.store.ImportDataset(name, ds.Centers, ds.Beneficiaries)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"id":            id,
		"name":          name,
		"centers":       len(ds.Centers),
		"beneficiaries": len(ds.Beneficiaries),
	})
}

// handleDataset deletes one stored dataset.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.store.DeleteDataset(r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clusterStoredDataset runs the pipeline over a dataset from the store.
func (s *Server) clusterStoredDataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	k, err := parseK(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	name := r.PathValue("name")
	beneficiaries, err := s.store.LoadBeneficiaries(name)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.run(dataset.Records(beneficiaries), k)
	if err != nil {
		writeError(w, err)
		return
	}
	resp.Dataset = name
	httputil.WriteJSONOK(w, resp)
}
