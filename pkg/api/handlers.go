package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/characterize/pkg/store"
)

// countingReader tracks the bytes read from an upload.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleCharacterize godoc
//
//	@Summary		Characterize an upload
//	@Description	Characterize the request body and return its report
//	@Tags			characterize
//	@Accept			octet-stream
//	@Produce		json,application/cbor
//	@Param			name	query		string	false	"Name of the root source"
//	@Param			store	query		bool	false	"Set to false to skip storing the report"
//	@Param			body	body		[]byte	true	"Byte stream"
//	@Success		200		{object}	report.Report
//	@Success		201		{object}	report.Report
//	@Failure		413		{object}	APIResponse
//	@Failure		500		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/characterize [post]
func (s *Server) handleCharacterize(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}

	var body io.Reader = r.Body
	if s.config.MaxUploadSize > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize)
	}
	counter := &countingReader{r: body}

	res, err := s.engine.RunReader(r.Context(), name, counter)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			sendError(w, fmt.Sprintf("Upload exceeds %d bytes", maxErr.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		s.logger.Error("characterization failed", "name", name, "error", err)
		sendError(w, fmt.Sprintf("Failed to characterize upload: %v", err), http.StatusInternalServerError)
		return
	}
	defer res.Close()

	rep := res.Report()
	s.metrics.RecordCharacterization(rep.Validity, counter.n)

	if s.reports != nil && r.URL.Query().Get("store") != "false" {
		start := time.Now()
		_, err := s.reports.Put(rep)
		s.metrics.RecordStoreOperation("put", err == nil, time.Since(start))
		if err != nil {
			sendError(w, fmt.Sprintf("Failed to store report: %v", err), http.StatusInternalServerError)
			return
		}
		sendReport(w, r, rep, http.StatusCreated)
		return
	}

	sendReport(w, r, rep, http.StatusOK)
}

// handleListReports godoc
//
//	@Summary		List reports
//	@Description	List stored report summaries in creation order
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Failure		501	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/reports [get]
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		sendError(w, "Report store is not configured", http.StatusNotImplemented)
		return
	}
	start := time.Now()
	list, err := s.reports.List()
	s.metrics.RecordStoreOperation("list", err == nil, time.Since(start))
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to list reports: %v", err), http.StatusInternalServerError)
		return
	}
	sendSuccess(w, list)
}

// handleGetReport godoc
//
//	@Summary		Get a report
//	@Description	Get a stored report by id
//	@Tags			reports
//	@Produce		json,application/cbor
//	@Param			id	path		string	true	"Report id"
//	@Success		200	{object}	report.Report
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/reports/{id} [get]
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		sendError(w, "Report store is not configured", http.StatusNotImplemented)
		return
	}
	id, err := store.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid report id", http.StatusBadRequest)
		return
	}

	start := time.Now()
	rep, err := s.reports.Get(id)
	s.metrics.RecordStoreOperation("get", err == nil || errors.Is(err, store.ErrNotFound), time.Since(start))
	if errors.Is(err, store.ErrNotFound) {
		sendError(w, "Report not found", http.StatusNotFound)
		return
	}
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to get report: %v", err), http.StatusInternalServerError)
		return
	}
	sendReport(w, r, rep, http.StatusOK)
}

// handleDeleteReport godoc
//
//	@Summary		Delete a report
//	@Description	Delete a stored report by id
//	@Tags			reports
//	@Produce		json
//	@Param			id	path		string	true	"Report id"
//	@Success		200	{object}	APIResponse
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/reports/{id} [delete]
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		sendError(w, "Report store is not configured", http.StatusNotImplemented)
		return
	}
	id, err := store.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid report id", http.StatusBadRequest)
		return
	}

	start := time.Now()
	err = s.reports.Delete(id)
	s.metrics.RecordStoreOperation("delete", err == nil || errors.Is(err, store.ErrNotFound), time.Since(start))
	if errors.Is(err, store.ErrNotFound) {
		sendError(w, "Report not found", http.StatusNotFound)
		return
	}
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to delete report: %v", err), http.StatusInternalServerError)
		return
	}
	sendSuccess(w, map[string]string{"message": "Report deleted successfully"})
}
