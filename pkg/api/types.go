package api

import (
	"context"
	"io"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/characterize/pkg/characterize"
	"github.com/ssargent/characterize/pkg/report"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port          int
	Bind          string
	APIKey        string // Empty disables authentication
	MaxUploadSize int64  // Zero means no limit
}

// ReportStore persists characterization reports
type ReportStore interface {
	Put(r *report.Report) (ksuid.KSUID, error)
	Get(id ksuid.KSUID) (*report.Report, error)
	Delete(id ksuid.KSUID) error
	List() ([]report.Summary, error)
}

// Characterizer runs characterization over an uploaded stream
type Characterizer interface {
	RunReader(ctx context.Context, name string, body io.Reader) (*characterize.Result, error)
}
