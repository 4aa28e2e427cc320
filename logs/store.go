package logs

import (
	"errors"
	"time"

	"github.com/kaireichart/edgetx-log-viewer/data_analysis"
)

var (
	ErrAlreadyLoaded     = errors.New("log already loaded")
	ErrLogNotFound       = errors.New("log not found")
	ErrNoSelection       = errors.New("no log selected")
	ErrFieldNotNumerical = errors.New("field is not numerical")
)

// Summary describes a stored log without its entries
type Summary struct {
	ID       string                     `json:"id"`
	Filename string                     `json:"filename"`
	Name     string                     `json:"name"`
	Metadata data_analysis.FileMetadata `json:"metadata"`
	Entries  int                        `json:"entries"`
	Stats    data_analysis.FlightStats  `json:"stats"`
	Warnings int                        `json:"warnings"`
	BlobSize int                        `json:"blobSize"`
	AddedAt  time.Time                  `json:"addedAt"`
}

// Store holds the logs of one session keyed by filename.
// Logs returned by Get are shared and must not be modified.
type Store interface {
	// Put stores a log; an existing filename is left untouched and ErrAlreadyLoaded returned
	Put(log *data_analysis.NormalizedLog) (Summary, error)
	Get(filename string) (*data_analysis.NormalizedLog, error)
	Has(filename string) (bool, error)
	Delete(filename string) error
	Clear() error
	// List returns summaries in insertion order
	List() ([]Summary, error)
	Close() error
}
