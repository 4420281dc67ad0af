package dataset

import (
	"errors"

	"github.com/ukaji3/dataset-go/pkg/dataset/parser"
)

// ErrEmptyDataset indicates a save was requested before anything was loaded.
var ErrEmptyDataset = errors.New("dataset not defined: load the dataset or the template dataset in advance")

// ErrInvalidFormat indicates a metadata file is neither a legacy nor a
// modern spreadsheet.
var ErrInvalidFormat = parser.ErrInvalidFormat

// FormatError reports the metadata file that could not be parsed.
type FormatError = parser.FormatError
