// Package parser reads metadata spreadsheets into tables.
//
// Two engines are tried in order: the legacy engine reads BIFF8 workbooks
// stored in OLE2 compound documents, the OOXML engine reads xlsx packages.
// A file the legacy engine cannot read is handed to the OOXML engine; when
// every engine fails, the error reports each engine's failure.
package parser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"github.com/ukaji3/dataset-go/pkg/dataset/models"
)

// ErrIncompatibleFormat indicates an engine does not understand the file's
// container format. It triggers the fallback to the next engine.
var ErrIncompatibleFormat = errors.New("incompatible workbook format")

// ErrInvalidFormat indicates no engine could read the file.
var ErrInvalidFormat = errors.New("invalid workbook format")

// FormatError reports a spreadsheet no engine could read. Err joins the
// failure of every engine tried, each prefixed with the engine name.
type FormatError struct {
	Path   string
	Engine string // engine tried last
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("cannot read %s: %s", e.Path, strings.ReplaceAll(e.Err.Error(), "\n", "; "))
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInvalidFormat) hold for every FormatError.
func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}

// Sheet is the raw cell grid of one worksheet. Grid[r][c] is nil for
// empty cells; rows may have different lengths.
type Sheet struct {
	Name string
	Grid [][]interface{}
}

// Engine reads the first worksheet of a workbook.
type Engine interface {
	Name() string
	ReadSheet(fsys afero.Fs, path string) (*Sheet, error)
}

// Parser parses spreadsheets with a chain of engines.
type Parser struct {
	fs      afero.Fs
	engines []Engine
	logger  *slog.Logger
}

// New returns a Parser using the legacy engine, then the OOXML engine.
func New(fsys afero.Fs, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Parser{
		fs:      fsys,
		engines: []Engine{LegacyEngine{}, OOXMLEngine{}},
		logger:  logger,
	}
}

// WithEngines replaces the engine chain.
func (p *Parser) WithEngines(engines ...Engine) *Parser {
	p.engines = engines
	return p
}

// ParseTable reads the first worksheet of the file at path as a table whose
// first non-blank row holds the column names.
//
// Errors other than ErrIncompatibleFormat are returned unchanged, so
// filesystem errors keep their *fs.PathError form.
func (p *Parser) ParseTable(path string) (*models.Table, error) {
	var errs []error
	var lastEngine string
	for _, e := range p.engines {
		sheet, err := e.ReadSheet(p.fs, path)
		if err == nil {
			return BuildTable(sheet.Name, sheet.Grid), nil
		}
		if !errors.Is(err, ErrIncompatibleFormat) {
			return nil, err
		}
		p.logger.Debug("engine cannot read workbook", "path", path, "engine", e.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
		lastEngine = e.Name()
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no engines configured"))
	}
	return nil, &FormatError{Path: path, Engine: lastEngine, Err: errors.Join(errs...)}
}
