// Package dataset loads dataset directories, in which spreadsheet metadata
// files are parsed into tables, and writes them back to disk.
package dataset

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// DefaultTemplateVersion is the template version selected by default.
const DefaultTemplateVersion = "2.0.0"

// DefaultMetadataExtensions lists the file extensions parsed as metadata.
var DefaultMetadataExtensions = []string{".xlsx"}

// Config configures a Manager. Zero fields take their defaults.
type Config struct {
	// TemplateVersion is a dotted version such as "2.0.0".
	TemplateVersion string
	// ResourcesDir holds the templates/ directory.
	// Defaults to DefaultResourcesDir().
	ResourcesDir string
	// MetadataExtensions lists extensions (with the leading dot) whose files
	// are parsed as spreadsheets. Matching is case-sensitive.
	MetadataExtensions []string
	// Fs is the filesystem all operations use. Defaults to the OS filesystem.
	Fs afero.Fs
	// Logger receives debug records of loads and saves. Defaults to a
	// logger that discards everything.
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		TemplateVersion:    DefaultTemplateVersion,
		ResourcesDir:       DefaultResourcesDir(),
		MetadataExtensions: append([]string(nil), DefaultMetadataExtensions...),
		Fs:                 afero.NewOsFs(),
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// DefaultResourcesDir returns the resources directory next to the
// installation root, the directory of the running executable:
// <root>/../resources.
func DefaultResourcesDir() string {
	root := "."
	if exe, err := os.Executable(); err == nil {
		root = filepath.Dir(exe)
	}
	return filepath.Join(root, "..", "resources")
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TemplateVersion == "" {
		c.TemplateVersion = def.TemplateVersion
	}
	if c.ResourcesDir == "" {
		c.ResourcesDir = def.ResourcesDir
	}
	if len(c.MetadataExtensions) == 0 {
		c.MetadataExtensions = def.MetadataExtensions
	}
	if c.Fs == nil {
		c.Fs = def.Fs
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	return c
}
