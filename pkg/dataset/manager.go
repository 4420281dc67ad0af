package dataset

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/ukaji3/dataset-go/internal/fsutil"
	"github.com/ukaji3/dataset-go/pkg/dataset/models"
	"github.com/ukaji3/dataset-go/pkg/dataset/output"
	"github.com/ukaji3/dataset-go/pkg/dataset/parser"
)

// Manager holds the template selection and the in-memory dataset.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	fs           afero.Fs
	logger       *slog.Logger
	parser       *parser.Parser
	resourcesDir string
	metadataExts map[string]struct{}

	templateVersion string
	templateDir     string
	datasetPath     string
	dataset         *models.Dataset
}

// New returns a Manager with an empty dataset and the template directory
// of cfg.TemplateVersion selected.
func New(cfg Config) *Manager {
	cfg = cfg.withDefaults()

	exts := make(map[string]struct{}, len(cfg.MetadataExtensions))
	for _, ext := range cfg.MetadataExtensions {
		exts[ext] = struct{}{}
	}

	m := &Manager{
		fs:              cfg.Fs,
		logger:          cfg.Logger,
		parser:          parser.New(cfg.Fs, cfg.Logger),
		resourcesDir:    cfg.ResourcesDir,
		metadataExts:    exts,
		templateVersion: cfg.TemplateVersion,
		dataset:         models.NewDataset(),
	}
	m.SetTemplate("")
	return m
}

// SetDatasetPath records the path of the dataset being worked on.
func (m *Manager) SetDatasetPath(path string) {
	m.datasetPath = path
}

// DatasetPath returns the recorded dataset path.
func (m *Manager) DatasetPath() string {
	return m.datasetPath
}

// SetTemplateVersion stores version without validating it. The template
// directory is not updated until SetTemplate is called.
func (m *Manager) SetTemplateVersion(version string) {
	m.templateVersion = version
}

// TemplateVersion returns the stored template version.
func (m *Manager) TemplateVersion() string {
	return m.templateVersion
}

// SetTemplate stores version when it is non-empty, then points the template
// directory at the stored version.
func (m *Manager) SetTemplate(version string) {
	if version != "" {
		m.SetTemplateVersion(version)
	}
	m.templateDir = TemplatePath(m.resourcesDir, m.templateVersion)
	m.logger.Debug("template selected", "version", m.templateVersion, "dir", m.templateDir)
}

// TemplateDir returns the selected template directory.
func (m *Manager) TemplateDir() string {
	return m.templateDir
}

// Dataset returns the in-memory dataset.
func (m *Manager) Dataset() *models.Dataset {
	return m.dataset
}

// LoadTemplate selects version (or keeps the current one when empty) and
// loads the template directory into the dataset.
func (m *Manager) LoadTemplate(version string) (*models.Dataset, error) {
	m.SetTemplate(version)
	return m.LoadDataset(m.templateDir)
}

// SaveTemplate copies the template directory tree to saveDir, selecting
// version first when it is non-empty. saveDir must not exist.
func (m *Manager) SaveTemplate(saveDir, version string) error {
	if version != "" {
		m.SetTemplate(version)
	}
	if err := fsutil.CopyTree(m.fs, m.templateDir, saveDir); err != nil {
		return err
	}
	m.logger.Debug("template saved", "dir", m.templateDir, "dest", saveDir)
	return nil
}

// LoadDataset adds every direct child of datasetPath to the dataset.
// Files with a metadata extension are parsed and stored under their name
// without the extension; other files and subdirectories are stored by path
// under their full name. Existing entries with the same key are replaced.
//
// Entries read before a failure stay in the dataset.
func (m *Manager) LoadDataset(datasetPath string) (*models.Dataset, error) {
	children, err := afero.ReadDir(m.fs, datasetPath)
	if err != nil {
		return nil, err
	}
	m.datasetPath = datasetPath

	for _, child := range children {
		name := child.Name()
		path := filepath.Join(datasetPath, name)
		stem, ext := splitName(name)

		if _, ok := m.metadataExts[ext]; ok && !child.IsDir() {
			table, err := m.parser.ParseTable(path)
			if err != nil {
				return nil, err
			}
			m.dataset.Set(stem, models.NewMetadataEntry(path, table))
			m.logger.Debug("metadata loaded", "key", stem, "path", path, "rows", table.NumRows())
			continue
		}

		m.dataset.Set(name, models.NewRawEntry(path))
		m.logger.Debug("entry loaded", "key", name, "path", path)
	}

	return m.dataset, nil
}

// SaveDataset writes the dataset into saveDir, creating it if needed.
// Metadata tables are written as comma-separated text under the original
// spreadsheet file name; entries without a table are skipped. Raw files are
// copied over existing ones and raw directories are copied as trees, which
// fails if the destination subdirectory exists. Raw paths that no longer
// exist are skipped.
//
// Entries written before a failure remain on disk.
func (m *Manager) SaveDataset(saveDir string) error {
	if m.dataset.Len() == 0 {
		return ErrEmptyDataset
	}

	if info, err := m.fs.Stat(saveDir); err != nil || !info.IsDir() {
		if err := m.fs.Mkdir(saveDir, 0o755); err != nil {
			return err
		}
	}

	for key, e := range m.dataset.All() {
		target := filepath.Join(saveDir, filepath.Base(e.Path))

		switch e.Kind {
		case models.KindMetadata:
			if e.Metadata == nil {
				m.logger.Debug("metadata without table skipped", "key", key)
				continue
			}
			if err := output.WriteCSVFile(m.fs, target, e.Metadata); err != nil {
				return err
			}

		case models.KindRaw:
			info, err := m.fs.Stat(e.Path)
			if errors.Is(err, fs.ErrNotExist) {
				m.logger.Debug("missing entry skipped", "key", key, "path", e.Path)
				continue
			} else if err != nil {
				return err
			}
			switch {
			case info.IsDir():
				err = fsutil.CopyTree(m.fs, e.Path, target)
			case info.Mode().IsRegular():
				err = fsutil.CopyFile(m.fs, e.Path, target)
			default:
				m.logger.Debug("special file skipped", "key", key, "path", e.Path)
				continue
			}
			if err != nil {
				return err
			}
		}

		m.logger.Debug("entry saved", "key", key, "kind", e.Kind, "dest", target)
	}

	return nil
}

// ListTemplateVersions returns the versions under <resources>/templates
// that contain a DatasetTemplate directory, in ascending order.
func (m *Manager) ListTemplateVersions() ([]string, error) {
	dirs, err := afero.ReadDir(m.fs, filepath.Join(m.resourcesDir, templatesDirName))
	if err != nil {
		return nil, err
	}

	var versions []string
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		version, ok := versionFromDirName(d.Name())
		if !ok {
			continue
		}
		leaf := filepath.Join(m.resourcesDir, templatesDirName, d.Name(), templateLeafName)
		if isDir, _ := afero.IsDir(m.fs, leaf); isDir {
			versions = append(versions, version)
		}
	}
	sortVersions(versions)
	return versions, nil
}

// splitName splits a file name into stem and extension the way a suffix
// check sees it: a leading dot does not start an extension, and neither
// does a trailing one.
func splitName(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i > 0 && i < len(name)-1 {
		return name[:i], name[i:]
	}
	return name, ""
}
