package dataset

import (
	"cmp"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	templatesDirName    = "templates"
	templateLeafName    = "DatasetTemplate"
	templateVersionPref = "version_"
)

// NormalizeVersion turns a dotted version into its directory form: dots
// become underscores and a version without any underscore gets "_0_0"
// appended. A version with a single separator ("2.1") is not padded.
func NormalizeVersion(version string) string {
	v := strings.ReplaceAll(version, ".", "_")
	if !strings.Contains(v, "_") {
		v += "_0_0"
	}
	return v
}

// TemplateDirName returns the name of the directory holding a template
// version, e.g. "version_2_0_0".
func TemplateDirName(version string) string {
	return templateVersionPref + NormalizeVersion(version)
}

// TemplatePath returns <resourcesDir>/templates/version_<v>/DatasetTemplate.
func TemplatePath(resourcesDir, version string) string {
	return filepath.Join(resourcesDir, templatesDirName, TemplateDirName(version), templateLeafName)
}

// versionFromDirName reverses TemplateDirName.
func versionFromDirName(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, templateVersionPref)
	if !ok || rest == "" {
		return "", false
	}
	return strings.ReplaceAll(rest, "_", "."), true
}

// compareVersions orders dotted versions segment by segment, numerically
// where both segments are numbers.
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		ai, aerr := strconv.Atoi(as[i])
		bi, berr := strconv.Atoi(bs[i])
		var c int
		if aerr == nil && berr == nil {
			c = cmp.Compare(ai, bi)
		} else {
			c = strings.Compare(as[i], bs[i])
		}
		if c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

func sortVersions(versions []string) {
	slices.SortFunc(versions, compareVersions)
}
