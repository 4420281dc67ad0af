package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seedResources(t *testing.T) string {
	t.Helper()
	resources := filepath.Join(t.TempDir(), "resources")
	dir := filepath.Join(resources, "templates", "version_2_0_0", "DatasetTemplate")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "primary"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("readme"), 0o644))

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"id", "name"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{1, "a"}))
	require.NoError(t, f.SaveAs(filepath.Join(dir, "samples.xlsx")))
	return resources
}

func TestTemplateVersions(t *testing.T) {
	resources := seedResources(t)

	out, err := execute(t, "--resources-dir", resources, "template", "versions")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0\n", out)
}

func TestTemplateShowJSON(t *testing.T) {
	resources := seedResources(t)

	out, err := execute(t, "--resources-dir", resources, "template", "show", "--json")
	require.NoError(t, err)

	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e["key"].(string))
	}
	assert.ElementsMatch(t, []string{"README.md", "primary", "samples"}, keys)
}

func TestTemplateSaveAndConvert(t *testing.T) {
	resources := seedResources(t)
	work := t.TempDir()
	copyDir := filepath.Join(work, "copy")
	outDir := filepath.Join(work, "out")

	_, err := execute(t, "--resources-dir", resources, "template", "save", copyDir)
	require.NoError(t, err)

	out, err := execute(t, "--resources-dir", resources, "convert", copyDir, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "saved 3 entries")

	data, err := os.ReadFile(filepath.Join(outDir, "samples.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, ",id,name\n0,1,a\n", string(data))

	_, err = execute(t, "--resources-dir", resources, "template", "save", copyDir)
	assert.Error(t, err)
}

func TestShowTable(t *testing.T) {
	resources := seedResources(t)
	dir := filepath.Join(resources, "templates", "version_2_0_0", "DatasetTemplate")

	out, err := execute(t, "show", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "samples")
	assert.Contains(t, out, "metadata")
}

func TestConfigFile(t *testing.T) {
	resources := seedResources(t)
	cfg := filepath.Join(t.TempDir(), "dataset.yaml")
	content := "resources_dir: " + resources + "\ntemplate_version: \"2\"\nlog_level: error\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o644))

	out, err := execute(t, "--config", cfg, "template", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "samples")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "template", "versions")
	assert.Error(t, err)
}
