package status

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/studymirror/pkg/catalog"
	"github.com/sidkik/studymirror/pkg/config"
	"github.com/sidkik/studymirror/pkg/errors"
	"github.com/sidkik/studymirror/pkg/metadata"
)

func setup(output string) *bytes.Buffer {
	out := bytes.NewBuffer(nil)
	stdout = out
	fs = afero.NewMemMapFs()
	loadConfig = func(string) (config.Config, error) {
		cfg := config.Default()
		cfg.Output = output
		return cfg, nil
	}
	return out
}

func TestStatus(t *testing.T) {
	out := setup("/mirror")

	doc, err := metadata.Serialize(catalog.Study{
		ID:        "s1",
		Label:     "First study",
		Timestamp: time.Date(2019, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/mirror/s1-data.csv.zip", []byte("zip"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/mirror/s1-meta.json", doc, 0644))
	require.NoError(t, afero.WriteFile(fs, "/mirror/s2-data.csv.zip", []byte("zip"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/mirror/notes.txt", []byte("ignored"), 0644))

	require.NoError(t, Main(config.DefaultPath, ""))

	printed := out.String()
	assert.Contains(t, printed, "First study")
	assert.Contains(t, printed, "2019-05-01 12:00:00")
	assert.Contains(t, printed, "Complete")
	assert.Contains(t, printed, "Missing metadata")
	assert.NotContains(t, printed, "notes")
	assert.Contains(t, printed, "2 studies in /mirror (1 incomplete)")
}

func TestStatusOutputFlag(t *testing.T) {
	out := setup("/mirror")
	require.NoError(t, afero.WriteFile(fs, "/other/s9-meta.json", []byte("{"), 0644))

	require.NoError(t, Main(config.DefaultPath, "/other"))

	printed := out.String()
	assert.Contains(t, printed, "s9")
	assert.Contains(t, printed, "invalid")
	assert.Contains(t, printed, "Missing data")
}

func TestStatusEmpty(t *testing.T) {
	out := setup("/mirror")

	require.NoError(t, Main(config.DefaultPath, ""))
	assert.Equal(t, "No studies have been mirrored into /mirror.\n", out.String())
}

func TestStatusConfigError(t *testing.T) {
	setup("/mirror")
	loadConfig = func(string) (config.Config, error) {
		return config.Config{}, errors.FileNotFound{Path: "/etc/studymirror.yaml"}
	}

	err := Main("/etc/studymirror.yaml", "")
	assert.EqualError(t, err, "load config: "+
		errors.FileNotFound{Path: "/etc/studymirror.yaml"}.Error())
}
