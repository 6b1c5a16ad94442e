package seed_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosklyar/prompts-volume/internal/seed"
)

const sampleDoc = `
assistants:
  - name: chatgpt
    plans: [free, plus]
  - name: perplexity
    plans: [free, pro]
languages:
  - code: en
    name: English
  - code: de
    name: German
countries:
  - code: US
    name: United States
    languages: [en]
  - code: DE
    name: Germany
    languages: [de, en]
`

func TestParse(t *testing.T) {
	t.Parallel()
	d, err := seed.Parse([]byte(sampleDoc))
	require.NoError(t, err)

	require.Len(t, d.Assistants, 2)
	assert.Equal(t, "chatgpt", d.Assistants[0].Name)
	assert.Equal(t, []string{"free", "plus"}, d.Assistants[0].Plans)
	require.Len(t, d.Countries, 2)
	assert.Equal(t, []string{"de", "en"}, d.Countries[1].Languages)
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()
	_, err := seed.Parse([]byte("assistants: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_MergesFilesInOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01-assistants.yaml"),
		[]byte("assistants:\n  - name: chatgpt\n    plans: [free]\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02-reference.yml"),
		[]byte("languages:\n  - code: en\n    name: English\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"),
		[]byte("ignored"), 0o600))

	d, err := seed.Load(dir)
	require.NoError(t, err)
	assert.Len(t, d.Assistants, 1)
	assert.Len(t, d.Languages, 1)
	assert.Empty(t, d.Countries)
}

func TestLoad_MissingDirIsEmpty(t *testing.T) {
	t.Parallel()
	d, err := seed.Load(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, d.Assistants)
}
