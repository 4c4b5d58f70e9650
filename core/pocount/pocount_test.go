// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package pocount

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/vertimus/vertimus/core/cache"
	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/shell"
)

const frPo = `msgid ""
msgstr ""
"Content-Type: text/plain; charset=UTF-8\n"

msgid "Open file"
msgstr "Ouvrir un fichier"

#, fuzzy
msgid "Save as"
msgstr "Enregistrer"

msgid "Close all windows"
msgstr ""
`

func writeFile(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fr.po")
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	require.NoError(t, os.Chmod(path, mode))

	return path
}

func msgfmt(stderr string, code int) *shell.FakeRunner {
	r := shell.NewFakeRunner()
	r.Handle("msgfmt", func(shell.Command) (*shell.Result, error) {
		return &shell.Result{Stderr: stderr, ExitCode: code}, nil
	})

	return r
}

func TestCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stderr  string
		code    int
		strict  bool
		want    [3]int
		trusted bool
		problem string
	}{
		{
			name:    "all counts",
			stderr:  "1 translated message, 1 fuzzy translation, 1 untranslated message.\n",
			want:    [3]int{1, 1, 1},
			trusted: true,
		},
		{
			name:    "subset of counts",
			stderr:  "80 translated messages.\n",
			want:    [3]int{80, 0, 0},
			trusted: true,
		},
		{
			name:    "strict check failure",
			stderr:  "fr.po:3: duplicate message definition\n2 translated messages.\n",
			code:    1,
			strict:  true,
			want:    [3]int{2, 0, 0},
			problem: "doesn't pass msgfmt check",
		},
		{
			name:    "statistics failure",
			code:    1,
			problem: "Can't get statistics",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, frPo, 0o644)
			c := New(msgfmt(tt.stderr, tt.code), nil)

			res, err := c.Count(context.Background(), path, tt.strict)
			require.NoError(t, err)

			assert.Equal(t, tt.want, [3]int{res.Translated, res.Fuzzy, res.Untranslated})
			assert.Equal(t, tt.trusted, res.Trusted)

			if tt.problem == "" {
				assert.Empty(t, res.Errors)
			} else {
				require.Len(t, res.Errors, 1)
				assert.Equal(t, model.ErrorKind, res.Errors[0].Kind)
				assert.Contains(t, res.Errors[0].Description, tt.problem)
				assert.True(t, res.HasErrors())
			}

			// Word counts come from the catalogue itself.
			assert.Equal(t, 2, res.TranslatedWords)
			assert.Equal(t, 2, res.FuzzyWords)
			assert.Equal(t, 3, res.UntranslatedWords)
		})
	}
}

func TestCountCommandLine(t *testing.T) {
	t.Parallel()

	path := writeFile(t, frPo, 0o644)
	r := msgfmt("", 0)
	c := New(r, nil)

	_, err := c.Count(context.Background(), path, true)
	require.NoError(t, err)
	_, err = c.Count(context.Background(), path, false)
	require.NoError(t, err)

	calls := r.Calls("msgfmt")
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"-cv", "-o", os.DevNull, path}, calls[0].Args)
	assert.Equal(t, []string{"--statistics", "-o", os.DevNull, path}, calls[1].Args)
	assert.Equal(t, "C", calls[0].Env["LC_ALL"])
}

func TestCountWarnings(t *testing.T) {
	t.Parallel()

	t.Run("executable bit", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, frPo, 0o755)

		res, err := New(msgfmt("3 translated messages.", 0), nil).Count(context.Background(), path, true)
		require.NoError(t, err)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, model.WarnKind, res.Errors[0].Kind)
		assert.Equal(t, "This PO file has an executable bit set.", res.Errors[0].Description)
		assert.True(t, res.Trusted)
		assert.False(t, res.HasErrors())
	})

	t.Run("not utf-8", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "msgid \"caf\xe9\"\nmsgstr \"\"\n", 0o644)

		res, err := New(msgfmt("1 untranslated message.", 0), nil).Count(context.Background(), path, true)
		require.NoError(t, err)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0].Description, "is not UTF-8 encoded")
	})
}

func TestCountMissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nope.po")

	res, err := New(msgfmt("", 0), nil).Count(context.Background(), path, false)
	require.ErrorIs(t, err, ErrMissingFile)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "PO file '"+path+"' doesn't exist.", res.Errors[0].Description)
}

func TestCountCached(t *testing.T) {
	t.Parallel()

	c, err := cache.New(8, true)
	require.NoError(t, err)

	path := writeFile(t, frPo, 0o644)
	r := msgfmt("1 translated message, 1 fuzzy translation, 1 untranslated message.", 0)
	counter := New(r, c)

	first, err := counter.Count(context.Background(), path, false)
	require.NoError(t, err)
	second, err := counter.Count(context.Background(), path, false)
	require.NoError(t, err)

	assert.Len(t, r.Calls("msgfmt"), 1)
	assert.Equal(t, first.Translated, second.Translated)
	assert.Equal(t, first.UntranslatedWords, second.UntranslatedWords)

	require.NoError(t, os.WriteFile(path, []byte(frPo+"\nmsgid \"New\"\nmsgstr \"\"\n"), 0o644))
	_, err = counter.Count(context.Background(), path, false)
	require.NoError(t, err)
	assert.Len(t, r.Calls("msgfmt"), 2)
}
