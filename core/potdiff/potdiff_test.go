// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package potdiff

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/vertimus/vertimus/core/cache"
)

type msg struct {
	ref, ctx, id, plural string
}

func template(date string, msgs []msg) string {
	var b strings.Builder

	fmt.Fprintf(&b, "msgid \"\"\nmsgstr \"\"\n\"Project-Id-Version: gedit\\n\"\n\"POT-Creation-Date: %s\\n\"\n", date)

	for _, m := range msgs {
		fmt.Fprintf(&b, "\n#: %s\n", m.ref)

		if m.ctx != "" {
			fmt.Fprintf(&b, "msgctxt %q\n", m.ctx)
		}

		fmt.Fprintf(&b, "msgid %q\n", m.id)

		if m.plural != "" {
			fmt.Fprintf(&b, "msgid_plural %q\nmsgstr[0] \"\"\nmsgstr[1] \"\"\n", m.plural)
		} else {
			b.WriteString("msgstr \"\"\n")
		}
	}

	return b.String()
}

func baseMessages() []msg {
	msgs := []msg{}
	for i := range 20 {
		msgs = append(msgs, msg{ref: fmt.Sprintf("src/file.c:%d", i), id: fmt.Sprintf("Message number %d", i)})
	}

	msgs = append(msgs,
		msg{ref: "src/menu.c:1", ctx: "menu", id: "Open"},
		msg{ref: "src/doc.c:2", id: "One file", plural: "%d files"},
	)

	return msgs
}

func write(t *testing.T, content string) string {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "*.pot")
	require.NoError(t, err)

	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	return f.Name()
}

func TestDiff(t *testing.T) {
	t.Parallel()

	base := baseMessages()

	moved := make([]msg, len(base))
	copy(moved, base)

	for i := range moved {
		moved[i].ref = strings.Replace(moved[i].ref, "src/", "lib/", 1)
	}

	added := append(append([]msg{}, base...),
		msg{ref: "src/new.c:1", id: "Brand new"},
		msg{ref: "src/new.c:2", id: "Another new"},
		msg{ref: "src/new.c:3", ctx: "toolbar", id: "Open"},
	)

	removed := append([]msg{}, base[1:]...)
	removed = removed[:len(removed)-1]

	swapped := append(append([]msg{}, base[2:]...), msg{ref: "x.c:1", id: "Replacement"})

	tests := []struct {
		name      string
		newPot    string
		wantKind  Kind
		wantAdded []string
	}{
		{
			name:     "Only the creation date changed",
			newPot:   template("2024-02-01", base),
			wantKind: NotChanged,
		},
		{
			name:     "References moved",
			newPot:   template("2024-02-01", moved),
			wantKind: ChangedOnlyFormatting,
		},
		{
			name:      "Messages added",
			newPot:    template("2024-02-01", added),
			wantKind:  ChangedWithAdditions,
			wantAdded: []string{`"Another new"`, `"Brand new"`, `"toolbar"::"Open"`},
		},
		{
			name:     "Messages removed",
			newPot:   template("2024-02-01", removed),
			wantKind: ChangedNoAdditions,
		},
		{
			name:      "Additions win over removals",
			newPot:    template("2024-02-01", swapped),
			wantKind:  ChangedWithAdditions,
			wantAdded: []string{`"Replacement"`},
		},
	}

	oldPath := write(t, template("2024-01-01", base))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := Diff(oldPath, write(t, tt.newPot))
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, res.Kind, res.Kind.String())
			assert.Equal(t, tt.wantAdded, res.Added)
		})
	}
}

func TestDiffIgnoresMessageOrder(t *testing.T) {
	t.Parallel()

	base := baseMessages()
	added := append(append([]msg{}, base...), msg{ref: "a.c:1", id: "Fresh"})

	rng := rand.New(rand.NewSource(42))

	for _, target := range [][]msg{base, added} {
		want, err := Diff(write(t, template("1", base)), write(t, template("2", target)))
		require.NoError(t, err)

		for range 5 {
			shuffledOld := append([]msg{}, base...)
			rng.Shuffle(len(shuffledOld), func(i, j int) { shuffledOld[i], shuffledOld[j] = shuffledOld[j], shuffledOld[i] })

			shuffledNew := append([]msg{}, target...)
			rng.Shuffle(len(shuffledNew), func(i, j int) { shuffledNew[i], shuffledNew[j] = shuffledNew[j], shuffledNew[i] })

			got, err := Diff(write(t, template("1", shuffledOld)), write(t, template("2", shuffledNew)))
			require.NoError(t, err)

			// shuffling may make an identical file look reformatted, never changed
			if want.Kind == NotChanged {
				assert.True(t, got.Kind.Unchanged())
			} else {
				assert.Equal(t, want.Kind, got.Kind)
				assert.Equal(t, want.Added, got.Added)
			}
		}
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	res := Compare([]string{`"a"`, `"b"`, `"d"`}, []string{`"b"`, `"c"`, `"d"`, `"e"`})
	assert.Equal(t, ChangedWithAdditions, res.Kind)
	assert.Equal(t, []string{`"c"`, `"e"`}, res.Added)
	assert.Equal(t, []string{`"a"`}, res.Removed)

	assert.Equal(t, ChangedOnlyFormatting, Compare([]string{`"a"`}, []string{`"a"`}).Kind)
	assert.Equal(t, ChangedNoAdditions, Compare([]string{`"a"`, `"b"`}, []string{`"b"`}).Kind)
}

func TestKeysSkipsHeaderAndObsolete(t *testing.T) {
	t.Parallel()

	keys, err := Keys([]byte(`msgid ""
msgstr "Header"

#, fuzzy
msgid "b"
msgstr "x"

msgid "a"
msgstr ""

#~ msgid "old"
#~ msgstr "vieux"
`))
	require.NoError(t, err)
	assert.Equal(t, []string{`"a"`, `"b"`}, keys)
}

func TestDifferUsesCache(t *testing.T) {
	t.Parallel()

	c, err := cache.New(8, true)
	require.NoError(t, err)

	d := &Differ{Cache: c}
	oldPath := write(t, template("1", baseMessages()))
	newPath := write(t, template("2", append(baseMessages(), msg{ref: "n.c:1", id: "New"})))

	first, err := d.Diff(oldPath, newPath)
	require.NoError(t, err)

	second, err := d.Diff(oldPath, newPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, c.Len())

	hits, _ := c.Stats()
	assert.Equal(t, int64(2), hits)
}

func TestDiffMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Diff(filepath.Join(t.TempDir(), "missing.pot"), write(t, template("1", nil)))
	assert.Error(t, err)
}
