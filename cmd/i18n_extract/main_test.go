// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

func TestBuildCatalog(t *testing.T) {
	t.Parallel()

	refs := map[message][]ref{
		{id: "Hello,"}: {{"core/workflow/notify.go", 12}, {"core/workflow/notify.go", 12}, {"a.go", 3}},
		{id: "{{.N}} string", plural: "{{.N}} strings"}: {{"b.go", 1}},
		{ctx: "state", id: "Translated"}:                {{"c.go", 9}},
	}

	c := buildCatalog(refs, "v1", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

	var sb strings.Builder
	_, err := c.WriteTo(&sb)
	require.NoError(t, err)

	out := sb.String()
	assert.Contains(t, out, `"Project-Id-Version: Vertimus v1\n"`)
	assert.Contains(t, out, `"POT-Creation-Date: 2025-03-01 10:00+0000\n"`)
	assert.Contains(t, out, "#: a.go:3 core/workflow/notify.go:12\nmsgid \"Hello,\"\nmsgstr \"\"\n")
	assert.Contains(t, out, "msgid_plural \"{{.N}} strings\"\nmsgstr[0] \"\"\nmsgstr[1] \"\"\n")
	assert.Contains(t, out, "msgctxt \"state\"\nmsgid \"Translated\"\n")

	// Entries without context sort first.
	require.Len(t, c.Entries, 3)
	assert.Equal(t, "Hello,", c.Entries[0].ID)
	assert.Equal(t, "Translated", c.Entries[2].ID)
}

const (
	fakeI18n = `package i18n

import "context"

type MsgKey string

func (k MsgKey) Tr(context.Context) string { return string(k) }

func Tr(_ context.Context, msgid string, _ ...any) string { return msgid }

func TrN(_ context.Context, singular, _ string, _ int, _ ...any) string { return singular }
`
	fakeUser = `package app

import (
	"context"

	"example.org/app/i18n"
)

const greeting = "Hello " + "world"

type spec struct {
	label i18n.MsgKey
	note  string
}

var specs = map[string]spec{
	"a": {label: "Reserve for translation", note: "ignored"},
}

var labels = []i18n.MsgKey{"Inactive"}

func show(i18n.MsgKey) {}

func run(ctx context.Context, name string) {
	_ = i18n.Tr(ctx, greeting)
	_ = i18n.Tr(ctx, name)
	_ = i18n.TrN(ctx, "{{.N}} file", "{{.N}} files", 2)
	_ = i18n.MsgKey("Committed")
	show("Proofread")
}
`
)

func TestExtract(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}

	dir := t.TempDir()
	files := map[string]string{
		"go.mod":       "module example.org/app\n\ngo 1.25\n",
		"i18n/i18n.go": fakeI18n,
		"app.go":       fakeUser,
	}

	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	pkgs, err := packages.Load(&packages.Config{Mode: packages.LoadAllSyntax, Dir: dir}, "./...")
	require.NoError(t, err)
	require.Zero(t, packages.PrintErrors(pkgs))

	refs := extract(pkgs, dir)

	var ids []string
	for m := range refs {
		ids = append(ids, m.id)
	}

	assert.ElementsMatch(t, []string{
		"Hello world",
		"Reserve for translation",
		"Inactive",
		"{{.N}} file",
		"Committed",
		"Proofread",
	}, ids)

	assert.Contains(t, refs, message{id: "{{.N}} file", plural: "{{.N}} files"})
	assert.Equal(t, "app.go", refs[message{id: "Committed"}][0].file)
}
