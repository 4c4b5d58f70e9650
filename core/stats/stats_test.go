// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/notify"
	"codeberg.org/vertimus/vertimus/core/pofile"
	"codeberg.org/vertimus/vertimus/core/potdiff"
	"codeberg.org/vertimus/vertimus/core/shell"
	"codeberg.org/vertimus/vertimus/core/store"
	"codeberg.org/vertimus/vertimus/core/store/sqlite"
)

type msg struct {
	id, str, ref string
	fuzzy        bool
}

func catalog(msgs []msg) string {
	var b strings.Builder

	b.WriteString("msgid \"\"\nmsgstr \"\"\n\"Content-Type: text/plain; charset=UTF-8\\n\"\n")

	for _, m := range msgs {
		b.WriteString("\n")

		if m.ref != "" {
			b.WriteString("#: " + m.ref + "\n")
		}

		if m.fuzzy {
			b.WriteString("#, fuzzy\n")
		}

		fmt.Fprintf(&b, "msgid %s\nmsgstr %s\n", pofile.Quote(m.id), pofile.Quote(m.str))
	}

	return b.String()
}

// template returns n messages; the last schemas ones come from a
// settings schema.
func template(n, schemas int) []msg {
	out := make([]msg, 0, n)

	for i := range n {
		ref := fmt.Sprintf("src/window.c:%d", i+1)
		if i >= n-schemas {
			ref = fmt.Sprintf("data/org.example.gschema.xml.in:%d", i+1)
		}

		out = append(out, msg{id: fmt.Sprintf("Message %03d", i), ref: ref})
	}

	return out
}

// translate fills the first tr messages and marks the next fz fuzzy.
func translate(tmpl []msg, tr, fz int) []msg {
	out := make([]msg, len(tmpl))

	for i, m := range tmpl {
		switch {
		case i < tr:
			m.str = "Traduit " + m.id
		case i < tr+fz:
			m.str, m.fuzzy = "Flou "+m.id, true
		}

		out[i] = m
	}

	return out
}

// gettext fakes the tools with the pofile package.
func gettext(t *testing.T) *shell.FakeRunner {
	t.Helper()

	r := shell.NewFakeRunner()

	r.Handle("msgfmt", func(cmd shell.Command) (*shell.Result, error) {
		cat, err := pofile.ParseFile(cmd.Args[len(cmd.Args)-1])
		if err != nil {
			return &shell.Result{Stderr: err.Error(), ExitCode: 1}, nil
		}

		c := cat.Count()

		return &shell.Result{Stderr: fmt.Sprintf("%d translated messages, %d fuzzy translations, %d untranslated messages.\n",
			c.Translated, c.Fuzzy, c.Untranslated)}, nil
	})

	r.Handle("msgmerge", func(cmd shell.Command) (*shell.Result, error) {
		// --previous -o <out> <po> <pot>
		out, po, pot := cmd.Args[2], cmd.Args[3], cmd.Args[4]

		potCat, err := pofile.ParseFile(pot)
		if err != nil {
			return &shell.Result{Stderr: err.Error(), ExitCode: 1}, nil
		}

		poCat, err := pofile.ParseFile(po)
		if err != nil {
			return &shell.Result{Stderr: err.Error(), ExitCode: 1}, nil
		}

		known := map[string]*pofile.Entry{}
		for _, e := range poCat.Active() {
			known[e.Key()] = e
		}

		merged := &pofile.Catalog{Header: poCat.Header}

		for _, e := range potCat.Active() {
			n := *e
			if old, ok := known[e.Key()]; ok {
				n.Str, n.Flags = old.Str, old.Flags
			}

			merged.Entries = append(merged.Entries, &n)
		}

		if err := merged.WriteFile(out); err != nil {
			return nil, err
		}

		return &shell.Result{}, nil
	})

	r.Handle("intltool-update", func(cmd shell.Command) (*shell.Result, error) {
		if cmd.Args[0] != "-g" {
			return &shell.Result{}, nil
		}

		src, err := os.ReadFile(filepath.Join(cmd.Dir, "source.pot"))
		if err != nil {
			return &shell.Result{Stderr: "no source", ExitCode: 1}, nil
		}

		return &shell.Result{}, os.WriteFile(filepath.Join(cmd.Dir, cmd.Args[1]+".pot"), src, 0o644)
	})

	return r
}

type fakeCheckout struct {
	root string
}

func (f fakeCheckout) Dir(*model.Module, *model.Branch) string { return f.root }

func (f fakeCheckout) Checkout(context.Context, *model.Module, *model.Branch) (string, error) {
	return f.root, nil
}

type env struct {
	engine   *Engine
	db       *sqlite.DB
	runner   *shell.FakeRunner
	notes    *notify.Recorder
	root     string
	podir    string
	module   *model.Module
	branch   *model.Branch
	domain   *model.Domain
	uploaded *uploadSpy
}

type uploadSpy struct {
	calls []string
}

func (u *uploadSpy) RefreshMergedFiles(_ context.Context, _ *model.Branch, _ *model.Domain, potPath string) error {
	u.calls = append(u.calls, potPath)

	return nil
}

func newEnv(t *testing.T, frozen bool) *env {
	t.Helper()

	ctx := context.Background()
	root := t.TempDir()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "vertimus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{
		db:       db,
		runner:   gettext(t),
		notes:    &notify.Recorder{},
		root:     root,
		podir:    filepath.Join(root, "po"),
		uploaded: &uploadSpy{},
	}

	require.NoError(t, os.MkdirAll(e.podir, 0o755))

	e.module = &model.Module{Name: "gedit", VCSType: "git"}
	require.NoError(t, db.CreateModule(ctx, e.module))

	e.branch = &model.Branch{ModuleID: e.module.ID, Name: "main"}
	require.NoError(t, db.CreateBranch(ctx, e.branch))

	e.domain = &model.Domain{ModuleID: e.module.ID, Name: "po", Type: model.DomainUI, Directory: "po"}
	require.NoError(t, db.CreateDomain(ctx, e.domain))

	release := &model.Release{Name: "gnome-48", StringFrozen: frozen, Status: model.ReleaseOfficial}
	require.NoError(t, db.CreateRelease(ctx, release))
	require.NoError(t, db.SaveCategory(ctx, &model.Category{ReleaseID: release.ID, BranchID: e.branch.ID, Name: "desktop"}))

	e.engine = New(Options{
		Store:           db,
		Runner:          e.runner,
		Checkout:        fakeCheckout{root: root},
		Notifier:        e.notes,
		NotificationsTo: []string{"i18n@example.org"},
		SiteURL:         "https://l10n.example.org",
		Uploads:         e.uploaded,
		PotDir:          filepath.Join(t.TempDir(), "pot"),
	})

	return e
}

func (e *env) write(t *testing.T, name string, msgs []msg) {
	t.Helper()

	path := filepath.Join(e.podir, name)
	require.NoError(t, os.WriteFile(path, []byte(catalog(msgs)), 0o644))

	// Merged files must look newer than their sources.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))
}

func (e *env) stats(t *testing.T, locale string) *model.Statistics {
	t.Helper()

	ctx := context.Background()

	var langID *model.ID

	if locale != "" {
		lang, err := e.db.GetLanguageByLocale(ctx, locale)
		require.NoError(t, err)

		langID = &lang.ID
	}

	st, err := e.db.GetStatistics(ctx, e.branch.ID, e.domain.ID, langID)
	require.NoError(t, err)

	return st
}

func descriptions(st *model.Statistics) []string {
	var out []string
	for _, i := range st.Information {
		out = append(out, i.Description)
	}

	return out
}

func TestUpdateDomainStatsCounts(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	tmpl := template(100, 0)

	e.write(t, "source.pot", tmpl)
	e.write(t, "fr.po", translate(tmpl, 80, 5))

	out, err := e.engine.UpdateDomainStats(context.Background(), e.branch, e.domain, false)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Languages)

	pot := e.stats(t, "")
	assert.Equal(t, 100, pot.Full.Total())
	assert.Equal(t, e.engine.Layout().PotPath(e.module, e.branch, e.domain), pot.Full.Path)
	assert.FileExists(t, pot.Full.Path)

	fr := e.stats(t, "fr")
	assert.Equal(t, 80, fr.Full.Translated)
	assert.Equal(t, 5, fr.Full.Fuzzy)
	assert.Equal(t, 15, fr.Full.Untranslated)
	assert.Equal(t, 80, fr.Summary(pot.Full.Total()).TrPercent)

	// Without a filter the reduced view is the full snapshot.
	require.NotNil(t, fr.PartPoID)
	assert.Equal(t, *fr.FullPoID, *fr.PartPoID)

	lang, err := e.db.GetLanguageByLocale(context.Background(), "fr")
	require.NoError(t, err)
	assert.Equal(t, "French", lang.Name)
}

func TestUpdateDomainStatsSkipsUnchanged(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	tmpl := template(10, 0)

	e.write(t, "source.pot", tmpl)
	e.write(t, "fr.po", translate(tmpl, 5, 0))
	// A declared language carries no external problem forcing a recheck.
	require.NoError(t, os.WriteFile(filepath.Join(e.podir, "LINGUAS"), []byte("fr\n"), 0o644))

	ctx := context.Background()

	_, err := e.engine.UpdateDomainStats(ctx, e.branch, e.domain, false)
	require.NoError(t, err)
	assert.Empty(t, e.stats(t, "fr").Information)

	out, err := e.engine.UpdateDomainStats(ctx, e.branch, e.domain, false)
	require.NoError(t, err)
	assert.Equal(t, potdiff.NotChanged, out.Change)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, 0, out.Languages)
	assert.Len(t, e.runner.Calls("msgmerge"), 1)

	out, err = e.engine.UpdateDomainStats(ctx, e.branch, e.domain, true)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Languages, "forced runs recompute")
}

func TestStringFreezeNotification(t *testing.T) {
	t.Parallel()

	e := newEnv(t, true)
	tmpl := template(20, 0)

	e.write(t, "source.pot", tmpl)
	e.write(t, "fr.po", translate(tmpl, 20, 0))

	ctx := context.Background()

	_, err := e.engine.UpdateDomainStats(ctx, e.branch, e.domain, false)
	require.NoError(t, err)
	assert.Empty(t, e.notes.Messages(), "no previous template, nothing to compare")

	added := append(tmpl, msg{id: "New one"}, msg{id: "New two"}, msg{id: "New three"})
	e.write(t, "source.pot", added)

	out, err := e.engine.UpdateDomainStats(ctx, e.branch, e.domain, false)
	require.NoError(t, err)

	assert.Equal(t, potdiff.ChangedWithAdditions, out.Change)
	assert.Len(t, out.Added, 3)

	notes := e.notes.Messages()
	require.Len(t, notes, 1)
	assert.Equal(t, "String additions to 'gedit.main'", notes[0].Subject)
	assert.Equal(t, []string{"i18n@example.org"}, notes[0].To)

	for _, id := range []string{"New one", "New two", "New three"} {
		assert.Contains(t, notes[0].Body, pofile.Quote(id))
	}

	assert.Len(t, e.uploaded.calls, 1, "uploads are re-merged after additions")

	fr := e.stats(t, "fr")
	assert.Equal(t, 20, fr.Full.Translated)
	assert.Equal(t, 3, fr.Full.Untranslated)
}

func TestNoNotificationOutsideFreeze(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	tmpl := template(20, 0)
	ctx := context.Background()

	e.write(t, "source.pot", tmpl)
	_, err := e.engine.UpdateDomainStats(ctx, e.branch, e.domain, false)
	require.NoError(t, err)

	e.write(t, "source.pot", append(tmpl, msg{id: "A"}, msg{id: "B"}))
	out, err := e.engine.UpdateDomainStats(ctx, e.branch, e.domain, false)
	require.NoError(t, err)

	assert.Equal(t, potdiff.ChangedWithAdditions, out.Change)
	assert.Empty(t, e.notes.Messages())
}

func TestReducedStatistics(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	e.domain.RedFilter = "data/*.gschema.xml.in\n"

	tmpl := template(10, 4)
	e.write(t, "source.pot", tmpl)
	e.write(t, "fr.po", translate(tmpl, 6, 0))

	_, err := e.engine.UpdateDomainStats(context.Background(), e.branch, e.domain, false)
	require.NoError(t, err)

	pot := e.stats(t, "")
	require.NotNil(t, pot.Part)
	assert.Equal(t, 6, pot.Part.Total())
	assert.NotEqual(t, *pot.FullPoID, *pot.PartPoID)

	fr := e.stats(t, "fr")
	assert.Equal(t, 6, fr.Part.Translated)
	assert.Equal(t, 0, fr.Part.Untranslated)
	assert.Equal(t, 100, fr.PartSummary(pot.Part.Total()).TrPercent)
}

func TestReducedStatisticsSharedWhenFilterRemovesNothing(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	e.domain.RedFilter = "data/*.desktop.in"

	tmpl := template(10, 4)
	e.write(t, "source.pot", tmpl)
	e.write(t, "fr.po", translate(tmpl, 6, 0))

	_, err := e.engine.UpdateDomainStats(context.Background(), e.branch, e.domain, false)
	require.NoError(t, err)

	fr := e.stats(t, "fr")
	assert.Equal(t, *fr.FullPoID, *fr.PartPoID)
	assert.NoFileExists(t, Reduced(fr.Full.Path))
}

func TestLinguasWarning(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	tmpl := template(5, 0)

	e.write(t, "source.pot", tmpl)
	e.write(t, "fr.po", translate(tmpl, 5, 0))
	e.write(t, "de.po", translate(tmpl, 2, 0))
	require.NoError(t, os.WriteFile(filepath.Join(e.podir, "LINGUAS"), []byte("# languages\nfr\n"), 0o644))

	_, err := e.engine.UpdateDomainStats(context.Background(), e.branch, e.domain, false)
	require.NoError(t, err)

	assert.Empty(t, e.stats(t, "fr").Information)

	de := e.stats(t, "de")
	require.Len(t, de.Information, 1)
	assert.Equal(t, model.WarnExternalKind, de.Information[0].Kind)
	assert.True(t, de.HasExternalProblem())

	merges := len(e.runner.Calls("msgmerge"))

	// External problems force a recheck even when nothing changed.
	out, err := e.engine.UpdateDomainStats(context.Background(), e.branch, e.domain, false)
	require.NoError(t, err)
	assert.Equal(t, potdiff.NotChanged, out.Change)
	assert.Equal(t, 1, out.Languages)
	assert.Equal(t, 1, out.Skipped)
	assert.Len(t, e.runner.Calls("msgmerge"), merges+1, "only de is merged again")
}

func TestVanishedLanguageAndDomain(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	tmpl := template(5, 0)
	ctx := context.Background()

	e.write(t, "source.pot", tmpl)
	e.write(t, "fr.po", translate(tmpl, 5, 0))
	e.write(t, "de.po", translate(tmpl, 2, 0))

	_, err := e.engine.UpdateDomainStats(ctx, e.branch, e.domain, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(e.podir, "de.po")))

	_, err = e.engine.UpdateDomainStats(ctx, e.branch, e.domain, false)
	require.NoError(t, err)

	rows, err := e.db.ListStatistics(ctx, []model.ID{e.branch.ID}, e.domain.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "template and fr")

	require.NoError(t, os.RemoveAll(e.podir))

	out, err := e.engine.UpdateDomainStats(ctx, e.branch, e.domain, false)
	require.NoError(t, err)
	assert.True(t, out.Removed)

	rows, err = e.db.ListStatistics(ctx, []model.ID{e.branch.ID}, e.domain.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTemplateGenerationFailure(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	ctx := context.Background()

	_, err := e.engine.UpdateDomainStats(ctx, e.branch, e.domain, false)
	require.ErrorIs(t, err, ErrTemplateGeneration)

	pot := e.stats(t, "")
	assert.Nil(t, pot.Full)

	h, ok := pot.Headline()
	require.True(t, ok)
	assert.Equal(t, model.ErrorKind, h.Kind)
	assert.Contains(t, h.Description, "Error regenerating POT file for gedit")

	tmpl := template(5, 0)
	e.write(t, "source.pot", tmpl)

	_, err = e.engine.UpdateDomainStats(ctx, e.branch, e.domain, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(e.podir, "source.pot")))
	require.NoError(t, os.Remove(filepath.Join(e.podir, "gedit.pot")))

	out, err := e.engine.UpdateDomainStats(ctx, e.branch, e.domain, false)
	require.NoError(t, err, "the previous template is used")
	assert.Equal(t, potdiff.NotChanged, out.Change)

	pot = e.stats(t, "")
	assert.Equal(t, 5, pot.Full.Total())
	assert.Contains(t, descriptions(pot), "Can't generate POT file, using old one.")
}

func TestUpdateBranchRefreshesDoap(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	e.write(t, "source.pot", template(3, 0))

	doapFile := `<Project xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:foaf="http://xmlns.com/foaf/0.1/" xmlns="http://usefulinc.com/ns/doap#">
  <homepage rdf:resource="https://apps.example.org/gedit" />
  <maintainer><foaf:Person><foaf:name>Jane Doe</foaf:name><foaf:mbox rdf:resource="mailto:jane@example.org" /></foaf:Person></maintainer>
</Project>`
	require.NoError(t, os.WriteFile(filepath.Join(e.root, "gedit.doap"), []byte(doapFile), 0o644))

	ctx := context.Background()

	outcomes, err := e.engine.UpdateBranch(ctx, e.branch, false)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	maintainers, err := e.db.ListMaintainers(ctx, e.module.ID)
	require.NoError(t, err)
	require.Len(t, maintainers, 1)
	assert.Equal(t, "jane@example.org", maintainers[0].Email)

	b, err := e.db.GetBranch(ctx, e.branch.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, b.FileHashes["gedit.doap"])

	m, err := e.db.GetModule(ctx, e.module.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://apps.example.org/gedit", m.Homepage)
}

func TestUpdateAll(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	e.write(t, "source.pot", template(3, 0))
	e.write(t, "fr.po", translate(template(3, 0), 3, 0))

	require.NoError(t, e.engine.UpdateAll(context.Background(), false))

	assert.Equal(t, 3, e.stats(t, "fr").Full.Translated)

	e.engine.UpdateBranchAsync(context.Background(), e.branch, true)
	e.engine.Wait()

	assert.Len(t, e.runner.Calls("msgmerge"), 2)
}

func TestUpdateBranchAsyncCancelled(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	e.write(t, "source.pot", template(3, 0))
	e.write(t, "fr.po", translate(template(3, 0), 3, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e.engine.UpdateBranchAsync(ctx, e.branch, true)
	e.engine.Wait()

	assert.Empty(t, e.runner.Calls("msgmerge"))

	_, err := e.db.GetLanguageByLocale(context.Background(), "fr")
	require.ErrorIs(t, err, store.ErrNotFound, "nothing was recorded")
}
