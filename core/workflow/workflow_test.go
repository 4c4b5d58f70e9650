// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/notify"
	"codeberg.org/vertimus/vertimus/core/shell"
	"codeberg.org/vertimus/vertimus/core/stats"
	"codeberg.org/vertimus/vertimus/core/store/sqlite"
	"codeberg.org/vertimus/vertimus/core/vcs"
)

const translation = `msgid ""
msgstr ""
"Content-Type: text/plain; charset=UTF-8\n"

msgid "Open"
msgstr "Ouvrir"
`

type fakeCheckout struct {
	root string
}

func (f fakeCheckout) Dir(*model.Module, *model.Branch) string { return f.root }

func (f fakeCheckout) Checkout(context.Context, *model.Module, *model.Branch) (string, error) {
	return f.root, nil
}

type fakeCommitter struct {
	mu   sync.Mutex
	err  error
	reqs []vcs.CommitRequest
}

func (f *fakeCommitter) Commit(_ context.Context, req vcs.CommitRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", errors.Join(vcs.ErrCommitFailed, f.err)
	}

	f.reqs = append(f.reqs, req)

	return "0123abcd", nil
}

type fixture struct {
	wf        *Workflow
	db        *sqlite.DB
	notes     *notify.Recorder
	committer *fakeCommitter
	runner    *shell.FakeRunner
	layout    stats.Layout
	uploads   string

	module *model.Module
	branch *model.Branch
	domain *model.Domain
	lang   *model.Language
	team   *model.Team
	state  *model.State

	alice, bob, rita, carl *model.Person
}

func newFixture(t *testing.T, commitEnabled bool) *fixture {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "vertimus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:        db,
		notes:     &notify.Recorder{},
		committer: &fakeCommitter{},
		runner:    shell.NewFakeRunner(),
		layout:    stats.Layout{Root: t.TempDir()},
		uploads:   t.TempDir(),
	}

	// msgmerge output is the uploaded file unchanged.
	f.runner.Handle("msgmerge", func(cmd shell.Command) (*shell.Result, error) {
		data, err := os.ReadFile(cmd.Args[3])
		if err != nil {
			return &shell.Result{Stderr: err.Error(), ExitCode: 1}, nil
		}

		return &shell.Result{}, os.WriteFile(cmd.Args[2], data, 0o644)
	})

	f.module = &model.Module{Name: "gedit", VCSType: "git"}
	require.NoError(t, db.CreateModule(ctx, f.module))

	f.branch = &model.Branch{ModuleID: f.module.ID, Name: "main"}
	require.NoError(t, db.CreateBranch(ctx, f.branch))

	f.domain = &model.Domain{ModuleID: f.module.ID, Name: "po", Type: model.DomainUI, Directory: "po"}
	require.NoError(t, db.CreateDomain(ctx, f.domain))

	f.team = &model.Team{Name: "fr", MailingList: "gnomefr@example.org", UseWorkflow: true}
	require.NoError(t, db.CreateTeam(ctx, f.team))

	f.lang = &model.Language{Name: "French", Locale: "fr", TeamID: &f.team.ID}
	require.NoError(t, db.CreateLanguage(ctx, f.lang))

	person := func(username string, role model.RoleName) *model.Person {
		p := &model.Person{Username: username, Email: username + "@example.org", LastLogin: time.Now()}
		require.NoError(t, db.CreatePerson(ctx, p))
		require.NoError(t, db.SaveRole(ctx, &model.Role{TeamID: f.team.ID, PersonID: p.ID, Name: role, IsActive: true}))

		return p
	}

	f.alice = person("alice", model.RoleTranslator)
	f.bob = person("bob", model.RoleTranslator)
	f.rita = person("rita", model.RoleReviewer)
	f.carl = person("carl", model.RoleCommitter)

	f.wf = New(Options{
		Store:            db,
		Runner:           f.runner,
		Checkout:         fakeCheckout{root: t.TempDir()},
		Committer:        f.committer,
		CommitEnabled:    commitEnabled,
		Notifier:         f.notes,
		SiteURL:          "https://l10n.example.org",
		Layout:           f.layout,
		UploadDir:        f.uploads,
		ArchiveRetention: 365 * 24 * time.Hour,
		RoleInactivity:   180 * 24 * time.Hour,
	})

	f.state, err = f.wf.StateFor(ctx, f.branch, f.domain, f.lang)
	require.NoError(t, err)
	assert.Equal(t, model.StateNone, f.state.Name)

	return f
}

func (f *fixture) upload(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fr.po")
	require.NoError(t, os.WriteFile(path, []byte(translation), 0o644))

	return path
}

func (f *fixture) apply(t *testing.T, p *model.Person, action model.ActionName) *model.State {
	t.Helper()

	req := Request{StateID: f.state.ID, Person: p, Action: action}
	if actionSpecs[action].needsFile {
		req.File = f.upload(t)
	}

	st, err := f.wf.Apply(context.Background(), req)
	require.NoError(t, err, "applying %s", action)

	return st
}

func (f *fixture) liveActions(t *testing.T) []model.Action {
	t.Helper()

	actions, err := f.db.ListActions(context.Background(), f.state.ID)
	require.NoError(t, err)

	return actions
}

func (f *fixture) writeTemplate(t *testing.T) string {
	t.Helper()

	pot := f.layout.PotPath(f.module, f.branch, f.domain)
	require.NoError(t, os.MkdirAll(filepath.Dir(pot), 0o755))
	require.NoError(t, os.WriteFile(pot, []byte("msgid \"\"\nmsgstr \"\"\n\nmsgid \"Open\"\nmsgstr \"\"\n"), 0o644))

	return pot
}

func TestReservationExcludesOthers(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	ctx := context.Background()

	st := f.apply(t, f.alice, model.ActionReserveTranslation)
	assert.Equal(t, model.StateTranslating, st.Name)
	require.NotNil(t, st.PersonID)
	assert.Equal(t, f.alice.ID, *st.PersonID)

	_, err := f.wf.Apply(ctx, Request{StateID: f.state.ID, Person: f.bob, Action: model.ActionUploadTranslation, File: f.upload(t)})
	require.ErrorIs(t, err, ErrActionNotAllowed)

	stored, err := f.db.GetState(ctx, f.state.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateTranslating, stored.Name)
	assert.Equal(t, f.alice.ID, *stored.PersonID)
	assert.Len(t, f.liveActions(t), 1)

	actions, err := f.wf.AvailableActions(ctx, f.state.ID, f.bob)
	require.NoError(t, err)
	assert.Equal(t, []model.ActionName{model.ActionWriteComment}, actions)

	_, err = f.wf.Apply(ctx, Request{StateID: f.state.ID, Person: f.alice, Action: model.ActionUploadTranslation})
	require.ErrorIs(t, err, ErrFileRequired)

	_, err = f.wf.Apply(ctx, Request{StateID: f.state.ID, Person: f.alice, Action: "XX"})
	require.ErrorIs(t, err, ErrActionNotAllowed)
}

func TestUndo(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	f.apply(t, f.alice, model.ActionReserveTranslation)
	f.apply(t, f.alice, model.ActionUploadTranslation)
	f.apply(t, f.alice, model.ActionReserveTranslation)

	st := f.apply(t, f.alice, model.ActionUndo)
	assert.Equal(t, model.StateTranslated, st.Name)
	assert.Equal(t, f.alice.ID, *st.PersonID)

	f.apply(t, f.rita, model.ActionReserveProofread)
	f.apply(t, f.bob, model.ActionWriteComment)

	st = f.apply(t, f.rita, model.ActionUndo)
	assert.Equal(t, model.StateTranslated, st.Name, "the earlier undo pair is skipped")
	assert.Equal(t, f.alice.ID, *st.PersonID)

	assert.Len(t, f.liveActions(t), 7)
}

func TestUndoToNone(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	f.apply(t, f.alice, model.ActionReserveTranslation)

	st := f.apply(t, f.alice, model.ActionUndo)
	assert.Equal(t, model.StateNone, st.Name)
	assert.Nil(t, st.PersonID)
}

func TestUploadStoresAndNotifies(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	f.writeTemplate(t)

	f.apply(t, f.alice, model.ActionReserveTranslation)
	assert.Empty(t, f.notes.Messages())

	f.apply(t, f.alice, model.ActionUploadTranslation)

	actions := f.liveActions(t)
	require.Len(t, actions, 2)

	ut := actions[1]
	assert.FileExists(t, filepath.Join(f.uploads, ut.File))
	require.NotEmpty(t, ut.MergedFile)
	assert.FileExists(t, filepath.Join(f.uploads, ut.MergedFile))

	notes := f.notes.Messages()
	require.Len(t, notes, 1)
	assert.Equal(t, []string{"gnomefr@example.org"}, notes[0].To)
	assert.Equal(t, "gedit - main", notes[0].Subject)
	assert.Contains(t, notes[0].Body, "is now 'Translated'")
	assert.Contains(t, notes[0].Body, "https://l10n.example.org/vertimus/gedit/main/po/fr")
	assert.Equal(t, "alice@example.org", notes[0].ReplyTo)
}

func TestReadyToCommitNotifiesCommitters(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	f.apply(t, f.alice, model.ActionReserveTranslation)
	f.apply(t, f.alice, model.ActionUploadTranslation)
	f.apply(t, f.rita, model.ActionReserveProofread)
	f.apply(t, f.rita, model.ActionUploadProofread)
	f.notes.Reset()

	st := f.apply(t, f.rita, model.ActionReadyToCommit)
	assert.Equal(t, model.StateToCommit, st.Name)

	notes := f.notes.Messages()
	require.Len(t, notes, 1)
	assert.Equal(t, []string{"carl@example.org"}, notes[0].To)
}

func TestCommentNotifiesOtherActors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	f.apply(t, f.alice, model.ActionReserveTranslation)

	req := Request{StateID: f.state.ID, Person: f.bob, Action: model.ActionWriteComment, Comment: "Need help?"}
	st, err := f.wf.Apply(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, model.StateTranslating, st.Name, "comments keep the state")
	assert.Equal(t, f.alice.ID, *st.PersonID)

	notes := f.notes.Messages()
	require.Len(t, notes, 1)
	assert.Equal(t, []string{"alice@example.org"}, notes[0].To)
	assert.Contains(t, notes[0].Body, "Need help?")
}

func TestSubmitCommitsAndArchives(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.writeTemplate(t)
	ctx := context.Background()

	f.apply(t, f.alice, model.ActionReserveTranslation)
	f.apply(t, f.alice, model.ActionUploadTranslation)
	f.apply(t, f.carl, model.ActionReadyToCommit)

	actions, err := f.wf.AvailableActions(ctx, f.state.ID, f.carl)
	require.NoError(t, err)
	assert.Contains(t, actions, model.ActionSubmitToRepository)

	uploaded := f.liveActions(t)[1]
	f.notes.Reset()

	st := f.apply(t, f.carl, model.ActionSubmitToRepository)
	assert.Equal(t, model.StateNone, st.Name)
	assert.Nil(t, st.PersonID)

	require.Len(t, f.committer.reqs, 1)
	req := f.committer.reqs[0]
	assert.Equal(t, filepath.Join("po", "fr.po"), req.Dest)
	assert.Equal(t, filepath.Join(f.uploads, uploaded.MergedFile), req.Source)
	assert.Equal(t, "carl@example.org", req.Author.Email)
	assert.Equal(t, "Update French translation", req.Message)

	assert.Empty(t, f.liveActions(t))

	sequences, err := f.wf.ArchivedSequences(ctx, f.state.ID)
	require.NoError(t, err)
	require.Len(t, sequences, 1)

	archived, err := f.db.ListArchivedActions(ctx, sequences[0])
	require.NoError(t, err)

	names := make([]model.ActionName, 0, len(archived))
	for _, a := range archived {
		names = append(names, a.Name)
	}

	assert.Equal(t, []model.ActionName{"RT", "UT", "TC", "CI", "AA"}, names)
	assert.FileExists(t, filepath.Join(f.uploads, uploaded.File), "archived uploads are kept")

	notes := f.notes.Messages()
	require.Len(t, notes, 1)
	assert.Equal(t, []string{"gnomefr@example.org"}, notes[0].To)
	assert.Contains(t, notes[0].Body, "is now 'Committed'")
}

func TestSubmitFailureChangesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.committer.err = errors.New("push rejected")

	f.apply(t, f.alice, model.ActionReserveTranslation)
	f.apply(t, f.alice, model.ActionUploadTranslation)
	f.apply(t, f.carl, model.ActionReadyToCommit)

	_, err := f.wf.Apply(context.Background(), Request{StateID: f.state.ID, Person: f.carl, Action: model.ActionSubmitToRepository})
	require.ErrorIs(t, err, ErrCommitFailed)

	stored, err := f.db.GetState(context.Background(), f.state.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateToCommit, stored.Name)
	assert.Len(t, f.liveActions(t), 3)
}

func TestSubmitRequiresWritableBranch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	f.apply(t, f.alice, model.ActionReserveTranslation)
	f.apply(t, f.alice, model.ActionUploadTranslation)
	f.apply(t, f.carl, model.ActionReadyToCommit)

	_, err := f.wf.Apply(context.Background(), Request{StateID: f.state.ID, Person: f.carl, Action: model.ActionSubmitToRepository})
	require.ErrorIs(t, err, ErrActionNotAllowed)
	assert.Empty(t, f.committer.reqs)

	st := f.apply(t, f.carl, model.ActionReserveCommit)
	assert.Equal(t, model.StateCommitting, st.Name)

	st = f.apply(t, f.carl, model.ActionInformCommitted)
	assert.Equal(t, model.StateNone, st.Name, "reaching Committed archives")
	assert.Empty(t, f.liveActions(t))
}

func TestArchiveNow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	ctx := context.Background()

	f.apply(t, f.alice, model.ActionReserveTranslation)
	f.apply(t, f.bob, model.ActionWriteComment)

	before := len(f.liveActions(t))

	st := f.apply(t, f.carl, model.ActionArchive)
	assert.Equal(t, model.StateNone, st.Name)
	assert.Empty(t, f.liveActions(t))

	sequences, err := f.wf.ArchivedSequences(ctx, f.state.ID)
	require.NoError(t, err)
	require.Len(t, sequences, 1)

	archived, err := f.db.ListArchivedActions(ctx, sequences[0])
	require.NoError(t, err)
	assert.Len(t, archived, before+1)
	assert.Equal(t, sequences[0], archived[0].ID, "the sequence is the first archived row")

	history, err := f.wf.ActionHistory(ctx, f.state.ID, &sequences[0])
	require.NoError(t, err)
	assert.Len(t, history, before+1)
}

func TestRoleReactivated(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.db.SaveRole(ctx, &model.Role{TeamID: f.team.ID, PersonID: f.alice.ID, Name: model.RoleTranslator}))

	f.apply(t, f.alice, model.ActionReserveTranslation)

	role, err := f.db.GetRole(ctx, f.team.ID, f.alice.ID)
	require.NoError(t, err)
	assert.True(t, role.IsActive)
}

func TestActionHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	f.apply(t, f.alice, model.ActionReserveTranslation)
	f.apply(t, f.alice, model.ActionUploadTranslation)
	f.apply(t, f.alice, model.ActionReserveTranslation)
	f.apply(t, f.alice, model.ActionUploadTranslation)

	history, err := f.wf.ActionHistory(context.Background(), f.state.ID, nil)
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.Empty(t, history[0].Files)
	require.Len(t, history[1].Files, 1)
	assert.Equal(t, history[1].Action.ID, history[1].Files[0].ID)
	require.Len(t, history[2].Files, 1)
	require.Len(t, history[3].Files, 2)
	assert.Equal(t, history[3].Action.ID, history[3].Files[0].ID, "newest first")
	assert.Equal(t, history[1].Action.ID, history[3].Files[1].ID)
}

func TestRefreshMergedFiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	f.apply(t, f.alice, model.ActionReserveTranslation)
	f.apply(t, f.alice, model.ActionUploadTranslation)

	ut := f.liveActions(t)[1]
	assert.Empty(t, ut.MergedFile, "no template yet")

	pot := f.writeTemplate(t)
	require.NoError(t, f.wf.RefreshMergedFiles(context.Background(), f.branch, f.domain, pot))

	ut = f.liveActions(t)[1]
	require.NotEmpty(t, ut.MergedFile)
	assert.FileExists(t, filepath.Join(f.uploads, ut.MergedFile))
	assert.Len(t, f.runner.Calls("msgmerge"), 1)
}

func TestMaintenance(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	ctx := context.Background()

	f.apply(t, f.alice, model.ActionReserveTranslation)
	f.apply(t, f.alice, model.ActionUploadTranslation)

	file := filepath.Join(f.uploads, f.liveActions(t)[1].File)

	f.apply(t, f.carl, model.ActionArchive)

	n, err := f.wf.PurgeArchives(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.wf.PurgeArchives(ctx, time.Now().Add(400*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, file)

	sequences, err := f.wf.ArchivedSequences(ctx, f.state.ID)
	require.NoError(t, err)
	assert.Empty(t, sequences)

	f.bob.LastLogin = time.Now().Add(-200 * 24 * time.Hour)
	require.NoError(t, f.db.UpdatePerson(ctx, f.bob))

	n, err = f.wf.DeactivateIdleRoles(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	role, err := f.db.GetRole(ctx, f.team.ID, f.bob.ID)
	require.NoError(t, err)
	assert.False(t, role.IsActive)
}
