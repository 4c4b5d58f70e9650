// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package doap

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/store/sqlite"
)

const geditDoap = `<?xml version="1.0" encoding="UTF-8"?>
<Project xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:foaf="http://xmlns.com/foaf/0.1/"
         xmlns:gnome="http://api.gnome.org/doap-extensions#"
         xmlns="http://usefulinc.com/ns/doap#">
  <name xml:lang="en">gedit</name>
  <shortdesc xml:lang="en">Text editor</shortdesc>
  <homepage rdf:resource="https://wiki.example.org/Apps/Gedit" />
  <category rdf:resource="http://api.gnome.org/doap-extensions#apps" />
  <maintainer>
    <foaf:Person>
      <foaf:name>Paolo Borelli</foaf:name>
      <foaf:mbox rdf:resource="mailto:pborelli%40example.org" />
      <foaf:homepage rdf:resource="https://paolo.example.org" />
      <gnome:userid>pborelli</gnome:userid>
    </foaf:Person>
  </maintainer>
  <maintainer>
    <foaf:Person>
      <foaf:name>Jesse van den Kieboom</foaf:name>
      <foaf:mbox rdf:resource="mailto:jessevdk@example.org" />
      <gnome:userid>jessevdk</gnome:userid>
    </foaf:Person>
  </maintainer>
</Project>
`

func TestParse(t *testing.T) {
	t.Parallel()

	p, err := Parse(strings.NewReader(geditDoap))
	require.NoError(t, err)

	assert.Equal(t, "https://wiki.example.org/Apps/Gedit", p.Homepage)
	assert.Equal(t, []Maintainer{
		{Name: "Paolo Borelli", Email: "pborelli@example.org", Account: "pborelli"},
		{Name: "Jesse van den Kieboom", Email: "jessevdk@example.org", Account: "jessevdk"},
	}, p.Maintainers)
}

func TestParsePrefixed(t *testing.T) {
	t.Parallel()

	doc := `<rdf:RDF xmlns:doap="http://usefulinc.com/ns/doap#">
<doap:Project>
  <doap:homepage rdf:resource="https://example.org/"/>
  <doap:maintainer><foaf:Person><foaf:name>A</foaf:name><foaf:mbox rdf:resource="mailto:a@example.org"/></foaf:Person></doap:maintainer>
</doap:Project>
</rdf:RDF>`

	p, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/", p.Homepage)
	require.Len(t, p.Maintainers, 1)
	assert.Equal(t, "a@example.org", p.Maintainers[0].Email)
}

func TestApply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "doap.db"))
	require.NoError(t, err)

	defer db.Close()

	m := &model.Module{Name: "gedit", VCSType: "git", VCSRoot: "x"}
	require.NoError(t, db.CreateModule(ctx, m))

	old := &model.Person{Username: "gone", Email: "gone@example.org"}
	existing := &model.Person{Username: "jesse", Email: "JesseVDK@example.org"}
	require.NoError(t, db.CreatePerson(ctx, old))
	require.NoError(t, db.CreatePerson(ctx, existing))
	require.NoError(t, db.SetMaintainers(ctx, m.ID, []model.ID{old.ID}))

	p, err := Parse(strings.NewReader(geditDoap))
	require.NoError(t, err)

	changed, err := Apply(ctx, db, m, p)
	require.NoError(t, err)
	assert.True(t, changed)

	maintainers, err := db.ListMaintainers(ctx, m.ID)
	require.NoError(t, err)

	usernames := []string{}
	for _, mm := range maintainers {
		usernames = append(usernames, mm.Username)
	}

	assert.ElementsMatch(t, []string{"pborelli", "jesse"}, usernames)

	stored, err := db.GetModule(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://wiki.example.org/Apps/Gedit", stored.Homepage)

	changed, err = Apply(ctx, db, stored, p)
	require.NoError(t, err)
	assert.False(t, changed)
}
