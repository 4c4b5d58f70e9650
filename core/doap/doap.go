// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package doap reads maintainer and homepage data from DOAP project
// descriptions and applies it to stored modules.
package doap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/store"
)

// Maintainer is one doap:maintainer entry.
type Maintainer struct {
	Name    string
	Email   string
	Account string
}

// Project is the part of a DOAP file the service uses.
type Project struct {
	Homepage    string
	Maintainers []Maintainer
}

// Parse reads a DOAP document. Documents may use the doap: prefix or the
// DOAP default namespace.
func Parse(r io.Reader) (*Project, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOAP document: %w", err)
	}

	var p Project

	doc.Find(`maintainer, doap\:maintainer`).Each(func(_ int, s *goquery.Selection) {
		person := s.Find(`foaf\:person`).First()
		if person.Length() == 0 {
			return
		}

		mbox, _ := person.Find(`foaf\:mbox`).First().Attr("rdf:resource")
		email, err := url.PathUnescape(strings.TrimPrefix(mbox, "mailto:"))
		if err != nil {
			email = strings.TrimPrefix(mbox, "mailto:")
		}

		m := Maintainer{
			Name:    strings.TrimSpace(person.Find(`foaf\:name`).First().Text()),
			Email:   strings.TrimSpace(email),
			Account: strings.TrimSpace(person.Find(`gnome\:userid`).First().Text()),
		}

		if m.Email != "" {
			p.Maintainers = append(p.Maintainers, m)
		}
	})

	doc.Find(`homepage, doap\:homepage`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		// foaf:homepage of a person does not count.
		if s.ParentsFiltered(`foaf\:person`).Length() > 0 {
			return true
		}

		p.Homepage, _ = s.Attr("rdf:resource")

		return p.Homepage == ""
	})

	return &p, nil
}

// Apply makes the module's maintainers match p, matching people by email
// and creating unknown ones, and updates the homepage. It reports whether
// anything changed. Callers should run it inside a transaction.
func Apply(ctx context.Context, st store.Store, m *model.Module, p *Project) (bool, error) {
	current, err := st.ListMaintainers(ctx, m.ID)
	if err != nil {
		return false, err
	}

	known := make(map[string]model.ID, len(current))
	for _, person := range current {
		known[strings.ToLower(person.Email)] = person.ID
	}

	ids := make([]model.ID, 0, len(p.Maintainers))
	changed := false

	for _, maint := range p.Maintainers {
		if id, ok := known[strings.ToLower(maint.Email)]; ok {
			ids = append(ids, id)
			delete(known, strings.ToLower(maint.Email))

			continue
		}

		changed = true

		person, err := st.GetPersonByEmail(ctx, maint.Email)
		if errors.Is(err, store.ErrNotFound) {
			username := maint.Account
			if username == "" {
				username = maint.Email
			}

			person = &model.Person{
				Username:   username,
				Email:      maint.Email,
				VCSAccount: maint.Account,
				LastName:   maint.Name,
			}

			if err := st.CreatePerson(ctx, person); err != nil {
				return false, err
			}

			log.Info().Str("sys", "stats").Str("module", m.Name).Str("email", maint.Email).Msg("Created maintainer from DOAP")
		} else if err != nil {
			return false, err
		}

		ids = append(ids, person.ID)
	}

	if len(known) > 0 {
		changed = true
	}

	if changed {
		if err := st.SetMaintainers(ctx, m.ID, ids); err != nil {
			return false, err
		}
	}

	if p.Homepage != "" && p.Homepage != m.Homepage {
		m.Homepage = p.Homepage
		if err := st.UpdateModule(ctx, m); err != nil {
			return false, err
		}

		changed = true
	}

	return changed, nil
}
