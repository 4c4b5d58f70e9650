// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package workflow

import (
	"context"
	"net/url"
	"slices"
	"strings"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/notify"
	"codeberg.org/vertimus/vertimus/i18n"
)

// recipients returns who hears about action a, the actor excluded.
func (w *Workflow) recipients(ctx context.Context, s *subject, p *model.Person, a *model.Action) ([]string, error) {
	var emails []string

	switch a.Name {
	case model.ActionUploadTranslation, model.ActionUploadProofread, model.ActionSubmitToRepository:
		if s.team != nil && s.team.MailingList != "" {
			emails = append(emails, s.team.MailingList)
		}
	case model.ActionReadyToCommit:
		if s.team == nil {
			return nil, nil
		}

		roles, err := w.store.ListRoles(ctx, s.team.ID)
		if err != nil {
			return nil, err
		}

		for _, r := range roles {
			if !r.IsActive || !r.Name.AtLeast(model.RoleCommitter) || r.PersonID == p.ID {
				continue
			}

			person, err := w.store.GetPerson(ctx, r.PersonID)
			if err != nil {
				return nil, err
			}

			emails = append(emails, person.Email)
		}
	case model.ActionWriteComment:
		actions, err := w.store.ListActions(ctx, s.state.ID)
		if err != nil {
			return nil, err
		}

		seen := map[model.ID]bool{p.ID: true}

		for _, other := range actions {
			if seen[other.PersonID] {
				continue
			}

			seen[other.PersonID] = true

			person, err := w.store.GetPerson(ctx, other.PersonID)
			if err != nil {
				return nil, err
			}

			emails = append(emails, person.Email)
		}
	}

	emails = slices.DeleteFunc(emails, func(e string) bool { return e == "" })
	slices.Sort(emails)

	return slices.Compact(emails), nil
}

// stateURL links to the workflow page of the translation.
func (w *Workflow) stateURL(s *subject) string {
	if w.siteURL == "" {
		return ""
	}

	u, err := url.JoinPath(w.siteURL, "vertimus", s.module.Name, s.branch.Name, s.domain.Name, s.language.Locale)
	if err != nil {
		return ""
	}

	return u
}

// notifyAction mails the people concerned by a. Messages are written in
// the language of the translation. Failures are logged.
func (w *Workflow) notifyAction(ctx context.Context, s *subject, p *model.Person, a *model.Action, reached model.StateName) {
	logger := w.logger.With().Str("action", string(a.Name)).Str("translation", describe(s)).Logger()

	to, err := w.recipients(ctx, s, p, a)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not compute notification recipients")

		return
	}

	if len(to) == 0 {
		return
	}

	ctx = i18n.WithLocale(ctx, s.language.Locale)

	vars := []any{
		"Module", s.module.Name,
		"Branch", s.branch.Name,
		"Domain", s.domain.Name,
		"Language", s.language.Name,
		"Person", p.DisplayName(),
	}

	var body strings.Builder

	body.WriteString(i18n.Tr(ctx, "Hello,") + "\n\n")

	if a.Name == model.ActionWriteComment {
		body.WriteString(i18n.Tr(ctx, "{{.Person}} left a comment on {{.Module}} - {{.Branch}} - {{.Domain}} ({{.Language}}).", vars...))
	} else {
		body.WriteString(i18n.Tr(ctx, "The new state of {{.Module}} - {{.Branch}} - {{.Domain}} ({{.Language}}) is now '{{.State}}'.",
			append(vars, "State", StateLabel(ctx, reached))...))
	}

	body.WriteString("\n")

	if link := w.stateURL(s); link != "" {
		body.WriteString(link + "\n")
	}

	if a.Comment != "" {
		body.WriteString("\n" + i18n.Tr(ctx, "{{.Person}} wrote:", vars...) + "\n" + a.Comment + "\n")
	}

	body.WriteString("\n-- \n" + i18n.Tr(ctx, "This is an automated message sent from {{.Site}}.", "Site", w.siteURL) + "\n")

	msg := notify.Message{
		To:      to,
		Subject: i18n.Tr(ctx, "{{.Module}} - {{.Branch}}", vars...),
		Body:    body.String(),
		ReplyTo: p.Email,
	}

	if err := w.notifier.Send(ctx, msg); err != nil {
		logger.Warn().Err(err).Msg("Could not send workflow notification")
	}
}
