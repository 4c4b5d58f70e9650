// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/store"
)

// notFound wraps store.ErrNotFound with what was looked up.
func notFound(kind, name string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %q: %w", kind, name, err)
	}

	return err
}

func (a *app) module(ctx context.Context, name string) (*model.Module, error) {
	m, err := a.svc.Store.GetModuleByName(ctx, name)
	if err != nil {
		return nil, notFound("module", name, err)
	}

	return m, nil
}

func (a *app) branch(ctx context.Context, m *model.Module, name string) (*model.Branch, error) {
	branches, err := a.svc.Store.ListBranches(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	for i := range branches {
		if branches[i].Name == name {
			return &branches[i], nil
		}
	}

	return nil, notFound("branch", m.Name+"."+name, store.ErrNotFound)
}

func (a *app) domain(ctx context.Context, m *model.Module, name string) (*model.Domain, error) {
	domains, err := a.svc.Store.ListDomains(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	for i := range domains {
		if domains[i].Name == name {
			return &domains[i], nil
		}
	}

	return nil, notFound("domain", m.Name+"."+name, store.ErrNotFound)
}

func (a *app) release(ctx context.Context, name string) (*model.Release, error) {
	r, err := a.svc.Store.GetReleaseByName(ctx, name)
	if err != nil {
		return nil, notFound("release", name, err)
	}

	return r, nil
}

func (a *app) language(ctx context.Context, locale string) (*model.Language, error) {
	l, err := a.svc.Store.GetLanguageByLocale(ctx, locale)
	if err != nil {
		return nil, notFound("language", locale, err)
	}

	return l, nil
}

func (a *app) person(ctx context.Context, email string) (*model.Person, error) {
	p, err := a.svc.Store.GetPersonByEmail(ctx, email)
	if err != nil {
		return nil, notFound("person", email, err)
	}

	return p, nil
}

// target names the state of a module branch domain for one language.
type target struct {
	module, branch, domain, locale string
}

// state resolves t and returns its workflow state, creating it on first
// use.
func (a *app) state(ctx context.Context, t target) (*model.State, error) {
	m, err := a.module(ctx, t.module)
	if err != nil {
		return nil, err
	}

	b, err := a.branch(ctx, m, t.branch)
	if err != nil {
		return nil, err
	}

	d, err := a.domain(ctx, m, t.domain)
	if err != nil {
		return nil, err
	}

	l, err := a.language(ctx, t.locale)
	if err != nil {
		return nil, err
	}

	return a.svc.Workflow.StateFor(ctx, b, d, l)
}
