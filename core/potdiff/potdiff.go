// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package potdiff classifies the change between two message templates.

Only message identities take part in the comparison: context, msgid and
msgid_plural. Comments, references, flags and the header are ignored, so
a template regenerated from moved source lines compares as formatting-only.
*/
package potdiff

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"codeberg.org/vertimus/vertimus/core/cache"
	"codeberg.org/vertimus/vertimus/core/pofile"
)

// Kind is the classification of a template change.
type Kind int

const (
	NotChanged Kind = iota
	ChangedOnlyFormatting
	ChangedWithAdditions
	ChangedNoAdditions
)

func (k Kind) String() string {
	switch k {
	case NotChanged:
		return "not-changed"
	case ChangedOnlyFormatting:
		return "changed-only-formatting"
	case ChangedWithAdditions:
		return "changed-with-additions"
	case ChangedNoAdditions:
		return "changed-no-additions"
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Unchanged reports whether translations merged against the old template
// are still valid for the new one.
func (k Kind) Unchanged() bool {
	return k == NotChanged || k == ChangedOnlyFormatting
}

// TrivialLineThreshold is the number of differing lines below which two
// templates are considered identical. Regenerating a template always
// touches a few header lines such as POT-Creation-Date.
const TrivialLineThreshold = 4

const keysNamespace = "potdiff.keys"

// Result is the outcome of a comparison.
type Result struct {
	Kind    Kind
	Added   []string
	Removed []string
}

// Differ compares templates. The zero value works without caching.
type Differ struct {
	// Cache memoizes the key list of each template content.
	Cache *cache.Cache
}

// Diff compares the templates at oldPath and newPath.
func Diff(oldPath, newPath string) (Result, error) {
	return (&Differ{}).Diff(oldPath, newPath)
}

// Diff compares the templates at oldPath and newPath.
func (d *Differ) Diff(oldPath, newPath string) (Result, error) {
	oldKey, oldContent, err := cache.FileKey(keysNamespace, oldPath)
	if err != nil {
		return Result{}, err
	}

	newKey, newContent, err := cache.FileKey(keysNamespace, newPath)
	if err != nil {
		return Result{}, err
	}

	if oldKey == newKey || changedLines(oldContent, newContent) < TrivialLineThreshold {
		return Result{Kind: NotChanged}, nil
	}

	oldKeys, err := d.keys(oldKey, oldContent)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", oldPath, err)
	}

	newKeys, err := d.keys(newKey, newContent)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", newPath, err)
	}

	return Compare(oldKeys, newKeys), nil
}

// Compare classifies two sorted key lists with a two-pointer walk.
func Compare(oldKeys, newKeys []string) Result {
	var res Result

	i, j := 0, 0
	for i < len(oldKeys) && j < len(newKeys) {
		switch strings.Compare(oldKeys[i], newKeys[j]) {
		case 0:
			i++
			j++
		case -1:
			res.Removed = append(res.Removed, oldKeys[i])
			i++
		default:
			res.Added = append(res.Added, newKeys[j])
			j++
		}
	}

	res.Removed = append(res.Removed, oldKeys[i:]...)
	res.Added = append(res.Added, newKeys[j:]...)

	switch {
	case len(res.Added) > 0:
		res.Kind = ChangedWithAdditions
	case len(res.Removed) > 0:
		res.Kind = ChangedNoAdditions
	default:
		res.Kind = ChangedOnlyFormatting
	}

	return res
}

// Keys returns the sorted, de-duplicated message keys of a template.
// The header and obsolete entries are skipped.
func Keys(content []byte) ([]string, error) {
	cat, err := pofile.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(cat.Entries))

	for _, e := range cat.Entries {
		if e.Obsolete || e.ID == "" {
			continue
		}

		keys = append(keys, e.Key())
	}

	slices.Sort(keys)

	return slices.Compact(keys), nil
}

func (d *Differ) keys(key cache.Key, content []byte) ([]string, error) {
	var keys []string
	if d.Cache.GetValue(key, &keys) {
		return keys, nil
	}

	keys, err := Keys(content)
	if err != nil {
		return nil, err
	}

	_ = d.Cache.PutValue(key, keys)

	return keys, nil
}

// changedLines counts removed plus inserted lines, as a unified diff
// would show them.
func changedLines(a, b []byte) int {
	m := difflib.NewMatcher(
		difflib.SplitLines(string(a)),
		difflib.SplitLines(string(b)),
	)

	n := 0

	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'r':
			n += (op.I2 - op.I1) + (op.J2 - op.J1)
		case 'd':
			n += op.I2 - op.I1
		case 'i':
			n += op.J2 - op.J1
		}
	}

	return n
}
