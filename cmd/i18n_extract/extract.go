// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"path/filepath"

	"golang.org/x/tools/go/packages"
)

// message identifies a catalogue entry.
type message struct {
	ctx    string
	id     string
	plural string
}

type ref struct {
	file string
	line int
}

// extractor collects the messages of one package.
type extractor struct {
	refs     map[message][]ref
	root     string
	fset     *token.FileSet
	info     *types.Info
	i18nPkgs map[string]struct{}
}

// trArgs gives, per translation function, the argument positions of the
// context (-1 for none), the msgid and the plural (-1 for none).
var trArgs = map[string][3]int{
	"Tr":   {-1, 1, -1},
	"TrC":  {1, 2, -1},
	"TrN":  {-1, 1, 2},
	"TrNC": {1, 2, 3},
}

// extract walks the syntax of pkgs and returns every constant message
// passed to the translation functions or converted to MsgKey.
func extract(pkgs []*packages.Package, root string) map[message][]ref {
	refs := map[message][]ref{}
	i18nPkgs := i18nPackages(pkgs)

	for _, p := range pkgs {
		if p.TypesInfo == nil {
			continue
		}

		e := &extractor{refs: refs, root: root, fset: p.Fset, info: p.TypesInfo, i18nPkgs: i18nPkgs}

		for _, f := range p.Syntax {
			ast.Inspect(f, func(n ast.Node) bool {
				switch x := n.(type) {
				case *ast.CallExpr:
					e.call(x)
				case *ast.CompositeLit:
					e.literal(x)
				}

				return true
			})
		}
	}

	return refs
}

// i18nPackages finds the packages named i18n declaring a string typed
// MsgKey, however they are imported.
func i18nPackages(pkgs []*packages.Package) map[string]struct{} {
	out := make(map[string]struct{})

	packages.Visit(pkgs, nil, func(p *packages.Package) {
		if p.Name != "i18n" || p.Types == nil {
			return
		}

		tn, ok := p.Types.Scope().Lookup("MsgKey").(*types.TypeName)
		if !ok {
			return
		}

		if basic, ok := tn.Type().Underlying().(*types.Basic); ok && basic.Kind() == types.String {
			out[p.PkgPath] = struct{}{}
		}
	})

	return out
}

func (e *extractor) constString(expr ast.Expr) (string, bool) {
	tv, ok := e.info.Types[expr]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
		return "", false
	}

	return constant.StringVal(tv.Value), true
}

func (e *extractor) isMsgKey(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok || named.Obj() == nil || named.Obj().Pkg() == nil {
		return false
	}

	_, ok = e.i18nPkgs[named.Obj().Pkg().Path()]

	return ok && named.Obj().Name() == "MsgKey"
}

// addKey records expr when t is MsgKey and expr is constant.
func (e *extractor) addKey(t types.Type, expr ast.Expr) {
	if !e.isMsgKey(t) {
		return
	}

	if id, ok := e.constString(expr); ok {
		e.add(expr.Pos(), message{id: id})
	}
}

func (e *extractor) add(pos token.Pos, m message) {
	p := e.fset.Position(pos)

	file := p.Filename
	if rel, err := filepath.Rel(e.root, file); err == nil {
		file = rel
	}

	e.refs[m] = append(e.refs[m], ref{file: filepath.ToSlash(file), line: p.Line})
}

func (e *extractor) call(x *ast.CallExpr) {
	// MsgKey("...")
	if tv, ok := e.info.Types[x.Fun]; ok && tv.IsType() {
		if len(x.Args) == 1 {
			e.addKey(tv.Type, x.Args[0])
		}

		return
	}

	if sel, ok := x.Fun.(*ast.SelectorExpr); ok {
		if fn, ok := e.info.Uses[sel.Sel].(*types.Func); ok && fn.Pkg() != nil {
			if _, ours := e.i18nPkgs[fn.Pkg().Path()]; ours {
				if pos, ok := trArgs[fn.Name()]; ok {
					e.translation(x, pos)

					return
				}
			}
		}
	}

	// Arguments passed as MsgKey parameters.
	sig, ok := e.info.TypeOf(x.Fun).(*types.Signature)
	if !ok || sig.Params().Len() == 0 {
		return
	}

	params := sig.Params()
	last := params.Len() - 1

	for i, arg := range x.Args {
		switch {
		case sig.Variadic() && i >= last:
			if x.Ellipsis != token.NoPos {
				continue
			}

			e.addKey(params.At(last).Type().(*types.Slice).Elem(), arg)
		case i <= last:
			e.addKey(params.At(i).Type(), arg)
		}
	}
}

func (e *extractor) translation(x *ast.CallExpr, pos [3]int) {
	arg := func(i int) (string, bool) {
		if i < 0 {
			return "", true
		}

		if i >= len(x.Args) {
			return "", false
		}

		return e.constString(x.Args[i])
	}

	ctx, ok1 := arg(pos[0])
	id, ok2 := arg(pos[1])
	plural, ok3 := arg(pos[2])

	if ok1 && ok2 && ok3 {
		e.add(x.Args[pos[1]].Pos(), message{ctx: ctx, id: id, plural: plural})
	}
}

// literal handles MsgKey values in map, slice, array and struct literals.
func (e *extractor) literal(x *ast.CompositeLit) {
	t := e.info.TypeOf(x)
	if t == nil {
		return
	}

	if p, ok := t.Underlying().(*types.Pointer); ok {
		t = p.Elem()
	}

	switch u := t.Underlying().(type) {
	case *types.Map:
		for _, elt := range x.Elts {
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				e.addKey(u.Key(), kv.Key)
				e.addKey(u.Elem(), kv.Value)
			}
		}
	case *types.Slice:
		e.elements(u.Elem(), x.Elts)
	case *types.Array:
		e.elements(u.Elem(), x.Elts)
	case *types.Struct:
		for i, elt := range x.Elts {
			kv, ok := elt.(*ast.KeyValueExpr)
			if !ok {
				if i < u.NumFields() {
					e.addKey(u.Field(i).Type(), elt)
				}

				continue
			}

			id, ok := kv.Key.(*ast.Ident)
			if !ok {
				continue
			}

			for j := range u.NumFields() {
				if u.Field(j).Name() == id.Name {
					e.addKey(u.Field(j).Type(), kv.Value)
				}
			}
		}
	}
}

func (e *extractor) elements(elem types.Type, elts []ast.Expr) {
	for _, elt := range elts {
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			elt = kv.Value
		}

		e.addKey(elem, elt)
	}
}
