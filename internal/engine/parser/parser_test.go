package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := New(nil, 0)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func symbolByName(t *testing.T, res *ParseResult, name string) Symbol {
	t.Helper()
	for _, sym := range res.Symbols {
		if sym.Name == name {
			return sym
		}
	}
	t.Fatalf("symbol %q not found in %v", name, res.Symbols)
	return Symbol{}
}

func TestParse_TypeScript(t *testing.T) {
	p := newTestParser(t)
	src := `import { helper, other as alias } from "./utils";
import * as fs from "fs";
import React from "react";

/** Formats a string for display. */
export function formatString(value: string, width = 10): string {
  return helper(value).padEnd(width);
}

export class UserService extends BaseService {
  async getUser(id: string) {
    return this.repo.find(id);
  }
  private cache() {}
}

interface Options { verbose: boolean }
export type Mode = "a" | "b";
export const handler = async (req) => { return req; };
`
	res := p.Parse(context.Background(), "src/index.ts", []byte(src))
	require.Empty(t, res.Errors)
	assert.Equal(t, LangTypeScript, res.Language)

	require.Len(t, res.Imports, 3)
	assert.Equal(t, "./utils", res.Imports[0].Source)
	assert.Equal(t, []string{"helper", "alias"}, res.Imports[0].Specifiers)
	assert.Equal(t, "fs", res.Imports[1].Namespace)
	assert.Equal(t, "React", res.Imports[2].Default)

	fn := symbolByName(t, res, "formatString")
	assert.Equal(t, KindFunction, fn.Kind)
	assert.True(t, fn.Exported)
	assert.Equal(t, "Formats a string for display.", fn.Docstring)
	require.Len(t, fn.Parameters, 2)
	assert.Equal(t, "value", fn.Parameters[0].Name)
	assert.Equal(t, "string", fn.Parameters[0].Type)
	assert.True(t, fn.Parameters[1].Optional)
	assert.Equal(t, 6, fn.Location.StartLine)
	assert.Equal(t, "src/index.ts#formatString@6", fn.ID)

	getUser := symbolByName(t, res, "getUser")
	assert.Equal(t, KindMethod, getUser.Kind)
	assert.Equal(t, "UserService", getUser.Parent)
	assert.True(t, getUser.Async)
	assert.True(t, getUser.Exported)
	assert.False(t, symbolByName(t, res, "cache").Exported)

	assert.False(t, symbolByName(t, res, "Options").Exported)
	assert.Equal(t, KindType, symbolByName(t, res, "Mode").Kind)
	handler := symbolByName(t, res, "handler")
	assert.Equal(t, KindFunction, handler.Kind)
	assert.True(t, handler.Async)

	var exported []string
	for _, e := range res.Exports {
		exported = append(exported, e.Name)
	}
	assert.ElementsMatch(t, []string{"formatString", "UserService", "Mode", "handler"}, exported)
}

func TestParse_JavaScriptExportClause(t *testing.T) {
	p := newTestParser(t)
	src := "function a() {}\nconst b = 1;\nexport { a, b as c };\n"
	res := p.Parse(context.Background(), "lib.js", []byte(src))
	require.Empty(t, res.Errors)
	assert.True(t, symbolByName(t, res, "a").Exported)
	assert.True(t, symbolByName(t, res, "b").Exported)
	require.Len(t, res.Exports, 2)
	assert.Equal(t, "c", res.Exports[1].Name)
}

func TestParse_JavaScriptReexports(t *testing.T) {
	p := newTestParser(t)
	src := "function a() {}\n" +
		"export { a as b, c } from \"./x\";\n" +
		"export { default as Widget } from \"./widget\";\n" +
		"export * from \"./all\";\n"
	res := p.Parse(context.Background(), "index.ts", []byte(src))
	require.Empty(t, res.Errors)

	require.Len(t, res.Imports, 3)
	assert.Equal(t, Import{Source: "./x", Specifiers: []string{"a", "c"}, Line: 2}, res.Imports[0])
	assert.Equal(t, Import{Source: "./widget", Default: "Widget", Line: 3}, res.Imports[1])
	assert.Equal(t, Import{Source: "./all", Specifiers: []string{"*"}, Line: 4}, res.Imports[2])

	// The local a is not what the re-export names.
	assert.False(t, symbolByName(t, res, "a").Exported)
	var exported []string
	for _, exp := range res.Exports {
		exported = append(exported, exp.Name)
	}
	assert.Equal(t, []string{"b", "c", "Widget"}, exported)
}

func TestParse_Python(t *testing.T) {
	p := newTestParser(t)
	src := `import os
from .models import User, Account as Acct

MAX_RETRIES = 3

class Repository(Base):
    """Stores users."""

    def find(self, user_id, default=None):
        return self._rows.get(user_id, default)

    def _load(self):
        pass

async def fetch(url: str) -> bytes:
    return b""
`
	res := p.Parse(context.Background(), "pkg/repo.py", []byte(src))
	require.Empty(t, res.Errors)
	require.Len(t, res.Imports, 2)
	assert.Equal(t, "os", res.Imports[0].Namespace)
	assert.Equal(t, ".models", res.Imports[1].Source)
	assert.Equal(t, []string{"User", "Acct"}, res.Imports[1].Specifiers)

	repo := symbolByName(t, res, "Repository")
	assert.Equal(t, KindClass, repo.Kind)
	assert.Equal(t, "Stores users.", repo.Docstring)

	find := symbolByName(t, res, "find")
	assert.Equal(t, KindMethod, find.Kind)
	assert.Equal(t, "Repository", find.Parent)
	require.Len(t, find.Parameters, 2)
	assert.Equal(t, "user_id", find.Parameters[0].Name)
	assert.Equal(t, "None", find.Parameters[1].Default)

	assert.False(t, symbolByName(t, res, "_load").Exported)
	assert.True(t, symbolByName(t, res, "fetch").Async)
	assert.Equal(t, KindVariable, symbolByName(t, res, "MAX_RETRIES").Kind)
}

func TestParse_Go(t *testing.T) {
	p := newTestParser(t)
	src := `package store

import (
	"context"
	db "database/sql"
)

// Store persists runs.
type Store struct {
	db *db.DB
}

type Reader interface {
	Read(ctx context.Context) error
}

// Save writes a run.
func (s *Store) Save(ctx context.Context, name string) error {
	return nil
}

func open(path string, opts ...string) (*Store, error) {
	return nil, nil
}

const Version = "1"
`
	res := p.Parse(context.Background(), "store/store.go", []byte(src))
	require.Empty(t, res.Errors)
	require.Len(t, res.Imports, 2)
	assert.Equal(t, "context", res.Imports[0].Namespace)
	assert.Equal(t, "db", res.Imports[1].Namespace)

	store := symbolByName(t, res, "Store")
	assert.Equal(t, KindClass, store.Kind)
	assert.Equal(t, "Store persists runs.", store.Docstring)
	assert.Equal(t, KindInterface, symbolByName(t, res, "Reader").Kind)

	save := symbolByName(t, res, "Save")
	assert.Equal(t, KindMethod, save.Kind)
	assert.Equal(t, "Store", save.Parent)
	assert.True(t, save.Exported)
	require.Len(t, save.Parameters, 2)
	assert.Equal(t, "name", save.Parameters[1].Name)

	open := symbolByName(t, res, "open")
	assert.False(t, open.Exported)
	require.Len(t, open.Parameters, 2)
	assert.Equal(t, "...string", open.Parameters[1].Type)

	assert.True(t, symbolByName(t, res, "Version").Exported)
}

func TestParse_Java(t *testing.T) {
	p := newTestParser(t)
	src := `package app;

import java.util.List;

/** Handles orders. */
public class OrderController {
    private int count;

    public OrderController(int count) { this.count = count; }

    public List<String> listOrders(String customer) {
        return null;
    }

    private void reset() {}
}
`
	res := p.Parse(context.Background(), "src/OrderController.java", []byte(src))
	require.Empty(t, res.Errors)
	require.Len(t, res.Imports, 1)
	assert.Equal(t, "java.util.List", res.Imports[0].Source)

	cls := symbolByName(t, res, "OrderController")
	assert.Equal(t, KindClass, cls.Kind)
	assert.True(t, cls.Exported)
	assert.Equal(t, "Handles orders.", cls.Docstring)

	list := symbolByName(t, res, "listOrders")
	assert.True(t, list.Exported)
	assert.Equal(t, "OrderController", list.Parent)
	require.Len(t, list.Parameters, 1)
	assert.Equal(t, "customer", list.Parameters[0].Name)
	assert.False(t, symbolByName(t, res, "reset").Exported)
	assert.False(t, symbolByName(t, res, "count").Exported)
}

func TestParse_Rust(t *testing.T) {
	p := newTestParser(t)
	src := `use std::collections::{HashMap, HashSet as Set};

/// A cache entry.
#[derive(Debug)]
pub struct Entry {
    key: String,
}

impl Entry {
    pub fn new(key: String) -> Self {
        Entry { key }
    }

    fn hidden(&self) {}
}

pub trait Store {
    fn get(&self, key: &str) -> Option<Entry>;
}

pub async fn load(path: &str) -> Entry {
    todo!()
}
`
	res := p.Parse(context.Background(), "src/lib.rs", []byte(src))
	require.Empty(t, res.Errors)
	require.Len(t, res.Imports, 1)
	assert.Equal(t, "std::collections", res.Imports[0].Source)
	assert.Equal(t, []string{"HashMap", "Set"}, res.Imports[0].Specifiers)

	entry := symbolByName(t, res, "Entry")
	assert.Equal(t, KindClass, entry.Kind)
	assert.True(t, entry.Exported)
	assert.Equal(t, "A cache entry.", entry.Docstring)

	newFn := symbolByName(t, res, "new")
	assert.Equal(t, KindMethod, newFn.Kind)
	assert.Equal(t, "Entry", newFn.Parent)
	assert.True(t, newFn.Exported)
	assert.False(t, symbolByName(t, res, "hidden").Exported)

	assert.Equal(t, KindInterface, symbolByName(t, res, "Store").Kind)
	assert.True(t, symbolByName(t, res, "load").Async)
}

func TestParse_MalformedSourceReportsErrors(t *testing.T) {
	p := newTestParser(t)
	tests := []struct {
		name string
		path string
		src  string
	}{
		{"typescript", "broken.ts", "export function (((( {"},
		{"python", "broken.py", "def broken(:\n  pass"},
		{"go", "broken.go", "package x\nfunc {"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res *ParseResult
			require.NotPanics(t, func() {
				res = p.Parse(context.Background(), tt.path, []byte(tt.src))
			})
			require.NotNil(t, res)
			assert.NotEmpty(t, res.Errors)
			assert.False(t, res.OK())
		})
	}
}

func TestParse_UnsupportedAndCancelled(t *testing.T) {
	p := newTestParser(t)

	res := p.Parse(context.Background(), "notes.txt", []byte("hello"))
	assert.NotEmpty(t, res.Errors)
	assert.Empty(t, res.Symbols)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = p.Parse(ctx, "a.ts", []byte("export const a = 1;"))
	assert.NotEmpty(t, res.Errors)
	assert.Empty(t, res.Symbols)
}

func TestParse_DisabledLanguage(t *testing.T) {
	p, err := New([]string{"python"}, 0)
	require.NoError(t, err)
	defer p.Close()

	res := p.Parse(context.Background(), "a.ts", []byte("export const a = 1;"))
	assert.Contains(t, res.Errors[0], "not enabled")
	assert.True(t, p.Supports("x.py"))
	assert.False(t, p.Supports("x.ts"))
}

func TestParser_CloseFreesIdleParsers(t *testing.T) {
	p := newTestParser(t)
	_ = p.Parse(context.Background(), "a.go", []byte("package a\n"))
	_ = p.Parse(context.Background(), "b.py", []byte("x = 1\n"))
	assert.Equal(t, 2, p.Close())
	assert.Equal(t, 0, p.Close())
}

func TestLanguageForPath(t *testing.T) {
	tests := []struct {
		path string
		want Language
		ok   bool
	}{
		{"a/b.ts", LangTypeScript, true},
		{"a/b.TSX", LangTSX, true},
		{"x.mjs", LangJavaScript, true},
		{"x.py", LangPython, true},
		{"main.go", LangGo, true},
		{"A.java", LangJava, true},
		{"lib.rs", LangRust, true},
		{"README.md", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageForPath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestParseLanguage_Unknown(t *testing.T) {
	_, err := ParseLanguage("cobol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_SUPPORTED")
}

func TestIsTestFile(t *testing.T) {
	assert.True(t, IsTestFile("pkg/a_test.go"))
	assert.True(t, IsTestFile("src/a.spec.ts"))
	assert.True(t, IsTestFile("tests/test_a.py"))
	assert.False(t, IsTestFile("src/contest.ts"))
}
