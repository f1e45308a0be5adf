package main

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"
)

const sample = `package sample

// Documented has a doc comment.
func Documented() {}

func bare() {}

type T struct{}

func (t *T) Method() {}

// Stub has no body.
func external()
`

// TestUndocumented verifies only bodies without a doc comment are reported.
func TestUndocumented(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "sample.go", sample, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := undocumented(f)
	if len(got) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(got))
	}
	if funcName(got[0]) != "bare" || funcName(got[1]) != "T.Method" {
		t.Fatalf("unexpected findings %q, %q", funcName(got[0]), funcName(got[1]))
	}
}

// TestWalk_Exclusions verifies skipped directories, test files and the issue limit.
func TestWalk_Exclusions(t *testing.T) {
	root := t.TempDir()
	write := func(rel, body string) {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("a/a.go", "package a\n\nfunc a() {}\n")
	write("a/a_test.go", "package a\n\nfunc helper() {}\n")
	write("_skip/s.go", "package s\n\nfunc s() {}\n")
	write("gen/g.go", "// Code generated by tool. DO NOT EDIT.\n\npackage gen\n\nfunc g() {}\n")
	write("b/b.go", "package b\n\nfunc b1() {}\n\nfunc b2() {}\n")

	l, err := newLinter(lintConfig{ExcludeDirs: []string{"./b"}})
	if err != nil {
		t.Fatalf("linter: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := l.walk("."); err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(l.results) != 1 {
		t.Fatalf("expected only a.a, got %+v", l.results)
	}

	l, _ = newLinter(lintConfig{IncludeTests: true, MaxIssues: 3})
	if err := l.walk("."); err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(l.results) != 3 || !l.truncated() {
		t.Fatalf("expected truncation at 3, got %d", len(l.results))
	}
}

// TestLoadConfig verifies YAML parsing and the missing-file default.
func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".commentlint.yml")
	body := "max-issues: 5\ninclude-tests: true\nexclude-dirs: [\"./_examples\"]\nexclude-files: [\"_windows\\\\.go$\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxIssues != 5 || !cfg.IncludeTests || len(cfg.ExcludeDirs) != 1 || len(cfg.ExcludeFiles) != 1 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	l, err := newLinter(cfg)
	if err != nil {
		t.Fatalf("linter: %v", err)
	}
	if !l.excludedDir("_examples/x") || !l.excludedFile("internal/display/display_windows.go") {
		t.Fatalf("expected exclusions to apply")
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "none.yml")); err != nil {
		t.Fatalf("missing config should not fail: %v", err)
	}
	if _, err := newLinter(lintConfig{ExcludeFiles: []string{"("}}); err == nil {
		t.Fatalf("expected invalid regex error")
	}
}
