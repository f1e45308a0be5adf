// Package main runs the commentlint CLI, which reports functions without a
// doc comment.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// finding is one undocumented function.
type finding struct {
	pos token.Position
	msg string
}

// lintConfig is the layout of .commentlint.yml.
type lintConfig struct {
	MaxIssues    int      `yaml:"max-issues"`
	IncludeTests bool     `yaml:"include-tests"`
	ExcludeDirs  []string `yaml:"exclude-dirs"`
	ExcludeFiles []string `yaml:"exclude-files"`
}

// linter holds the compiled configuration.
type linter struct {
	cfg     lintConfig
	dirs    []string
	files   []*regexp.Regexp
	fset    *token.FileSet
	results []finding
}

// main is the entrypoint for the comment linter CLI.
func main() {
	configPath := flag.String("config", ".commentlint.yml", "Config file")
	tests := flag.Bool("tests", false, "Also lint _test.go files")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [dirs]\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Ensures every function has a doc comment. Defaults to .\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	roots := flag.Args()
	if len(roots) == 0 {
		roots = []string{"."}
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	cfg.IncludeTests = cfg.IncludeTests || *tests
	l, err := newLinter(cfg)
	if err != nil {
		fatal(err)
	}
	for _, root := range roots {
		if err := l.walk(root); err != nil {
			fatal(err)
		}
	}

	for _, f := range l.results {
		fmt.Fprintf(os.Stderr, "%s:%d:%d: %s\n", filepath.ToSlash(f.pos.Filename), f.pos.Line, f.pos.Column, f.msg)
	}
	if l.truncated() {
		fmt.Fprintf(os.Stderr, "commentlint: output truncated after %d issues\n", cfg.MaxIssues)
	}
	if len(l.results) > 0 {
		os.Exit(1)
	}
}

// fatal reports a setup error and exits.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "commentlint: %v\n", err)
	os.Exit(2)
}

// loadConfig reads the YAML config. A missing file yields the zero config.
func loadConfig(path string) (lintConfig, error) {
	var cfg lintConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// newLinter compiles the exclusion patterns of cfg.
func newLinter(cfg lintConfig) (*linter, error) {
	l := &linter{cfg: cfg, fset: token.NewFileSet()}
	for _, d := range cfg.ExcludeDirs {
		d = strings.TrimSpace(strings.TrimPrefix(d, "./"))
		if d != "" {
			l.dirs = append(l.dirs, filepath.ToSlash(d))
		}
	}
	for _, p := range cfg.ExcludeFiles {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		rx, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude regex %q: %w", p, err)
		}
		l.files = append(l.files, rx)
	}
	return l, nil
}

// walk lints every Go file under root. Directories starting with "_" or
// "." and testdata are skipped, as the go tool does.
func (l *linter) walk(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := filepath.ToSlash(filepath.Clean(path))
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata" || name == "vendor") {
				return filepath.SkipDir
			}
			if l.excludedDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || l.excludedFile(rel) {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") && !l.cfg.IncludeTests {
			return nil
		}
		if l.truncated() {
			return filepath.SkipAll
		}
		return l.lintFile(path)
	})
}

// excludedDir reports whether rel is under an excluded directory.
func (l *linter) excludedDir(rel string) bool {
	for _, d := range l.dirs {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

// excludedFile reports whether rel matches an exclusion pattern.
func (l *linter) excludedFile(rel string) bool {
	for _, rx := range l.files {
		if rx.MatchString(rel) {
			return true
		}
	}
	return false
}

// truncated reports whether the issue limit was reached.
func (l *linter) truncated() bool {
	return l.cfg.MaxIssues > 0 && len(l.results) >= l.cfg.MaxIssues
}

// lintFile parses one file and records undocumented functions.
func (l *linter) lintFile(path string) error {
	if isGeneratedFile(path) {
		return nil
	}
	f, err := parser.ParseFile(l.fset, path, nil, parser.ParseComments)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for _, fd := range undocumented(f) {
		if l.truncated() {
			return nil
		}
		l.results = append(l.results, finding{
			pos: l.fset.Position(fd.Pos()),
			msg: fmt.Sprintf("missing doc comment for function %q", funcName(fd)),
		})
	}
	return nil
}

// undocumented returns the functions with a body and no doc comment.
func undocumented(f *ast.File) []*ast.FuncDecl {
	var out []*ast.FuncDecl
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		if fn.Doc == nil || strings.TrimSpace(fn.Doc.Text()) == "" {
			out = append(out, fn)
		}
	}
	return out
}

// funcName returns Recv.Name for methods and Name for functions.
func funcName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	t := fn.Recv.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	if idx, ok := t.(*ast.IndexExpr); ok {
		t = idx.X
	}
	if id, ok := t.(*ast.Ident); ok {
		return id.Name + "." + fn.Name.Name
	}
	return fn.Name.Name
}

// isGeneratedFile checks if the file starts with the standard "Code generated" header.
func isGeneratedFile(filename string) bool {
	f, err := os.Open(filename)
	if err != nil {
		return false
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for i := 0; i < 10 && scanner.Scan(); i++ {
		line := scanner.Text()
		if strings.Contains(line, "Code generated") || strings.Contains(line, "DO NOT EDIT") {
			return true
		}
	}
	return false
}
