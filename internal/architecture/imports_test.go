package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Each layer lists the internal trees it may never import.
var layerRules = []struct {
	prefix     string
	disallowed []string
}{
	{"internal/domain/", []string{"internal/data/", "internal/services/", "internal/http/", "internal/jobs/", "internal/platform/"}},
	{"internal/scoring/", []string{"internal/data/", "internal/services/", "internal/http/", "internal/jobs/"}},
	{"internal/srs/", []string{"internal/data/", "internal/services/", "internal/http/", "internal/jobs/"}},
	{"internal/platform/", []string{"internal/data/", "internal/services/", "internal/http/", "internal/jobs/", "internal/realtime/", "internal/temporalx/", "internal/app/"}},
	{"internal/data/", []string{"internal/services/", "internal/http/", "internal/jobs/", "internal/realtime/", "internal/app/"}},
	{"internal/realtime/", []string{"internal/data/", "internal/services/", "internal/http/", "internal/jobs/"}},
	{"internal/services/", []string{"internal/http/", "internal/jobs/", "internal/temporalx/", "internal/app/"}},
	{"internal/jobs/", []string{"internal/http/", "internal/temporalx/", "internal/app/"}},
	{"internal/temporalx/", []string{"internal/http/", "internal/app/"}},
	{"internal/http/", []string{"internal/jobs/", "internal/temporalx/", "internal/data/db", "internal/app/"}},
}

func TestImportBoundaries(t *testing.T) {
	root, modulePath := moduleRoot(t)

	type violation struct {
		file string
		imp  string
		rule string
	}
	var violations []violation

	fset := token.NewFileSet()
	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		disallowed := disallowedFor(rel)
		if len(disallowed) == 0 {
			return nil
		}

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil || !strings.HasPrefix(imp, modulePath+"/") {
				continue
			}
			local := strings.TrimPrefix(imp, modulePath+"/")
			for _, bad := range disallowed {
				if strings.HasPrefix(local, bad) {
					violations = append(violations, violation{file: rel, imp: imp, rule: bad})
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}

	if len(violations) > 0 {
		var b strings.Builder
		b.WriteString("import boundary violations:\n")
		for _, v := range violations {
			fmt.Fprintf(&b, "- %s imports %q (disallowed: %q)\n", v.file, v.imp, v.rule)
		}
		t.Fatal(b.String())
	}
}

func TestDisallowedFor(t *testing.T) {
	if got := disallowedFor("internal/app/app.go"); got != nil {
		t.Fatalf("app layer: got %v, want no rules", got)
	}
	got := disallowedFor("internal/services/tutor.go")
	found := false
	for _, p := range got {
		if p == "internal/jobs/" {
			found = true
		}
	}
	if !found {
		t.Fatalf("services layer: got %v, want internal/jobs/ disallowed", got)
	}
}

func disallowedFor(rel string) []string {
	for _, r := range layerRules {
		if strings.HasPrefix(rel, r.prefix) {
			return r.disallowed
		}
	}
	return nil
}

func moduleRoot(t *testing.T) (string, string) {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found")
		}
		dir = parent
	}
	mp, err := readModulePath(filepath.Join(dir, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}
	return dir, mp
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		if mp := strings.TrimSpace(strings.TrimPrefix(line, "module ")); mp != "" {
			return mp, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
