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

type importEdge struct {
	file string
	imp  string
}

func TestImportBoundaries(t *testing.T) {
	root, modulePath := moduleRoot(t)

	type violation struct {
		importEdge
		rule string
	}
	var violations []violation

	for _, e := range internalImports(t, root) {
		layer := layerFor(e.file)
		if layer == "" {
			continue
		}
		for _, bad := range disallowedImports(modulePath, layer) {
			if e.imp == strings.TrimSuffix(bad, "/") || strings.HasPrefix(e.imp, bad) {
				violations = append(violations, violation{importEdge: e, rule: bad})
				break
			}
		}
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

// External clients (the WhatsApp bridge and object storage) are built in
// internal/app and driven by workers; services only see their own interfaces.
func TestExternalClientsOnlyFromAppAndJobs(t *testing.T) {
	root, modulePath := moduleRoot(t)

	clients := []string{
		modulePath + "/internal/platform/wabridge",
		modulePath + "/internal/platform/gcp",
	}
	allowed := []string{
		"internal/app/",
		"internal/jobs/",
		"internal/platform/",
	}

	var violations []importEdge
	for _, e := range internalImports(t, root) {
		if hasAnyPrefix(e.file, allowed) {
			continue
		}
		for _, c := range clients {
			if e.imp == c {
				violations = append(violations, e)
				break
			}
		}
	}

	if len(violations) > 0 {
		var b strings.Builder
		b.WriteString("external client imports outside internal/app and internal/jobs:\n")
		for _, v := range violations {
			fmt.Fprintf(&b, "- %s imports %q\n", v.file, v.imp)
		}
		t.Fatal(b.String())
	}
}

func TestNoLegacyClientsPackage(t *testing.T) {
	root, modulePath := moduleRoot(t)

	if _, err := os.Stat(filepath.Join(root, "internal", "clients")); err == nil {
		t.Fatal("internal/clients exists; platform clients live under internal/platform")
	}
	for _, e := range internalImports(t, root) {
		if strings.HasPrefix(e.imp, modulePath+"/internal/clients") {
			t.Errorf("%s imports %q (use internal/platform instead)", e.file, e.imp)
		}
	}
}

func layerFor(rel string) string {
	switch {
	case strings.HasPrefix(rel, "internal/platform/"):
		return "platform"
	case strings.HasPrefix(rel, "internal/pkg/"):
		return "pkg"
	case strings.HasPrefix(rel, "internal/domain/"):
		return "domain"
	case strings.HasPrefix(rel, "internal/data/"):
		return "data"
	case strings.HasPrefix(rel, "internal/services/"):
		return "services"
	case strings.HasPrefix(rel, "internal/jobs/"):
		return "jobs"
	case strings.HasPrefix(rel, "internal/realtime/"):
		return "realtime"
	default:
		return ""
	}
}

func disallowedImports(modulePath string, layer string) []string {
	in := func(pkgs ...string) []string {
		out := make([]string, 0, len(pkgs))
		for _, p := range pkgs {
			out = append(out, modulePath+"/internal/"+p+"/")
		}
		return out
	}
	switch layer {
	case "platform":
		return in("domain", "data", "services", "http", "jobs", "realtime", "app")
	case "pkg":
		return in("domain", "data", "services", "http", "jobs", "app")
	case "domain":
		return in("data", "services", "http", "jobs", "platform", "app")
	case "data":
		return in("services", "http", "jobs", "realtime", "app")
	case "services":
		return in("http", "jobs", "app")
	case "jobs":
		return in("http", "data", "app")
	case "realtime":
		return in("domain", "data", "services", "http", "jobs", "app")
	default:
		return nil
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func moduleRoot(t *testing.T) (string, string) {
	t.Helper()

	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}
	return root, modulePath
}

// internalImports lists every import of every .go file under internal/,
// with file paths relative to the module root.
func internalImports(t *testing.T, root string) []importEdge {
	t.Helper()

	internalDir := filepath.Join(root, "internal")
	fset := token.NewFileSet()
	var edges []importEdge

	walkErr := filepath.WalkDir(internalDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "node_modules", ".gocache", "testdata":
				return filepath.SkipDir
			default:
				return nil
			}
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			if spec == nil || spec.Path == nil {
				continue
			}
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			edges = append(edges, importEdge{file: rel, imp: imp})
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
	return edges
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
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
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		mp := strings.TrimSpace(strings.TrimPrefix(line, "module "))
		if mp == "" {
			return "", fmt.Errorf("empty module path in %s", goModPath)
		}
		return mp, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
