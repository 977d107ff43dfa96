// cmd/tools/worker-generator/main.go
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"versailles-assistant/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Module       string
	Category     string
	Dir          string
	PackageName  string
	TaskType     string
	DisplayName  string
	TimeoutExpr  string
	InputFields  string
	OutputFields string
}

type generatedFile struct {
	name string
	tmpl string
}

var files = []generatedFile{
	{"config.go", configTemplate},
	{"models.go", modelsTemplate},
	{"handler.go", handlerTemplate},
	{"handler_test.go", testTemplate},
}

func main() {
	id := flag.String("id", "", "Activity ID from the registry (e.g., route-query)")
	registryPath := flag.String("registry", "configs/activity-registry.json", "Path to registry file")
	outRoot := flag.String("out", "internal/workers", "Root directory for worker packages")
	module := flag.String("module", "versailles-assistant", "Go module path")
	force := flag.Bool("force", false, "Overwrite existing files")
	flag.Parse()

	if *id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		flag.Usage()
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading registry: %v\n", err)
		os.Exit(1)
	}

	activity, ok := findByID(reg, *id)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: activity %s not found in %s\n", *id, *registryPath)
		os.Exit(1)
	}

	data, err := newWorkerData(activity, *module)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dir := filepath.Join(*outRoot, data.Category, data.Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", dir, err)
		os.Exit(1)
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil && !*force {
			fmt.Printf("skipped %s (exists, use -force to overwrite)\n", path)
			continue
		}
		src, err := render(f.name, f.tmpl, data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, src, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", path)
	}
}

func findByID(reg *registry.ActivityRegistry, id string) (registry.Activity, bool) {
	for _, a := range reg.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return registry.Activity{}, false
}

func newWorkerData(a registry.Activity, module string) (WorkerData, error) {
	timeout := 30 * time.Second
	if a.Timeout != "" {
		d, err := time.ParseDuration(a.Timeout)
		if err != nil {
			return WorkerData{}, fmt.Errorf("activity %s: invalid timeout %q", a.ID, a.Timeout)
		}
		timeout = d
	}

	category := a.Category
	if category == "" {
		category = "assistant"
	}

	return WorkerData{
		Module:       module,
		Category:     category,
		Dir:          a.ID,
		PackageName:  packageName(a.ID),
		TaskType:     a.TaskType,
		DisplayName:  a.DisplayName,
		TimeoutExpr:  durationExpr(timeout),
		InputFields:  structFields(a.InputSchema),
		OutputFields: structFields(a.OutputSchema),
	}, nil
}

// render executes the template and gofmts the result.
func render(name, tmpl string, data WorkerData) ([]byte, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", name, err)
	}
	return src, nil
}

// packageName turns "route-query" into "routequery".
func packageName(id string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(id) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9' && sb.Len() > 0) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func durationExpr(d time.Duration) string {
	switch {
	case d%time.Minute == 0:
		return fmt.Sprintf("%d * time.Minute", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%d * time.Second", d/time.Second)
	default:
		return fmt.Sprintf("%d * time.Millisecond", d/time.Millisecond)
	}
}

// structFields renders one field per schema property, sorted by name.
// Properties outside "required" get omitempty.
func structFields(schema map[string]interface{}) string {
	props, _ := schema["properties"].(map[string]interface{})
	if len(props) == 0 {
		return ""
	}

	required := map[string]bool{}
	if list, ok := schema["required"].([]interface{}); ok {
		for _, r := range list {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		tag := name
		if !required[name] {
			tag += ",omitempty"
		}
		lines = append(lines, fmt.Sprintf("\t%s %s `json:\"%s\"`", fieldName(name), goType(details["type"]), tag))
	}
	return strings.Join(lines, "\n")
}

// goType maps JSON schema types to Go types
func goType(jsonType interface{}) string {
	switch jsonType {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// fieldName turns "partial_answers" into "PartialAnswers".
func fieldName(prop string) string {
	parts := strings.FieldsFunc(prop, func(r rune) bool { return r == '_' || r == '-' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}
