// Package main checks that a revision of the API description stays backward
// compatible with a base revision and still serves the client contract.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"inkwell/docs"

	"gopkg.in/yaml.v3"
)

var supportedMethods = map[string]struct{}{
	"get":    {},
	"put":    {},
	"post":   {},
	"delete": {},
	"patch":  {},
}

// clientContract lists the operations and success codes the feed client relies on.
var clientContract = []struct {
	Method, Path, Code string
}{
	{"post", "/users/login", "200"},
	{"post", "/users/logout", "200"},
	{"get", "/users/my-profile", "200"},
	{"get", "/users/my-profile", "401"},
	{"get", "/blogs/all-blogs", "200"},
	{"get", "/ws", "101"},
}

// apiDoc maps path -> method -> response codes.
type apiDoc map[string]map[string]map[string]struct{}

func main() {
	basePath := flag.String("base", "", "base swagger.json or swagger.yaml path")
	revisionPath := flag.String("revision", "", "revision path; defaults to the description compiled into this binary")
	flag.Parse()

	revisionRaw, err := readRevision(*revisionPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read revision: %v\n", err)
		os.Exit(1)
	}
	revision, err := parseDoc(revisionRaw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse revision: %v\n", err)
		os.Exit(1)
	}

	issues := checkContract(revision)

	if strings.TrimSpace(*basePath) != "" {
		// #nosec G304: path comes from CLI flags in a dev tool
		baseRaw, err := os.ReadFile(*basePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read base: %v\n", err)
			os.Exit(1)
		}
		base, err := parseDoc(baseRaw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse base: %v\n", err)
			os.Exit(1)
		}
		issues = append(issues, compare(base, revision)...)
	}

	if len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "api compatibility check failed:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "- %s\n", issue)
		}
		os.Exit(1)
	}

	fmt.Println("api compatibility check passed")
}

func readRevision(path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return []byte(docs.SwaggerInfo.ReadDoc()), nil
	}
	// #nosec G304: path comes from CLI flags in a dev tool
	return os.ReadFile(path)
}

// parseDoc reads the paths section of a Swagger document. JSON is valid
// YAML, so both encodings go through the same decoder.
func parseDoc(raw []byte) (apiDoc, error) {
	var doc struct {
		Paths map[string]map[string]yaml.Node `yaml:"paths"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Paths == nil {
		return nil, errors.New("missing top-level paths field")
	}

	out := make(apiDoc, len(doc.Paths))
	for path, item := range doc.Paths {
		ops := make(map[string]map[string]struct{})
		for method, node := range item {
			method = strings.ToLower(strings.TrimSpace(method))
			if _, ok := supportedMethods[method]; !ok {
				continue
			}
			var op struct {
				Responses map[string]yaml.Node `yaml:"responses"`
			}
			if err := node.Decode(&op); err != nil {
				return nil, fmt.Errorf("%s %s: %w", strings.ToUpper(method), path, err)
			}
			codes := make(map[string]struct{}, len(op.Responses))
			for code := range op.Responses {
				if code = strings.ToLower(strings.TrimSpace(code)); code != "" {
					codes[code] = struct{}{}
				}
			}
			ops[method] = codes
		}
		if len(ops) > 0 {
			out[path] = ops
		}
	}
	return out, nil
}

func checkContract(doc apiDoc) []string {
	var issues []string
	for _, c := range clientContract {
		codes, ok := doc[c.Path][c.Method]
		if !ok {
			issues = append(issues, fmt.Sprintf("client operation missing: %s %s", strings.ToUpper(c.Method), c.Path))
			continue
		}
		if _, ok := codes[c.Code]; !ok {
			issues = append(issues, fmt.Sprintf("client response missing: %s %s -> %s", strings.ToUpper(c.Method), c.Path, c.Code))
		}
	}
	sort.Strings(issues)
	return issues
}

func compare(base, revision apiDoc) []string {
	var issues []string

	for path, baseOps := range base {
		revOps, ok := revision[path]
		if !ok {
			issues = append(issues, fmt.Sprintf("removed path: %s", path))
			continue
		}

		for method, baseCodes := range baseOps {
			revCodes, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}

			for code := range baseCodes {
				if _, ok := revCodes[code]; !ok {
					issues = append(issues, fmt.Sprintf(
						"removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code),
					))
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}
