package main

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var databasePathRe = regexp.MustCompile(`^projects/([^/]+)/instances/([^/]+)/databases/([^/]+)$`)

// databasePath is a parsed "projects/P/instances/I/databases/D" name.
type databasePath struct {
	Project  string
	Instance string
	Database string
}

func parseDatabasePath(s string) (databasePath, error) {
	m := databasePathRe.FindStringSubmatch(s)
	if m == nil {
		return databasePath{}, fmt.Errorf("invalid database %q: want projects/P/instances/I/databases/D", s)
	}
	return databasePath{Project: m[1], Instance: m[2], Database: m[3]}, nil
}

func (p databasePath) projectName() string {
	return "projects/" + p.Project
}

func (p databasePath) instanceName() string {
	return p.projectName() + "/instances/" + p.Instance
}

func (p databasePath) String() string {
	return p.instanceName() + "/databases/" + p.Database
}

// migrationFiles lists *.sql files of dir in lexical order.
func migrationFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migration files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// splitDDLStatements drops comment lines and splits on semicolons.
func splitDDLStatements(content string) []string {
	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		cleaned = append(cleaned, line)
	}

	var result []string
	for _, stmt := range strings.Split(strings.Join(cleaned, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}
