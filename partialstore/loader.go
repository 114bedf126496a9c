package partialstore

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// partialExtensions are the file extensions LoadDirectory considers.
var partialExtensions = map[string]bool{
	".tmpl": true,
	".hbs":  true,
	".md":   true,
}

// Parse parses partial file content. A YAML front-matter block between ---
// delimiters supplies the name and description; the remainder is the body.
// Without front-matter the whole content is the body and fallbackName is
// used.
func Parse(fallbackName string, content []byte) (*Partial, error) {
	p := &Partial{Name: fallbackName}

	if !bytes.HasPrefix(content, []byte("---")) {
		p.Body = string(content)
		if p.Name == "" {
			return nil, ErrNoName
		}
		return p, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	var frontmatterLines []string
	var bodyLines []string
	inFrontmatter := false
	foundEnd := false

	lineNum := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineNum++

		if lineNum == 1 && line == "---" {
			inFrontmatter = true
			continue
		}
		if inFrontmatter && line == "---" {
			inFrontmatter = false
			foundEnd = true
			continue
		}
		if inFrontmatter {
			frontmatterLines = append(frontmatterLines, line)
		} else if foundEnd {
			bodyLines = append(bodyLines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan partial: %w", err)
	}

	if !foundEnd {
		// Opening --- with no closer: treat the whole file as body.
		p.Body = string(content)
		if p.Name == "" {
			return nil, ErrNoName
		}
		return p, nil
	}

	meta := &Partial{}
	if err := yaml.Unmarshal([]byte(strings.Join(frontmatterLines, "\n")), meta); err != nil {
		return nil, fmt.Errorf("parse front-matter: %w", err)
	}
	if meta.Name != "" {
		p.Name = meta.Name
	}
	p.Description = meta.Description
	p.Body = strings.TrimSpace(strings.Join(bodyLines, "\n"))

	if p.Name == "" {
		return nil, ErrNoName
	}
	return p, nil
}

// ParseFile reads and parses one partial file. The fallback name is the file
// stem.
func ParseFile(path string) (*Partial, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read partial %s: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	p, err := Parse(stem, content)
	if err != nil {
		return nil, fmt.Errorf("parse partial %s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// LoadDirectory loads every partial template file in dir, non-recursive.
// Files that fail to parse are skipped with a warning so one bad partial
// does not block the rest.
func LoadDirectory(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read partial directory %s: %w", dir, err)
	}

	store := NewStore()
	for _, entry := range entries {
		if entry.IsDir() || !partialExtensions[filepath.Ext(entry.Name())] {
			continue
		}
		p, err := ParseFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			slog.Warn("skipping unparseable partial",
				slog.String("file", entry.Name()),
				slog.Any("error", err))
			continue
		}
		if err := store.Register(p); err != nil {
			slog.Warn("skipping partial with no name",
				slog.String("file", entry.Name()))
		}
	}
	return store, nil
}
