package app

import (
	"os"
	"path/filepath"
	"strings"

	"warden/cmd/internal/api"
)

// loadCatalog builds the gated script catalog from a directory of script
// files. The file stem is the script name; the first line, when it is a
// comment, becomes the description.
//
// An empty dir yields an empty catalog: the endpoints still work, they just
// have nothing to serve.
func loadCatalog(dir string, log Logger) (*api.Catalog, error) {
	if dir == "" {
		return api.NewCatalog(), nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var scripts []api.Script
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}

		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		body := string(raw)

		scripts = append(scripts, api.Script{
			Name:        name,
			Description: scriptDescription(body),
			Body:        body,
		})
	}

	log.Info("catalog.loaded", "dir", dir, "scripts", len(scripts))
	return api.NewCatalog(scripts...), nil
}

func scriptDescription(body string) string {
	first, _, _ := strings.Cut(body, "\n")
	first = strings.TrimSpace(first)

	for _, marker := range []string{"//", "#", "--"} {
		if rest, ok := strings.CutPrefix(first, marker); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
