package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kentyler/accessclone-sub006/pkg/translate"
)

// descriptorFile is the YAML shape of a query descriptor file. A file holds
// either a single descriptor or a queries list.
type descriptorFile struct {
	translate.QueryDescriptor `yaml:",inline"`
	Queries                   []translate.QueryDescriptor `yaml:"queries,omitempty"`
}

// loadDescriptors reads every .yaml/.yml file under dir and returns the
// descriptors in file-name order.
func loadDescriptors(dir string) ([]translate.QueryDescriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	var descriptors []translate.QueryDescriptor
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		var f descriptorFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if len(f.Queries) > 0 {
			descriptors = append(descriptors, f.Queries...)
			continue
		}
		if f.Name == "" {
			return nil, fmt.Errorf("%s: descriptor has no name", path)
		}
		descriptors = append(descriptors, f.QueryDescriptor)
	}
	return descriptors, nil
}

// loadColumnTypes reads the optional table.column to Postgres type map.
func loadColumnTypes(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read column types file: %w", err)
	}
	types := map[string]string{}
	if err := yaml.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("failed to parse column types file: %w", err)
	}
	lowered := make(map[string]string, len(types))
	for k, v := range types {
		lowered[strings.ToLower(k)] = v
	}
	return lowered, nil
}
