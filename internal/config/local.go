package config

import "path/filepath"

const (
	// ProjectDir holds the per-project settings files.
	ProjectDir = ".loom"
	// ProjectFileName is committed with the project.
	ProjectFileName = "settings.toml"
	// LocalFileName is git-ignored and holds personal overrides and tokens.
	LocalFileName = "settings.local.toml"
)

// ProjectPaths returns the project and local settings paths for root.
func ProjectPaths(root string) (project, local string) {
	dir := filepath.Join(root, ProjectDir)
	return filepath.Join(dir, ProjectFileName), filepath.Join(dir, LocalFileName)
}

// LoadProject merges the project and local layers of root onto base.
// Missing files are skipped. The result is not yet validated.
func LoadProject(base Settings, root string) (Settings, error) {
	merged := base
	project, local := ProjectPaths(root)
	for _, path := range []string{project, local} {
		layer, err := readLayer(path)
		if err != nil {
			return base, err
		}
		if layer != nil {
			merged = Merge(merged, *layer)
		}
	}
	return merged, nil
}
