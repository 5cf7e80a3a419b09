package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/keywatch/keywatch/internal/matching"
)

// LoadMatchingConfig loads the matching language data (thresholds,
// confusables, suffixes, script tables) from a YAML file. When path is
// empty a few standard locations are probed; with no file anywhere the
// built-in defaults apply. Empty sections fall back to their defaults so a
// deployment can override just the confusable list.
func LoadMatchingConfig(configPath string) (matching.Config, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/matching.yaml",
			"./configs/matching.yaml",
			"/etc/keywatch/matching.yaml",
		}
		if wd, err := os.Getwd(); err == nil {
			paths = append(paths, filepath.Join(wd, "configs", "matching.yaml"))
		}
	}

	var (
		data       []byte
		loadedPath string
	)
	for _, p := range paths {
		if p == "" {
			continue
		}
		if b, err := os.ReadFile(p); err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		fmt.Println("[Config] No matching.yaml found, using built-in language data")
		return matching.DefaultConfig(), nil
	}

	fmt.Printf("[Config] Loading matching config from: %s\n", loadedPath)

	var cfg matching.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return matching.Config{}, fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}

	fillMatchingDefaults(&cfg)
	return cfg, nil
}

func fillMatchingDefaults(cfg *matching.Config) {
	defaults := matching.DefaultConfig()
	if len(cfg.Thresholds) == 0 {
		cfg.Thresholds = defaults.Thresholds
	}
	if len(cfg.Suffixes) == 0 {
		cfg.Suffixes = defaults.Suffixes
	}
	if len(cfg.Scripts) == 0 {
		cfg.Scripts = defaults.Scripts
	}
}
