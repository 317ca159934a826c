package app

import (
	"fmt"
	"path/filepath"
	"strings"

	coreconfig "github.com/m3rciful/achibot/core/config"
	"github.com/m3rciful/achibot/internal/bot"
	"github.com/m3rciful/achibot/internal/classifier"
	"github.com/m3rciful/achibot/internal/navigation"
)

// SourceConfig names one classifier artifact.
type SourceConfig struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	Path  string `yaml:"path"`
}

// ClassifiersConfig lists the artifacts loaded at startup.
type ClassifiersConfig struct {
	Default string         `yaml:"default" envconfig:"CLASSIFIER_DEFAULT"`
	Sources []SourceConfig `yaml:"sources" ignored:"true"`
	// DataDir prefixes relative artifact paths.
	DataDir string `yaml:"data_dir" envconfig:"CLASSIFIER_DATA_DIR"`
}

// NavigationConfig tunes menu rendering.
type NavigationConfig struct {
	Order       string `yaml:"order" envconfig:"NAV_ORDER"`
	AutoSkip    bool   `yaml:"auto_skip" envconfig:"NAV_AUTO_SKIP"`
	BackLabel   string `yaml:"back_label" envconfig:"NAV_BACK_LABEL"`
	SearchLimit int    `yaml:"search_limit" envconfig:"NAV_SEARCH_LIMIT"`
}

// Config is the application configuration: the core sections inline plus
// classifier and navigation settings.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Classifiers ClassifiersConfig `yaml:"classifiers"`
	Navigation  NavigationConfig  `yaml:"navigation"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

var defaultSources = []SourceConfig{
	{Name: "achi", Title: "АКМІ", Path: "achi.json"},
	{Name: "mkh10", Title: "МКХ-10", Path: "mkh10.json"},
}

// Load reads the YAML file at path, overlays the environment and validates.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	cl := &c.Classifiers
	if len(cl.Sources) == 0 {
		cl.Sources = append([]SourceConfig(nil), defaultSources...)
	}
	if cl.DataDir == "" {
		cl.DataDir = "data"
	}
	seen := make(map[string]struct{}, len(cl.Sources))
	for i := range cl.Sources {
		s := &cl.Sources[i]
		s.Name = strings.ToLower(strings.TrimSpace(s.Name))
		s.Path = strings.TrimSpace(s.Path)
		if s.Name == "" || s.Path == "" {
			return fmt.Errorf("classifiers.sources[%d]: name and path are required", i)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("classifiers.sources: duplicate name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	cl.Default = strings.ToLower(strings.TrimSpace(cl.Default))
	if cl.Default != "" {
		if _, ok := seen[cl.Default]; !ok {
			return fmt.Errorf("classifiers.default %q is not among the sources", cl.Default)
		}
	}

	n := &c.Navigation
	if _, ok := navigation.ParseOrder(n.Order); !ok {
		return fmt.Errorf("invalid navigation.order %q; allowed: insertion, sorted", n.Order)
	}
	if n.SearchLimit < 0 {
		return fmt.Errorf("navigation.search_limit must be >= 0")
	}
	if n.SearchLimit == 0 {
		n.SearchLimit = bot.DefaultSearchLimit
	}
	return nil
}

// CatalogSources resolves artifact paths against DataDir.
func (c *Config) CatalogSources() []classifier.Source {
	out := make([]classifier.Source, 0, len(c.Classifiers.Sources))
	for _, s := range c.Classifiers.Sources {
		path := s.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.Classifiers.DataDir, path)
		}
		out = append(out, classifier.Source{Name: s.Name, Title: s.Title, Path: path})
	}
	return out
}

// NavigationOptions converts the navigation section into engine options.
func (c *Config) NavigationOptions() navigation.Options {
	order, _ := navigation.ParseOrder(c.Navigation.Order)
	return navigation.Options{
		Order:     order,
		AutoSkip:  c.Navigation.AutoSkip,
		BackLabel: strings.TrimSpace(c.Navigation.BackLabel),
	}
}
