package sites

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"bizlist-scraper/utils"
)

//go:embed sites.json
var defaultSitesJSON []byte

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Registry maps site names to implementations.
type Registry struct {
	sites map[string]Site
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sites: make(map[string]Site)}
}

// Register adds s, replacing any site with the same name.
func (r *Registry) Register(s Site) {
	r.sites[strings.ToLower(s.Name())] = s
}

// Get looks up a site by name, case-insensitively.
func (r *Registry) Get(name string) (Site, bool) {
	s, ok := r.sites[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sites))
	for n := range r.sites {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Select resolves names to sites. An empty list or "all" selects every site.
func (r *Registry) Select(names []string) ([]Site, error) {
	if len(names) == 0 || (len(names) == 1 && strings.EqualFold(names[0], "all")) {
		names = r.Names()
	}

	out := make([]Site, 0, len(names))
	var unknown []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n == "" {
			continue
		}
		s, ok := r.Get(n)
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		out = append(out, s)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("sites: unknown site(s) %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(r.Names(), ", "))
	}
	return out, nil
}

// Default returns the built-in marketplace registry.
func Default(logger *utils.Logger) (*Registry, error) {
	return ParseRegistry(defaultSitesJSON, logger)
}

// LoadRegistry builds a Registry from a JSON file of SiteConfigs, or from the
// embedded defaults when path is empty.
func LoadRegistry(path string, logger *utils.Logger) (*Registry, error) {
	if path == "" {
		return Default(logger)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sites: read %q: %w", path, err)
	}
	return ParseRegistry(data, logger)
}

// ParseRegistry decodes a JSON array of SiteConfigs.
func ParseRegistry(data []byte, logger *utils.Logger) (*Registry, error) {
	var cfgs []SiteConfig
	if err := json.Unmarshal(data, &cfgs); err != nil {
		return nil, fmt.Errorf("sites: decode: %w", err)
	}

	r := NewRegistry()
	for _, c := range cfgs {
		s, err := NewSelectorSite(c, logger)
		if err != nil {
			return nil, err
		}
		r.Register(s)
	}
	return r, nil
}
