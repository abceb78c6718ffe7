// Package i18n holds the UI labels and WMO weather-code descriptions for
// every supported language.
package i18n

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/lox/hourlyweather/internal/forecast"
)

// DefaultLanguage is used when nothing better matches.
const DefaultLanguage = "en"

//go:embed catalog.yaml
var embedded []byte

type entry struct {
	Labels  map[string]string `yaml:"labels"`
	Unknown string            `yaml:"unknown"`
	Day     map[int]string    `yaml:"day"`
	Night   map[int]string    `yaml:"night"`
}

// Catalog is a read-only set of translations keyed by base language.
type Catalog struct {
	entries map[string]entry
	tags    []language.Tag
	langs   []string
	matcher language.Matcher
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("i18n: embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path and layers it over the embedded one.
// An empty path returns the embedded catalog unchanged.
func Load(path string) (*Catalog, error) {
	base := Default()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return base.merge(override), nil
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]entry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("parse catalog: no languages")
	}
	for lang := range raw {
		if _, err := language.Parse(lang); err != nil {
			return nil, fmt.Errorf("parse catalog: language %q: %w", lang, err)
		}
	}
	return newCatalog(raw), nil
}

func newCatalog(entries map[string]entry) *Catalog {
	c := &Catalog{entries: entries}
	for lang := range entries {
		c.langs = append(c.langs, lang)
	}
	// The matcher falls back to its first tag.
	sort.Slice(c.langs, func(i, j int) bool {
		if c.langs[i] == DefaultLanguage {
			return true
		}
		if c.langs[j] == DefaultLanguage {
			return false
		}
		return c.langs[i] < c.langs[j]
	})
	for _, lang := range c.langs {
		c.tags = append(c.tags, language.MustParse(lang))
	}
	c.matcher = language.NewMatcher(c.tags)
	return c
}

func (c *Catalog) merge(o *Catalog) *Catalog {
	out := make(map[string]entry, len(c.entries))
	for lang, e := range c.entries {
		out[lang] = e
	}
	for lang, oe := range o.entries {
		e := out[lang]
		e.Labels = mergeMap(e.Labels, oe.Labels)
		e.Day = mergeMap(e.Day, oe.Day)
		e.Night = mergeMap(e.Night, oe.Night)
		if oe.Unknown != "" {
			e.Unknown = oe.Unknown
		}
		out[lang] = e
	}
	return newCatalog(out)
}

func mergeMap[K comparable](a, b map[K]string) map[K]string {
	out := make(map[K]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Languages lists the available languages, default first.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.langs...)
}

// Match picks the best catalog language for an Accept-Language header
// value or a bare language code.
func (c *Catalog) Match(accept string) string {
	if _, ok := c.entries[accept]; ok {
		return accept
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return c.langs[0]
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.langs[0]
	}
	return c.langs[idx]
}

// Label returns the text for key in lang, falling back to the default
// language and then to the key itself.
func (c *Catalog) Label(lang, key string) string {
	if v, ok := c.entries[lang].Labels[key]; ok {
		return v
	}
	if v, ok := c.entries[DefaultLanguage].Labels[key]; ok {
		return v
	}
	return key
}

// Labels returns every label for lang with default-language fallbacks filled in.
func (c *Catalog) Labels(lang string) map[string]string {
	out := mergeMap(c.entries[DefaultLanguage].Labels, c.entries[lang].Labels)
	return out
}

// Descriptions returns the weather-code tables for lang. Codes missing from
// lang use the default language's text.
func (c *Catalog) Descriptions(lang string) forecast.Descriptions {
	def := c.entries[DefaultLanguage]
	e := c.entries[lang]
	unknown := e.Unknown
	if unknown == "" {
		unknown = def.Unknown
	}
	return forecast.Descriptions{
		Day:     forecast.CodeTable(mergeMap(def.Day, e.Day)),
		Night:   forecast.CodeTable(mergeMap(def.Night, e.Night)),
		Unknown: unknown,
	}
}
