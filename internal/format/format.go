// Package format renders dispatch results as display strings using
// per-locale message templates.
//
// Templates are looked up by message key. A key missing from the
// requested locale falls back to the configured default locale, then to
// English, then to the generic "fallback" template. Rendering never fails.
package format

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/nadzzz/echowise/internal/dispatch"
)

// FallbackKey names the generic template used when nothing else matches.
const FallbackKey = "fallback"

// lastResort is returned when no table defines FallbackKey.
const lastResort = "Sorry, something went wrong."

//go:embed locales/*.yaml
var builtin embed.FS

// Formatter renders results. It is immutable after construction and safe
// for concurrent use.
type Formatter struct {
	tables   map[language.Tag]map[string]string
	tags     []language.Tag
	matcher  language.Matcher
	fallback language.Tag
}

// New builds a Formatter from the built-in tables, optionally merged with
// an override file mapping locale tags to key/template pairs.
func New(defaultLocale, overrideFile string) (*Formatter, error) {
	def, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, fmt.Errorf("parsing default locale %q: %w", defaultLocale, err)
	}

	tables, err := loadBuiltin()
	if err != nil {
		return nil, err
	}
	if overrideFile != "" {
		data, err := os.ReadFile(overrideFile)
		if err != nil {
			return nil, fmt.Errorf("reading strings file: %w", err)
		}
		if err := merge(tables, data); err != nil {
			return nil, fmt.Errorf("strings file %s: %w", overrideFile, err)
		}
	}
	return newFormatter(def, tables), nil
}

// NewFromTables builds a Formatter from explicit tables keyed by locale tag.
func NewFromTables(defaultLocale string, tables map[string]map[string]string) (*Formatter, error) {
	def, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, fmt.Errorf("parsing default locale %q: %w", defaultLocale, err)
	}
	parsed := make(map[language.Tag]map[string]string, len(tables))
	for loc, tbl := range tables {
		tag, err := language.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("parsing locale %q: %w", loc, err)
		}
		parsed[tag] = tbl
	}
	return newFormatter(def, parsed), nil
}

func newFormatter(def language.Tag, tables map[language.Tag]map[string]string) *Formatter {
	// The default locale comes first so the matcher prefers it on ties.
	tags := []language.Tag{def}
	rest := make([]language.Tag, 0, len(tables))
	for tag := range tables {
		if tag != def {
			rest = append(rest, tag)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].String() < rest[j].String() })
	tags = append(tags, rest...)

	return &Formatter{
		tables:   tables,
		tags:     tags,
		matcher:  language.NewMatcher(tags),
		fallback: def,
	}
}

func loadBuiltin() (map[language.Tag]map[string]string, error) {
	entries, err := builtin.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("reading built-in locales: %w", err)
	}
	tables := make(map[language.Tag]map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		tag, err := language.Parse(strings.TrimSuffix(name, path.Ext(name)))
		if err != nil {
			return nil, fmt.Errorf("built-in locale %s: %w", name, err)
		}
		data, err := builtin.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		tbl := make(map[string]string)
		if err := yaml.Unmarshal(data, &tbl); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
		tables[tag] = tbl
	}
	return tables, nil
}

// merge overlays a document of the form {locale: {key: template}}.
func merge(tables map[language.Tag]map[string]string, data []byte) error {
	var doc map[string]map[string]string
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding: %w", err)
	}
	for loc, entries := range doc {
		tag, err := language.Parse(loc)
		if err != nil {
			return fmt.Errorf("locale %q: %w", loc, err)
		}
		tbl, ok := tables[tag]
		if !ok {
			tbl = make(map[string]string, len(entries))
			tables[tag] = tbl
		}
		for k, v := range entries {
			tbl[k] = v
		}
	}
	return nil
}

// Resolve returns the supported locale that best serves the requested tag.
// Unparseable or unsupported requests resolve to the default locale.
func (f *Formatter) Resolve(locale string) language.Tag {
	if locale == "" {
		return f.fallback
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return f.fallback
	}
	_, idx, conf := f.matcher.Match(tag)
	if conf == language.No {
		return f.fallback
	}
	return f.tags[idx]
}

// Format renders result in locale.
func (f *Formatter) Format(result dispatch.Result, locale string) string {
	return f.Render(result.Key, result.Values, locale)
}

// Render substitutes values into the template for key.
func (f *Formatter) Render(key string, values map[string]string, locale string) string {
	tmpl, ok := f.lookup(key, f.Resolve(locale))
	if !ok {
		return lastResort
	}
	return substitute(tmpl, values)
}

func (f *Formatter) lookup(key string, tag language.Tag) (string, bool) {
	chain := []language.Tag{tag, f.fallback, language.English}
	for _, k := range []string{key, FallbackKey} {
		for _, t := range chain {
			if tmpl, ok := f.tables[t][k]; ok && k != "" {
				return tmpl, true
			}
		}
	}
	return "", false
}

func substitute(tmpl string, values map[string]string) string {
	if len(values) == 0 {
		return tmpl
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "{"+name+"}", values[name])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
