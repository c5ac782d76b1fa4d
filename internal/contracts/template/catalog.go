package template

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Catalog is the closed list of placeholder tokens a template may use, with
// the subset every template must carry. Loaded once at startup and treated as
// immutable.
type Catalog struct {
	Allowed  []string `json:"allowed"`
	Required []string `json:"required"`

	allowedSet map[string]struct{}
}

// LoadCatalog reads a catalog JSON file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read placeholder catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog parses catalog JSON.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse placeholder catalog: %w", err)
	}
	if len(c.Allowed) == 0 {
		return nil, fmt.Errorf("placeholder catalog has no allowed tokens")
	}
	c.allowedSet = make(map[string]struct{}, len(c.Allowed))
	for _, token := range c.Allowed {
		c.allowedSet[token] = struct{}{}
	}
	return &c, nil
}

// Allows reports whether a token is in the allow-list.
func (c *Catalog) Allows(token string) bool {
	_, ok := c.allowedSet[token]
	return ok
}

// IsControlToken reports whether a token is conditional syntax rather than a
// placeholder.
func IsControlToken(token string) bool {
	return strings.HasPrefix(token, "[[IF.") || strings.HasPrefix(token, "[[ENDIF.")
}

func uniqueSorted(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	var out []string
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
