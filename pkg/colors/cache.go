package colors

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/helen-caroline/create-atas/pkg/config"
)

const (
	cacheFile = "company_colors.json"

	// NoCompanyColor is Graphite, for meetings without a company tag.
	NoCompanyColor = "8"
	// paletteSize is the number of event colors Google Calendar offers.
	paletteSize = 11
)

type CompanyColor struct {
	ColorID  string    `json:"color_id"`
	LastUsed time.Time `json:"last_used"`
}

// ColorCache hands out calendar colors per company, recycling the least
// recently used one when the palette runs out.
type ColorCache struct {
	Path      string                   `json:"-"`
	Companies map[string]*CompanyColor `json:"companies"`
	dirty     bool
	now       func() time.Time
}

func NewColorCache() (*ColorCache, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return NewColorCacheAt(filepath.Join(dir, cacheFile))
}

// NewColorCacheAt loads the cache stored at path, if any.
func NewColorCacheAt(path string) (*ColorCache, error) {
	cache := &ColorCache{
		Path:      path,
		Companies: make(map[string]*CompanyColor),
		now:       time.Now,
	}
	if _, err := os.Stat(path); err == nil {
		if err := cache.Load(); err != nil {
			return nil, err
		}
	}
	return cache, nil
}

func (c *ColorCache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(&c.Companies)
}

func (c *ColorCache) Save() error {
	if !c.dirty {
		return nil
	}
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		log.Printf("Error creating color cache directory: %v", err)
		return err
	}

	f, err := os.Create(c.Path)
	if err != nil {
		log.Printf("Error creating color cache file: %v", err)
		return err
	}
	defer f.Close()
	err = json.NewEncoder(f).Encode(c.Companies)
	if err == nil {
		c.dirty = false
	}
	return err
}

// GetColorID returns the color of company, assigning one on first use.
// Company names compare case-insensitively.
func (c *ColorCache) GetColorID(company string) string {
	key := strings.ToUpper(strings.TrimSpace(company))
	if key == "" {
		return NoCompanyColor
	}

	if state, ok := c.Companies[key]; ok {
		state.LastUsed = c.now()
		c.dirty = true
		return state.ColorID
	}
	return c.assignColor(key)
}

func (c *ColorCache) assignColor(company string) string {
	used := make(map[string]bool)
	for _, s := range c.Companies {
		used[s.ColorID] = true
	}

	for i := 1; i <= paletteSize; i++ {
		id := strconv.Itoa(i)
		if id == NoCompanyColor || used[id] {
			continue
		}
		c.Companies[company] = &CompanyColor{ColorID: id, LastUsed: c.now()}
		c.dirty = true
		return id
	}

	// Palette exhausted: take over the color of the least recently used company.
	var oldest string
	for name, s := range c.Companies {
		if oldest == "" || s.LastUsed.Before(c.Companies[oldest].LastUsed) {
			oldest = name
		}
	}
	if oldest == "" {
		return "1"
	}
	recycled := c.Companies[oldest].ColorID
	delete(c.Companies, oldest)
	c.Companies[company] = &CompanyColor{ColorID: recycled, LastUsed: c.now()}
	c.dirty = true
	return recycled
}
