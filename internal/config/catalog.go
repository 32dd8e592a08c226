package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CatalogFile is an importable shift catalog for one shift group.
type CatalogFile struct {
	Group      string            `yaml:"group"`
	ShiftTypes []ShiftTypeConfig `yaml:"shift_types"`
}

// ShiftTypeConfig is one shift type and the weekdays (0 = Monday) it is
// offered on.
type ShiftTypeConfig struct {
	Name     string `yaml:"name"`
	Subname  string `yaml:"subname"`
	Group    string `yaml:"group"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Weekdays []int  `yaml:"weekdays"`
}

// LoadCatalog reads and validates a catalog file.
func LoadCatalog(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog unmarshals and validates catalog YAML.
func ParseCatalog(data []byte) (*CatalogFile, error) {
	var cat CatalogFile
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("config: parse catalog: %w", err)
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *CatalogFile) validate() error {
	var errs []string
	if c.Group == "" {
		errs = append(errs, "group is required")
	}
	if len(c.ShiftTypes) == 0 {
		errs = append(errs, "at least one shift type is required")
	}
	seen := make(map[string]bool)
	for i, st := range c.ShiftTypes {
		if st.Name == "" {
			errs = append(errs, fmt.Sprintf("shift_types[%d].name is required", i))
		}
		key := st.Name + "-" + st.Subname
		if seen[key] {
			errs = append(errs, fmt.Sprintf("shift_types[%d] duplicates %q", i, key))
		}
		seen[key] = true
		switch st.Group {
		case "day", "evening", "night":
		default:
			errs = append(errs, fmt.Sprintf("shift_types[%d].group %q must be day, evening or night", i, st.Group))
		}
		if len(st.Weekdays) == 0 {
			errs = append(errs, fmt.Sprintf("shift_types[%d].weekdays is required", i))
		}
		days := make(map[int]bool)
		for _, wd := range st.Weekdays {
			if wd < 0 || wd > 6 {
				errs = append(errs, fmt.Sprintf("shift_types[%d].weekdays: %d out of range 0..6", i, wd))
			}
			if days[wd] {
				errs = append(errs, fmt.Sprintf("shift_types[%d].weekdays: %d listed twice", i, wd))
			}
			days[wd] = true
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: catalog validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
