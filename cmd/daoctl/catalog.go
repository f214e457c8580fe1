package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/dao/dialect/sql/schema"
)

// catalog lists the tables daoctl knows about.
type catalog struct {
	Tables []tableSpec `yaml:"tables"`
}

type tableSpec struct {
	Name    string           `yaml:"name"`
	Columns []*schema.Column `yaml:"columns"`
}

// existing returns path, or "" when it is the default file and does not
// exist.
func existing(path string) string {
	if path != defaultConfigFile {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ""
	}
	return path
}

func loadCatalog(path string) (*catalog, error) {
	c := &catalog{}
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// tables returns the schema of every catalog table.
func (c *catalog) tables() []*schema.Table {
	out := make([]*schema.Table, 0, len(c.Tables))
	for _, t := range c.Tables {
		out = append(out, schema.NewTable(t.Name, t.Columns...))
	}
	return out
}

// table returns the named table. Names match case-insensitively.
func (c *catalog) table(name string) (*schema.Table, error) {
	for _, t := range c.Tables {
		if strings.EqualFold(t.Name, name) {
			return schema.NewTable(t.Name, t.Columns...), nil
		}
	}
	return nil, fmt.Errorf("table %q is not in the catalog", name)
}
