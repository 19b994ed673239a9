package cmd

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/ancestry/internal/ancestry"
	"github.com/Aman-CERP/ancestry/internal/config"
	"github.com/Aman-CERP/ancestry/internal/hierarchy"
	"github.com/Aman-CERP/ancestry/internal/schema"
	"github.com/Aman-CERP/ancestry/internal/store"
)

// project bundles the configuration and files of one ancestry project.
type project struct {
	cfg       *config.Config
	hierarchy *hierarchy.FileStore
}

// openProject loads the configuration of the project containing dir.
func openProject(dir string) (*project, error) {
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return &project{
		cfg:       cfg,
		hierarchy: hierarchy.NewFileStore(cfg.Path(cfg.Index.Hierarchy)),
	}, nil
}

func (p *project) indexID() string {
	return p.cfg.Index.ID
}

func (p *project) schemaPath() string {
	return p.cfg.Path(p.cfg.Index.Schema)
}

func (p *project) entityDBPath() string {
	return p.cfg.Path(p.cfg.Store.EntityDB)
}

func (p *project) searchIndexPath() string {
	return p.cfg.Path(p.cfg.Store.SearchIndex)
}

func (p *project) loadSchema() (*schema.Schema, error) {
	return schema.LoadSchema(p.schemaPath())
}

func (p *project) inspector(src schema.Source) (*schema.Inspector, error) {
	return schema.NewInspector(src, schema.WithCacheSize(p.cfg.Performance.OptionsCacheSize))
}

// openEntities opens the entity database. With mustExist set a missing
// database is reported instead of created empty.
func (p *project) openEntities(mustExist bool) (*store.SQLiteEntities, error) {
	path := p.entityDBPath()
	if mustExist && !fileExists(path) {
		return nil, fmt.Errorf("no entity database at %s\nRun 'ancestry load <file>' first", path)
	}
	return store.OpenEntities(path)
}

func (p *project) openSearch() (*store.BleveSink, error) {
	return store.NewBleveSink(p.searchIndexPath())
}

func (p *project) limits() ancestry.Limits {
	return ancestry.Limits{
		MaxVisited: p.cfg.Traversal.MaxVisited,
		MaxDepth:   p.cfg.Traversal.MaxDepth,
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
