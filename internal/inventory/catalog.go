// Package inventory serves the vehicle listing behind GET /api/cars. The
// embedded seed catalog ships with the binary; an optional override file
// replaces it at startup and, when watching is enabled, on every change to
// the file on disk.
package inventory

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/virtuolot/showroom-assist-service/config"
	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
)

//go:embed data/catalog.json
var embeddedCatalog []byte

// Catalog is the process-wide vehicle listing. Reads vastly outnumber the
// rare reload, hence the RWMutex.
type Catalog struct {
	logger *slog.Logger
	path   string

	mu   sync.RWMutex
	cars []model.Car

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewCatalog loads the embedded seed data, then the override file when one
// is configured. A missing or broken override file fails startup: serving
// the wrong showroom floor silently is worse than not starting.
func NewCatalog(logger *slog.Logger, cfg *config.Config) (*Catalog, error) {
	c := &Catalog{
		logger: logger,
		path:   cfg.Inventory.CatalogPath,
	}

	cars, err := parseCatalog(embeddedCatalog)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	c.cars = cars

	if c.path != "" {
		if err := c.reload(); err != nil {
			return nil, err
		}
	}

	logger.Info("[INVENTORY] catalog loaded",
		slog.Int("cars", len(c.cars)),
		slog.String("source", c.source()),
	)
	return c, nil
}

// Cars returns a copy of the current listing.
func (c *Catalog) Cars() []model.Car {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Car, len(c.cars))
	copy(out, c.cars)
	return out
}

// Len reports the current listing size.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cars)
}

func (c *Catalog) source() string {
	if c.path == "" {
		return "embedded"
	}
	return c.path
}

func (c *Catalog) reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read catalog file %q: %w", c.path, err)
	}
	cars, err := parseCatalog(data)
	if err != nil {
		return fmt.Errorf("catalog file %q: %w", c.path, err)
	}

	c.mu.Lock()
	c.cars = cars
	c.mu.Unlock()
	return nil
}

// Watch reloads the catalog whenever the override file changes. Editors
// commonly replace rather than rewrite, so the parent directory is watched
// and events are filtered by name.
func (c *Catalog) Watch() error {
	if c.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %q: %w", filepath.Dir(c.path), err)
	}

	c.watcher = watcher
	c.done = make(chan struct{})
	go c.watchLoop()

	c.logger.Info("[INVENTORY] watching catalog file", slog.String("path", c.path))
	return nil
}

func (c *Catalog) watchLoop() {
	defer close(c.done)

	target := filepath.Clean(c.path)
	for {
		select {
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			// A bad edit keeps the previous listing; the operator sees
			// the parse failure in the log and fixes the file.
			if err := c.reload(); err != nil {
				c.logger.Error("[INVENTORY] catalog reload failed", "err", err)
				continue
			}
			c.logger.Info("[INVENTORY] catalog reloaded", slog.Int("cars", c.Len()))

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("[INVENTORY] catalog watcher error", "err", err)
		}
	}
}

// Close stops the watcher, if one was started.
func (c *Catalog) Close() error {
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	<-c.done
	return err
}

func parseCatalog(data []byte) ([]model.Car, error) {
	var cars []model.Car
	if err := json.Unmarshal(data, &cars); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cars) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return cars, nil
}
