package inventory

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtuolot/showroom-assist-service/config"
	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
)

func newTestCatalog(t *testing.T, path string) (*Catalog, error) {
	t.Helper()
	cfg := &config.Config{Inventory: config.InventoryConfig{CatalogPath: path}}
	return NewCatalog(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
}

func writeCars(t *testing.T, path string, n int) {
	t.Helper()
	cars := make([]model.Car, n)
	for i := range cars {
		cars[i] = model.Car{
			ID:    fmt.Sprintf("test-%03d", i+1),
			Make:  "Testmake",
			Model: "Roadster",
			Year:  2024,
			Price: 19999,
		}
	}
	data, err := json.Marshal(cars)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestCatalogServesEmbeddedSeed(t *testing.T) {
	c, err := newTestCatalog(t, "")
	require.NoError(t, err)

	assert.Equal(t, 10, c.Len())
	cars := c.Cars()
	require.NotEmpty(t, cars)
	assert.Equal(t, "car-001", cars[0].ID)
	assert.Equal(t, "Toyota", cars[0].Make)
}

func TestCatalogCarsReturnsACopy(t *testing.T) {
	c, err := newTestCatalog(t, "")
	require.NoError(t, err)

	cars := c.Cars()
	cars[0].ID = "mutated"

	assert.Equal(t, "car-001", c.Cars()[0].ID)
}

func TestCatalogOverrideFileReplacesSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	writeCars(t, path, 2)

	c, err := newTestCatalog(t, path)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "test-001", c.Cars()[0].ID)
}

func TestCatalogBrokenOverrideFailsStartup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := newTestCatalog(t, path)
	assert.ErrorContains(t, err, "parse catalog")
}

func TestCatalogEmptyOverrideRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	_, err := newTestCatalog(t, path)
	assert.ErrorContains(t, err, "catalog is empty")
}

func TestCatalogMissingOverrideFailsStartup(t *testing.T) {
	_, err := newTestCatalog(t, filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestCatalogWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	writeCars(t, path, 2)

	c, err := newTestCatalog(t, path)
	require.NoError(t, err)
	require.NoError(t, c.Watch())
	defer c.Close()

	writeCars(t, path, 3)
	require.Eventually(t, func() bool { return c.Len() == 3 },
		3*time.Second, 20*time.Millisecond, "the rewrite must be picked up")

	// A bad edit keeps the previous listing.
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 3, c.Len())
}

func TestCatalogCloseWithoutWatcher(t *testing.T) {
	c, err := newTestCatalog(t, "")
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
