package injector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminus-core/internal/config"
	"terminus-core/internal/gamemap"
)

func TestInitializeAppWithSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.ChunkSize = 16
	cfg.ChunkRadius = 1
	cfg.LogLevel = "error"
	cfg.DBPath = filepath.Join(dir, "world.db")
	cfg.SnapshotPath = filepath.Join(dir, "world.snap.zst")

	app, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, app.Log)
	w := app.World

	ctx := context.Background()
	w.SetFocus(0, 0, 0)
	_, err = w.Run(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, w.Save(ctx))
	require.NoError(t, w.Restore(ctx))
	require.Equal(t, uint64(3), w.Tick())
}

func TestInitializeAppRejectsBadLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "loud"
	_, _, err := InitializeApp(cfg)
	require.Error(t, err)
}

func TestInitializeAppLoadsStaticMaps(t *testing.T) {
	dir := t.TempDir()
	room := []string{"################"}
	for range 14 {
		room = append(room, "#..............#")
	}
	room = append(room, "################")
	var doc strings.Builder
	doc.WriteString("chunks:\n  - at: [0, 0, 0]\n    rows:\n")
	for _, row := range room {
		doc.WriteString("      - \"" + row + "\"\n")
	}
	path := filepath.Join(dir, "maps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc.String()), 0o644))

	cfg := config.Default()
	cfg.ChunkSize = 16
	cfg.ChunkRadius = 0
	cfg.LogLevel = "error"
	cfg.StaticMapsPath = path

	app, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	defer cleanup()

	w := app.World
	w.SetFocus(0, 0, 0)
	_, err = w.AdvanceTick(context.Background())
	require.NoError(t, err)
	wall, ok := w.Tile(0, 0, 0)
	require.True(t, ok)
	assert.Equal(t, gamemap.TileWall, wall)
	floor, ok := w.Tile(5, 5, 0)
	require.True(t, ok)
	assert.Equal(t, gamemap.TilePavement, floor)
}

func TestInitializeAppRejectsBadStaticMaps(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.StaticMapsPath = filepath.Join(t.TempDir(), "absent.yaml")
	_, _, err := InitializeApp(cfg)
	require.Error(t, err)
}
