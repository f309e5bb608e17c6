package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwatch/slotwatch/pkg/lists"
	"github.com/slotwatch/slotwatch/pkg/snapshot"
	"github.com/slotwatch/slotwatch/pkg/storage"
	"github.com/slotwatch/slotwatch/pkg/traverse"
)

// workdir points every file setting at a fresh temp dir.
func workdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	viper.Reset()
	setDefaults()
	t.Cleanup(viper.Reset)
	for key, name := range map[string]string{
		"files.blacklist": "blacklist.txt",
		"files.whitelist": "whitelist.txt",
		"files.window":    "time_window.json",
		"files.url":       "rmv_url.txt",
		"files.datadir":   "data",
		"files.db":        "slotwatch.sqlite",
	} {
		viper.Set(key, filepath.Join(dir, name))
	}
	viper.Set("notify.mode", "none")
	return dir
}

func runBrowseLoop(t *testing.T) error {
	t.Helper()
	require.NoError(t, browseCmd.Flags().Set("interval", "50ms"))
	t.Cleanup(func() { browseCmd.Flags().Set("interval", "0") })

	done := make(chan error, 1)
	go func() { done <- browseCmd.RunE(browseCmd, nil) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("browse kept looping on a configuration error")
		return nil
	}
}

func TestBrowseLoopStopsWithoutTargetURL(t *testing.T) {
	workdir(t)

	err := runBrowseLoop(t)
	assert.ErrorIs(t, err, lists.ErrMissingTargetURL)
}

func TestBrowseRejectsUnknownNotifyMode(t *testing.T) {
	dir := workdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rmv_url.txt"), []byte("https://example.test/book\n"), 0o644))
	viper.Set("notify.mode", "pager")

	err := runBrowseLoop(t)
	assert.ErrorIs(t, err, errUnknownNotifyMode)
}

func TestIsConfigError(t *testing.T) {
	assert.True(t, isConfigError(lists.ErrMissingTargetURL))
	assert.True(t, isConfigError(errors.Join(errors.New("x"), errUnknownNotifyMode)))
	assert.False(t, isConfigError(traverse.ErrRecoveryFailed))
}

func TestSaveRunSkipsSnapshotWhenNothingWasVisited(t *testing.T) {
	dir := workdir(t)
	s := loadSettings()
	runErr := errors.New("open https://example.test/book: timeout")

	err := saveRun(context.Background(), s, lists.Set{}, &traverse.Result{}, runErr, time.Now(), false, true)
	assert.Equal(t, runErr, err)

	_, statErr := os.Stat(filepath.Join(dir, "data"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveRunOnlySweepsFullyReadLocations(t *testing.T) {
	dir := workdir(t)
	s := loadSettings()
	ctx := context.Background()
	start := time.Unix(1743508800, 0)

	db, err := storage.Open(s.DBPath)
	require.NoError(t, err)
	_, err = db.RecordSnapshot(ctx, snapshot.Snapshot{
		"Boston": {"2025-04-10": {"09:00"}},
		"Lowell": {"2025-04-11": {"08:00"}},
	}, start, []string{"Boston", "Lowell"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	res := &traverse.Result{Locations: []traverse.LocationRecord{
		{Location: "Boston", Complete: true, Pages: []traverse.RawPageRecord{{Location: "Boston", Complete: true}}},
		{Location: "Lowell", Pages: []traverse.RawPageRecord{{Location: "Lowell"}}},
	}}
	require.NoError(t, saveRun(ctx, s, lists.Set{}, res, nil, start.Add(time.Hour), true, false))

	db, err = storage.Open(s.DBPath)
	require.NoError(t, err)
	defer db.Close()
	slots, err := db.ListSlots(ctx, storage.ListOptions{})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "Lowell", slots[0].Location)

	entries, err := os.ReadDir(filepath.Join(dir, "data"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	whitelist, err := lists.Load(s.WhitelistPath)
	require.NoError(t, err)
	assert.True(t, whitelist.Has("Lowell"))
}
