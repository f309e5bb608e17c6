package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwatch/slotwatch/pkg/notify"
	"github.com/slotwatch/slotwatch/pkg/window"
)

func TestLoadSettingsDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()
	t.Cleanup(viper.Reset)

	s := loadSettings()
	assert.Equal(t, "blacklist.txt", s.BlacklistPath)
	assert.Equal(t, "rmv_url.txt", s.URLPath)
	assert.Equal(t, "data", s.DataDir)
	assert.True(t, s.Browser.Headless)
	assert.Equal(t, 3, s.Attempts)
	assert.Equal(t, 50, s.MaxPages)
	assert.Equal(t, "https://vas.im/firefox-alert/?alertText=%s", s.Endpoint)
}

func TestSettingsNotifier(t *testing.T) {
	n, err := settings{NotifyMode: "viewer", Viewer: "firefox"}.notifier()
	require.NoError(t, err)
	assert.Equal(t, notify.Viewer{Command: "firefox"}, n)

	n, err = settings{NotifyMode: "http", NotifyRetries: 1}.notifier()
	require.NoError(t, err)
	assert.IsType(t, &notify.HTTP{}, n)

	n, err = settings{NotifyMode: "none"}.notifier()
	require.NoError(t, err)
	assert.Equal(t, notify.Nop{}, n)

	_, err = settings{NotifyMode: "pager"}.notifier()
	assert.ErrorIs(t, err, errUnknownNotifyMode)
}

func TestDateFlag(t *testing.T) {
	c := &cobra.Command{}
	c.Flags().String("end", "", "")

	got, err := dateFlag(c, "end")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Flags().Set("end", "2025-04-10"))
	got, err = dateFlag(c, "end")
	require.NoError(t, err)
	assert.Equal(t, "2025-04-10", got.Format(window.DateLayout))

	require.NoError(t, c.Flags().Set("end", "04/10/2025"))
	_, err = dateFlag(c, "end")
	assert.ErrorIs(t, err, window.ErrMalformedDate)
}
