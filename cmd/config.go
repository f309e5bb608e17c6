package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/slotwatch/slotwatch/internal/utils"
	"github.com/slotwatch/slotwatch/pkg/browser"
	"github.com/slotwatch/slotwatch/pkg/notify"
)

func setDefaults() {
	viper.SetDefault("files.blacklist", "blacklist.txt")
	viper.SetDefault("files.whitelist", "whitelist.txt")
	viper.SetDefault("files.window", "time_window.json")
	viper.SetDefault("files.url", "rmv_url.txt")
	viper.SetDefault("files.datadir", "data")
	viper.SetDefault("files.db", "slotwatch.sqlite")

	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.navigation_timeout", 30*time.Second)
	viper.SetDefault("browser.wait_timeout", 30*time.Second)
	viper.SetDefault("browser.settle", time.Second)

	viper.SetDefault("scrape.attempts", 3)
	viper.SetDefault("scrape.backoff", time.Second)
	viper.SetDefault("scrape.max_pages", 50)

	viper.SetDefault("notify.mode", "viewer")
	viper.SetDefault("notify.viewer", "firefox")
	viper.SetDefault("notify.retries", 3)
	viper.SetDefault("notify.endpoint", "https://vas.im/firefox-alert/?alertText=%s")
	viper.SetDefault("notify.maps", "https://www.google.com/maps/search/%s/@42.18,-72.51,9z/")
}

// settings is the resolved configuration for one command invocation.
type settings struct {
	BlacklistPath string
	WhitelistPath string
	WindowPath    string
	URLPath       string
	DataDir       string
	DBPath        string

	Browser  browser.Options
	Attempts int
	Backoff  time.Duration
	MaxPages int

	NotifyMode    string
	Viewer        string
	NotifyRetries int
	Endpoint      string
	MapsTemplate  string
}

func loadSettings() settings {
	return settings{
		BlacklistPath: viper.GetString("files.blacklist"),
		WhitelistPath: viper.GetString("files.whitelist"),
		WindowPath:    viper.GetString("files.window"),
		URLPath:       viper.GetString("files.url"),
		DataDir:       viper.GetString("files.datadir"),
		DBPath:        viper.GetString("files.db"),

		Browser: browser.Options{
			Headless:          viper.GetBool("browser.headless"),
			NavigationTimeout: viper.GetDuration("browser.navigation_timeout"),
			WaitTimeout:       viper.GetDuration("browser.wait_timeout"),
			Settle:            viper.GetDuration("browser.settle"),
		},
		Attempts: viper.GetInt("scrape.attempts"),
		Backoff:  viper.GetDuration("scrape.backoff"),
		MaxPages: viper.GetInt("scrape.max_pages"),

		NotifyMode:    viper.GetString("notify.mode"),
		Viewer:        viper.GetString("notify.viewer"),
		NotifyRetries: viper.GetInt("notify.retries"),
		Endpoint:      viper.GetString("notify.endpoint"),
		MapsTemplate:  viper.GetString("notify.maps"),
	}
}

var errUnknownNotifyMode = errors.New("unknown notify.mode")

func (s settings) notifier() (notify.Notifier, error) {
	switch s.NotifyMode {
	case "viewer", "":
		return notify.Viewer{Command: s.Viewer}, nil
	case "http":
		return notify.NewHTTP(s.NotifyRetries, utils.Log), nil
	case "none":
		return notify.Nop{}, nil
	default:
		return nil, fmt.Errorf("%w %q (want viewer, http or none)", errUnknownNotifyMode, s.NotifyMode)
	}
}

// lockWorkdir serializes slotwatch processes sharing the same data directory.
func lockWorkdir(s settings) (*utils.RunLock, error) {
	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return nil, err
	}
	lock, err := utils.NewRunLock(s.DataDir)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	return lock, nil
}
