package common

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Settings are the values an optional config file may override.
type Settings struct {
	Admin               string `toml:"admin"`
	OperationsRecipient string `toml:"operationsRecipient"`
	DailyBurn           int64  `toml:"dailyBurn"`
	HealthSchedule      string `toml:"healthSchedule"`
}

// ReadSettingsFile decodes filename into a copy of base. Keys missing from the
// file keep the value they have in base.
func ReadSettingsFile(filename string, base Settings) (Settings, error) {
	if filename == "" {
		return base, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return base, fmt.Errorf("unable to read config file %s: %w", filename, err)
	}

	result := base

	err = toml.Unmarshal(data, &result)
	if err != nil {
		return base, fmt.Errorf("unable to decode config file %s: %w", filename, err)
	}

	return result, nil
}
