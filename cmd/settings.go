package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/matching"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
)

// SettingsShow prints the matching settings as TOML, the same form they are stored in.
func (r *Runner) SettingsShow(ctx context.Context, cmd *cli.Command) error {
	settings, err := r.settingsFile().Load()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(settings, true)
	}

	r.writePlain("%s\n", ui.Muted("# "+r.settingsFile().Path()))
	if err := toml.NewEncoder(r.output).Encode(settings); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return nil
}

// SettingsSet changes a single setting and saves the file.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	key := strings.TrimSpace(cmd.StringArg("key"))
	value := cmd.StringArg("value")
	if key == "" {
		return fmt.Errorf("%w: setting key (see 'mixtape settings keys')", shared.ErrMissingArgument)
	}

	if _, err := r.settingsFile().Update(func(s matching.Settings) (matching.Settings, error) {
		return matching.Set(s, key, value)
	}); err != nil {
		return err
	}

	r.logger.Info("updated matching setting", "key", key, "value", value)
	return r.writePlain("%s\n", ui.Success(fmt.Sprintf("✓ %s = %s", key, value)))
}

// SettingsKeys lists the setting names accepted by set.
func (r *Runner) SettingsKeys(ctx context.Context, cmd *cli.Command) error {
	for _, key := range matching.Keys() {
		if err := r.writePlain("%s\n", key); err != nil {
			return err
		}
	}
	return nil
}

// SettingsReset restores the defaults.
func (r *Runner) SettingsReset(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.settingsFile().Reset(); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Success("✓ Matching settings reset to defaults"))
}
