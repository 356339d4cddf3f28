package indicator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"piripper/internal/config"
	"piripper/internal/faults"
)

const (
	triggerAttr    = "trigger"
	brightnessAttr = "brightness"
)

// Light names one LED class directory.
type Light struct {
	Name string
	Path string
}

// Controller owns the activity (green) and error (red) lights.
type Controller struct {
	Activity  Light
	Error     Light
	ModeToken string
}

// NewController builds a controller from the [indicators] config section.
func NewController(cfg *config.Config) *Controller {
	return &Controller{
		Activity:  Light{Name: "activity", Path: cfg.Indicators.ActivityPath},
		Error:     Light{Name: "error", Path: cfg.Indicators.ErrorPath},
		ModeToken: cfg.Indicators.ModeToken,
	}
}

// Initialize switches both lights into software-controlled mode by writing
// the mode token to each trigger attribute.
func (c *Controller) Initialize() error {
	for _, light := range []Light{c.Activity, c.Error} {
		if err := writeAttr(light, triggerAttr, c.ModeToken); err != nil {
			return err
		}
	}
	return nil
}

// Set turns light on or off.
func (c *Controller) Set(light Light, on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	return writeAttr(light, brightnessAttr, value)
}

// SetActivity is shorthand for Set(c.Activity, on).
func (c *Controller) SetActivity(on bool) error {
	return c.Set(c.Activity, on)
}

// SetError is shorthand for Set(c.Error, on).
func (c *Controller) SetError(on bool) error {
	return c.Set(c.Error, on)
}

// AllOff turns both lights off, attempting each even if the first fails.
func (c *Controller) AllOff() error {
	return errors.Join(c.Set(c.Activity, false), c.Set(c.Error, false))
}

// Brightness reads back the current brightness of light. It is used by
// diagnostics only; the daemon never branches on it.
func (c *Controller) Brightness(light Light) (bool, error) {
	data, err := os.ReadFile(filepath.Join(light.Path, brightnessAttr))
	if err != nil {
		return false, faults.Wrap(faults.ErrDevice, "indicator", "read "+light.Name, "", err)
	}
	for _, b := range data {
		if b >= '1' && b <= '9' {
			return true, nil
		}
	}
	return false, nil
}

// writeAttr opens an existing sysfs attribute for writing. The file is never
// created: a missing attribute means the LED path is wrong.
func writeAttr(light Light, attr, value string) error {
	path := filepath.Join(light.Path, attr)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return faults.Wrap(faults.ErrDevice, "indicator", fmt.Sprintf("write %s %s", light.Name, attr), "", err)
	}
	if _, err := file.WriteString(value); err != nil {
		_ = file.Close()
		return faults.Wrap(faults.ErrDevice, "indicator", fmt.Sprintf("write %s %s", light.Name, attr), "", err)
	}
	if err := file.Close(); err != nil {
		return faults.Wrap(faults.ErrDevice, "indicator", fmt.Sprintf("write %s %s", light.Name, attr), "", err)
	}
	return nil
}
