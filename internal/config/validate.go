package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSplit(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateFeatures(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSplit() error {
	if c.Split.DevRatio < 0 || c.Split.DevRatio >= 1 {
		return errors.New("split.dev_ratio must be in [0, 1)")
	}
	if c.Split.TestRatio < 0 || c.Split.TestRatio >= 1 {
		return errors.New("split.test_ratio must be in [0, 1)")
	}
	if c.Split.DevRatio+c.Split.TestRatio >= 1 {
		return errors.New("split.dev_ratio + split.test_ratio must be strictly less than 1")
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if c.Transcode.Channels > 2 {
		return fmt.Errorf("transcode.channels must be 1 or 2, got %d", c.Transcode.Channels)
	}
	return nil
}

func (c *Config) validateFeatures() error {
	for _, factor := range c.Features.SpeedFactors {
		if factor <= 0 {
			return fmt.Errorf("features.speed_factors must be positive, got %v", factor)
		}
	}
	if c.Features.MelFmax <= c.Features.MelFmin {
		return errors.New("features.mel_fmax must be greater than features.mel_fmin")
	}
	return nil
}
