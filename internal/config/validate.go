package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return fmt.Errorf("paths.output_dir must be set (or export %s)", envOutputDir)
	}
	if strings.TrimSpace(c.Paths.DownloadsDir) == "" {
		return errors.New("paths.downloads_dir must be set")
	}
	return nil
}

func (c *Config) validateConversion() error {
	switch c.Conversion.Format {
	case "webp", "avif":
	default:
		return fmt.Errorf("conversion.format must be webp or avif, got %q", c.Conversion.Format)
	}
	q := c.Conversion.Quality
	if math.IsNaN(q) || q < 0 || q > 1 {
		return fmt.Errorf("conversion.quality must be between 0 and 1 (or 0-100), got %v", q)
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if c.Encoder.AVIFSpeed < 0 || c.Encoder.AVIFSpeed > maxAVIFSpeed {
		return fmt.Errorf("encoder.avif_speed must be between 0 and %d", maxAVIFSpeed)
	}
	if c.Encoder.WebPMethod < 0 || c.Encoder.WebPMethod > maxWebPMethod {
		return fmt.Errorf("encoder.webp_method must be between 0 and %d", maxWebPMethod)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}
