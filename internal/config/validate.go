package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSampler(); err != nil {
		return err
	}
	if err := c.validateEnhance(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSampler() error {
	if c.Sampler.Stride <= 0 {
		return errors.New("sampler.stride must be positive")
	}
	if c.Sampler.HolisticStride <= 0 {
		return errors.New("sampler.holistic_stride must be positive")
	}
	if c.Sampler.MaxFrames <= 0 {
		return errors.New("sampler.max_frames must be positive")
	}
	if c.Sampler.SharpnessThreshold < 0 {
		return errors.New("sampler.sharpness_threshold must be non-negative")
	}
	return nil
}

func (c *Config) validateEnhance() error {
	if c.Enhance.ClipLimit <= 0 {
		return errors.New("enhance.clip_limit must be positive")
	}
	if c.Enhance.TileGridSize <= 0 {
		return errors.New("enhance.tile_grid_size must be positive")
	}
	return nil
}

func (c *Config) validateOCR() error {
	if strings.TrimSpace(c.OCR.FallbackURL) == "" {
		return errors.New("ocr.fallback_url must be set")
	}
	if c.OCR.FallbackThreshold < 0 || c.OCR.FallbackThreshold > 1 {
		return errors.New("ocr.fallback_threshold must be between 0 and 1")
	}
	if c.OCR.RequestTimeoutSeconds <= 0 {
		return errors.New("ocr.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	if strings.TrimSpace(c.Classifier.BaseURL) == "" {
		return errors.New("classifier.base_url must be set")
	}
	if strings.TrimSpace(c.Classifier.Model) == "" {
		return errors.New("classifier.model must be set")
	}
	switch c.Classifier.Mode {
	case ClassifierModeSampled, ClassifierModeHolistic:
	default:
		return fmt.Errorf("classifier.mode must be %q or %q", ClassifierModeSampled, ClassifierModeHolistic)
	}
	if c.Classifier.MaxFrames <= 0 {
		return errors.New("classifier.max_frames must be positive")
	}
	if c.Classifier.MaxConcurrent <= 0 {
		return errors.New("classifier.max_concurrent must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.Workers <= 0 {
		return errors.New("workflow.workers must be positive")
	}
	if c.Workflow.HeartbeatTimeout > 0 && c.Workflow.HeartbeatInterval >= c.Workflow.HeartbeatTimeout {
		return errors.New("workflow.heartbeat_interval must be below workflow.heartbeat_timeout")
	}
	return nil
}
