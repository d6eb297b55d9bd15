// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file. Fields are pointers so
// absent keys are distinguishable from zero values; CLI flags override any
// value set here.
type FileConfig struct {
	Experiment ExperimentFileConfig `toml:"experiment"`
	Timing     TimingFileConfig     `toml:"timing"`
}

// ExperimentFileConfig maps the trial protocol settings.
type ExperimentFileConfig struct {
	PracticeTrials   *int   `toml:"practice-trials"`
	ExperimentTrials *int   `toml:"experiment-trials"`
	FixationMinMs    *int64 `toml:"fixation-min-ms"`
	FixationMaxMs    *int64 `toml:"fixation-max-ms"`
	StimulusMs       *int64 `toml:"stimulus-ms"`
	ResponseWindowMs *int64 `toml:"response-window-ms"`
	FeedbackMs       *int64 `toml:"feedback-ms"`
	InterTrialMs     *int64 `toml:"inter-trial-ms"`
	Seed             *int64 `toml:"seed"`
}

// TimingFileConfig maps scheduler and clock settings.
type TimingFileConfig struct {
	FrameRate          *int   `toml:"frame-rate"`
	CalibrationSamples *int   `toml:"calibration-samples"`
	OverrunThresholdMs *int64 `toml:"overrun-threshold-ms"`
	OverrunFrames      *int   `toml:"overrun-frames"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
