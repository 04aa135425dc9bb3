package config

import (
	"fmt"
	"time"

	"github.com/nao1215/stealthping/internal/packet"
)

// SendSection holds transmission settings of the config file.
type SendSection struct {
	Interval   *time.Duration `yaml:"interval,omitempty"`
	EndMarker  string         `yaml:"end_marker,omitempty"`
	Variant    string         `yaml:"variant,omitempty"`
	Identifier *int           `yaml:"identifier,omitempty"`
	PcapOut    string         `yaml:"pcap_out,omitempty"`
}

// CaptureSection holds capture settings of the config file.
type CaptureSection struct {
	EndMarker   string         `yaml:"end_marker,omitempty"`
	ReadTimeout *time.Duration `yaml:"read_timeout,omitempty"`
	Interface   string         `yaml:"interface,omitempty"`
	Promiscuous *bool          `yaml:"promiscuous,omitempty"`
	Identifier  *int           `yaml:"identifier,omitempty"`
}

// AnalysisSection holds cryptanalysis settings of the config file.
type AnalysisSection struct {
	// Profiles are built-in names or profile file paths, preferred first.
	Profiles    []string `yaml:"profiles,omitempty"`
	Threshold   *float64 `yaml:"threshold,omitempty"`
	Concurrency int      `yaml:"concurrency,omitempty"`
}

// DatabaseSection holds history database settings of the config file.
type DatabaseSection struct {
	Dir  string `yaml:"dir,omitempty"`
	Save *bool  `yaml:"save,omitempty"`
}

// File represents the structure of the .stealthping configuration file.
// Unset fields leave the corresponding Config value alone.
type File struct {
	Send     SendSection     `yaml:"send,omitempty"`
	Capture  CaptureSection  `yaml:"capture,omitempty"`
	Analysis AnalysisSection `yaml:"analysis,omitempty"`
	Database DatabaseSection `yaml:"database,omitempty"`
}

// ApplySend merges the send section into cfg.
func (f *File) ApplySend(cfg *Config) error {
	s := f.Send
	if s.Interval != nil {
		cfg.Interval = *s.Interval
	}
	if s.EndMarker != "" {
		b, err := ParseEndMarker(s.EndMarker)
		if err != nil {
			return fmt.Errorf("send.end_marker: %w", err)
		}
		cfg.EndMarker = b
	}
	if s.Variant != "" {
		v, err := packet.ParseVariant(s.Variant)
		if err != nil {
			return fmt.Errorf("send.variant: %w", err)
		}
		cfg.Variant = v
	}
	if s.Identifier != nil {
		cfg.Identifier = *s.Identifier
	}
	if s.PcapOut != "" {
		cfg.PcapOut = s.PcapOut
	}
	return nil
}

// ApplyCapture merges the capture, analysis and database sections into cfg.
func (f *File) ApplyCapture(cfg *Config) error {
	c := f.Capture
	if c.EndMarker != "" {
		b, err := ParseEndMarker(c.EndMarker)
		if err != nil {
			return fmt.Errorf("capture.end_marker: %w", err)
		}
		cfg.EndMarker = b
	}
	if c.ReadTimeout != nil {
		cfg.ReadTimeout = *c.ReadTimeout
	}
	if c.Interface != "" {
		cfg.Interface = c.Interface
	}
	if c.Promiscuous != nil {
		cfg.Promiscuous = *c.Promiscuous
	}
	if c.Identifier != nil {
		cfg.Identifier = *c.Identifier
	}
	f.ApplyAnalysis(cfg)
	return nil
}

// ApplyAnalysis merges the analysis and database sections into cfg.
func (f *File) ApplyAnalysis(cfg *Config) {
	a := f.Analysis
	if len(a.Profiles) > 0 {
		cfg.Profiles = append([]string(nil), a.Profiles...)
	}
	if a.Threshold != nil {
		cfg.Threshold = *a.Threshold
	}
	if a.Concurrency != 0 {
		cfg.Concurrency = a.Concurrency
	}

	d := f.Database
	if d.Dir != "" {
		cfg.DBDir = d.Dir
	}
	if d.Save != nil {
		cfg.SaveToDB = *d.Save
	}
}
