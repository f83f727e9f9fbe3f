// Package profile implements a capability provider backed by a YAML device
// profile. It is used on hosts without an attached device and in CI, where the
// profile stands in for the AR runtime's answer.
package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LumeraProtocol/arprov/pkg/capability"
	"github.com/LumeraProtocol/arprov/pkg/logtrace"
)

// InstallMarkerFile is written next to the profile when an install is
// requested. Tooling that simulates the store removes it and updates the
// profile once the "install" completes.
const InstallMarkerFile = ".install_requested"

// ErrNoInstallChannel is returned by RequestInstall when the profile has no
// way to install the runtime.
var ErrNoInstallChannel = errors.New("device profile has no install channel")

// Profile is the on-disk description of a device.
type Profile struct {
	Model          string   `yaml:"model"`
	APILevel       int      `yaml:"api_level"`
	ABIs           []string `yaml:"abis"`
	Availability   string   `yaml:"availability"`
	RuntimeVersion string   `yaml:"runtime_version,omitempty"`
	InstallChannel bool     `yaml:"install_channel"`
	// Delay simulates a slow runtime answer.
	Delay time.Duration `yaml:"delay,omitempty"`
}

// Provider reads the profile on every query so edits made while a session is
// running are observed by the next attempt.
type Provider struct {
	path string
}

// New returns a provider for the profile at path.
func New(path string) *Provider {
	return &Provider{path: path}
}

// Load reads and parses a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse device profile: %w", err)
	}
	p.Availability = strings.ToUpper(strings.TrimSpace(p.Availability))
	return &p, nil
}

// Save writes a profile file.
func Save(p *Profile, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal device profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write device profile: %w", err)
	}
	return nil
}

func (p *Provider) QueryCapability(ctx context.Context) (*capability.RawResult, error) {
	prof, err := Load(p.path)
	if err != nil {
		return nil, err
	}

	if prof.Delay > 0 {
		t := time.NewTimer(prof.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	logtrace.Debug(ctx, "device profile read", logtrace.Fields{
		logtrace.FieldModule:         "profile",
		logtrace.FieldDevice:         prof.Model,
		logtrace.FieldRuntimeVersion: prof.RuntimeVersion,
	})

	return &capability.RawResult{
		Availability:   capability.Availability(prof.Availability),
		RuntimeVersion: prof.RuntimeVersion,
		Device: capability.DeviceInfo{
			Model:    prof.Model,
			APILevel: prof.APILevel,
			ABIs:     prof.ABIs,
		},
	}, nil
}

func (p *Provider) RequestInstall(ctx context.Context) error {
	prof, err := Load(p.path)
	if err != nil {
		return err
	}
	if !prof.InstallChannel {
		return ErrNoInstallChannel
	}

	marker := p.MarkerPath()
	stamp := time.Now().UTC().Format(time.RFC3339)
	if err := os.WriteFile(marker, []byte(stamp), 0o644); err != nil {
		return fmt.Errorf("failed to write install marker: %w", err)
	}

	logtrace.Info(ctx, "install marker written", logtrace.Fields{
		logtrace.FieldModule: "profile",
		"marker":             marker,
	})
	return nil
}

// MarkerPath is the install marker location for this profile.
func (p *Provider) MarkerPath() string {
	return filepath.Join(filepath.Dir(p.path), InstallMarkerFile)
}

// Example returns a profile for a supported device with a current runtime.
func Example() *Profile {
	return &Profile{
		Model:          "Pixel 8",
		APILevel:       34,
		ABIs:           []string{"arm64-v8a", "armeabi-v7a"},
		Availability:   string(capability.AvailabilitySupportedInstalled),
		RuntimeVersion: "1.44.0",
		InstallChannel: true,
	}
}
