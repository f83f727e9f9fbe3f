// Package adb implements a capability provider that inspects an Android
// device over adb.
package adb

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/LumeraProtocol/arprov/pkg/capability"
	"github.com/LumeraProtocol/arprov/pkg/logtrace"
)

const (
	propSDK     = "ro.build.version.sdk"
	propABIList = "ro.product.cpu.abilist"
	propModel   = "ro.product.model"

	deviceCacheKey = "device"
)

// Provider answers capability queries for one device. Device properties are
// static for the life of a boot and are cached; the runtime package state is
// read on every query.
type Provider struct {
	runner  Runner
	pkg     string
	devices *cache.Cache
}

// New returns a provider for the AR runtime package pkg.
func New(runner Runner, pkg string, cacheTTL time.Duration) *Provider {
	if cacheTTL <= 0 {
		cacheTTL = cache.NoExpiration
	}
	return &Provider{
		runner:  runner,
		pkg:     pkg,
		devices: cache.New(cacheTTL, 2*cacheTTL),
	}
}

func (p *Provider) QueryCapability(ctx context.Context) (*capability.RawResult, error) {
	var (
		device           capability.DeviceInfo
		sdk, abis, model string
		pkgDump          string
	)
	v, cachedDev := p.devices.Get(deviceCacheKey)
	if cachedDev {
		device = v.(capability.DeviceInfo)
	}

	g, gctx := errgroup.WithContext(ctx)
	if !cachedDev {
		g.Go(func() (err error) {
			sdk, err = p.getprop(gctx, propSDK)
			return err
		})
		g.Go(func() (err error) {
			abis, err = p.getprop(gctx, propABIList)
			return err
		})
		g.Go(func() (err error) {
			model, err = p.getprop(gctx, propModel)
			return err
		})
	}
	g.Go(func() (err error) {
		pkgDump, err = p.runner.Run(gctx, "shell", "dumpsys", "package", p.pkg)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !cachedDev {
		dev, err := parseDevice(sdk, abis, model)
		if err != nil {
			return nil, err
		}
		device = dev
		p.devices.Set(deviceCacheKey, device, cache.DefaultExpiration)
	}

	version, installed := parsePackageVersion(pkgDump, p.pkg)
	availability := capability.AvailabilitySupportedNotInstalled
	if installed {
		availability = capability.AvailabilitySupportedInstalled
	}

	logtrace.Debug(ctx, "adb capability probe finished", logtrace.Fields{
		logtrace.FieldModule:         "adb",
		logtrace.FieldDevice:         device.Model,
		logtrace.FieldRuntimeVersion: version,
		"cached_device":              cachedDev,
	})

	return &capability.RawResult{
		Availability:   availability,
		RuntimeVersion: version,
		Device:         device,
	}, nil
}

// RequestInstall opens the runtime's store page on the device.
func (p *Provider) RequestInstall(ctx context.Context) error {
	out, err := p.runner.Run(ctx, "shell", "am", "start",
		"-a", "android.intent.action.VIEW",
		"-d", "market://details?id="+p.pkg)
	if err != nil {
		return err
	}
	// am reports a missing store handler on stdout with exit status 0.
	if strings.Contains(out, "Error:") {
		return fmt.Errorf("adb: store intent rejected: %s", strings.TrimSpace(out))
	}
	return nil
}

func (p *Provider) getprop(ctx context.Context, name string) (string, error) {
	out, err := p.runner.Run(ctx, "shell", "getprop", name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func parseDevice(sdk, abis, model string) (capability.DeviceInfo, error) {
	dev := capability.DeviceInfo{Model: model}
	if sdk != "" {
		level, err := strconv.Atoi(sdk)
		if err != nil {
			return dev, fmt.Errorf("adb: unexpected %s value %q", propSDK, sdk)
		}
		dev.APILevel = level
	}
	for _, abi := range strings.Split(abis, ",") {
		if abi = strings.TrimSpace(abi); abi != "" {
			dev.ABIs = append(dev.ABIs, abi)
		}
	}
	return dev, nil
}

// parsePackageVersion extracts versionName from `dumpsys package` output.
// Android prints nothing, or "Unable to find package", for a missing package.
func parsePackageVersion(dump, pkg string) (string, bool) {
	if !strings.Contains(dump, "Package ["+pkg+"]") {
		return "", false
	}
	sc := bufio.NewScanner(strings.NewReader(dump))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := strings.CutPrefix(line, "versionName="); ok {
			return v, true
		}
	}
	return "", true
}
