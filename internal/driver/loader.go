package driver

import (
	"fmt"
	"path/filepath"
	"plugin"
	"runtime"
)

// ReplayDriverName is the driver path used by replaying processes, which
// always run with a driver and therefore always support recording.
const ReplayDriverName = "recordreplay-driver"

// ResolvePath returns the driver module path.
//
// An explicit path (RECORD_REPLAY_DRIVER) wins. Otherwise the driver is looked
// up at a well-known temporary path derived from the build identifier.
func ResolvePath(explicit, tempDir, buildID string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if tempDir == "" {
		return "", fmt.Errorf("can't figure out temporary directory, can't locate driver")
	}
	ext := ".so"
	if runtime.GOOS == "windows" {
		ext = ".dll"
	}
	return filepath.Join(tempDir, "recordreplay-"+buildID+ext), nil
}

// pluginResolver resolves symbols exported by a Go plugin module.
type pluginResolver struct {
	p *plugin.Plugin
}

func (r pluginResolver) Lookup(name string) (any, error) {
	sym, err := r.p.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrSymbolNotFound)
	}
	return sym, nil
}

// Open loads the driver module at path.
func Open(path string) (Resolver, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load driver %s: %w", path, err)
	}
	return pluginResolver{p: p}, nil
}
