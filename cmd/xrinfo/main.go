package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	xrloader "github.com/wippyai/xr-loader"
	"github.com/wippyai/xr-loader/core"
)

func main() {
	var (
		showRuntime = flag.Bool("runtime", false, "Show the active runtime")
		showLayers  = flag.Bool("layers", false, "Show discoverable API layers")
		showExts    = flag.Bool("extensions", false, "Show available instance extensions")
		layerName   = flag.String("layer", "", "Scope extension listing to one layer")
		jsonOut     = flag.Bool("json", false, "Emit JSON instead of text")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	setupLogging()

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// No section selected means all sections.
	all := !*showRuntime && !*showLayers && !*showExts

	if err := run(all || *showRuntime, all || *showLayers, all || *showExts, *layerName, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging honors XR_LOADER_DEBUG: when set, loader internals log to
// stderr at the named level (error, warn, info, verbose/debug).
func setupLogging() {
	levelName := os.Getenv("XR_LOADER_DEBUG")
	if levelName == "" {
		return
	}
	level := zapcore.WarnLevel
	switch strings.ToLower(levelName) {
	case "error":
		level = zapcore.ErrorLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "info", "1", "true", "all":
		level = zapcore.InfoLevel
	case "verbose", "debug":
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return
	}
	core.SetLoggerAll(logger)
}

// runtimeInfo is what one loader probe discovers.
type runtimeInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type layerInfo struct {
	Name        string `json:"name"`
	SpecVersion string `json:"spec_version"`
	Version     uint32 `json:"layer_version"`
	Description string `json:"description,omitempty"`
}

type extensionInfo struct {
	Name    string `json:"name"`
	Version uint32 `json:"extension_version"`
}

type report struct {
	Runtime    *runtimeInfo    `json:"runtime,omitempty"`
	Layers     []layerInfo     `json:"api_layers,omitempty"`
	Extensions []extensionInfo `json:"instance_extensions,omitempty"`
}

func run(withRuntime, withLayers, withExts bool, layerName string, jsonOut bool) error {
	var rep report
	var probeErr error

	if withRuntime {
		rep.Runtime, probeErr = probeRuntime()
	}
	if withLayers {
		layers, err := collectLayers()
		if err != nil {
			return err
		}
		rep.Layers = layers
	}
	if withExts {
		exts, err := collectExtensions(layerName)
		if err != nil && !withRuntime && !withLayers {
			return err
		}
		rep.Extensions = exts
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	if withRuntime {
		if rep.Runtime != nil {
			fmt.Printf("Active runtime: %s (version %s)\n", rep.Runtime.Name, rep.Runtime.Version)
		} else {
			fmt.Printf("Active runtime: unavailable (%v)\n", probeErr)
		}
	}
	if withLayers {
		fmt.Printf("\nAPI layers: %d\n", len(rep.Layers))
		for _, l := range rep.Layers {
			fmt.Printf("  %s  spec %s  version %d\n", l.Name, l.SpecVersion, l.Version)
			if l.Description != "" {
				fmt.Printf("      %s\n", l.Description)
			}
		}
	}
	if withExts {
		scope := ""
		if layerName != "" {
			scope = " from layer " + layerName
		}
		fmt.Printf("\nInstance extensions%s: %d\n", scope, len(rep.Extensions))
		for _, e := range rep.Extensions {
			fmt.Printf("  %s  version %d\n", e.Name, e.Version)
		}
	}
	return nil
}

// probeRuntime creates and destroys a throwaway instance to learn the
// active runtime's identity.
func probeRuntime() (*runtimeInfo, error) {
	createInfo := &xrloader.InstanceCreateInfo{
		ApplicationInfo: xrloader.ApplicationInfo{
			ApplicationName: "xrinfo",
			APIVersion:      xrloader.CurrentAPIVersion,
		},
	}
	var inst xrloader.Instance
	if res := core.CreateInstance(createInfo, &inst); res != xrloader.Success {
		return nil, fmt.Errorf("create instance: %s", res)
	}
	defer core.DestroyInstance(inst)

	var props xrloader.InstanceProperties
	if res := core.GetInstanceProperties(inst, &props); res != xrloader.Success {
		return nil, fmt.Errorf("get instance properties: %s", res)
	}
	return &runtimeInfo{
		Name:    props.RuntimeName,
		Version: props.RuntimeVersion.String(),
	}, nil
}

func collectLayers() ([]layerInfo, error) {
	var count uint32
	if res := core.EnumerateApiLayerProperties(0, &count, nil); res != xrloader.Success {
		return nil, fmt.Errorf("enumerate layers: %s", res)
	}
	props := make([]xrloader.APILayerProperties, count)
	if count > 0 {
		if res := core.EnumerateApiLayerProperties(count, &count, props); res != xrloader.Success {
			return nil, fmt.Errorf("enumerate layers: %s", res)
		}
	}
	out := make([]layerInfo, len(props))
	for i, p := range props {
		out[i] = layerInfo{
			Name:        p.LayerName,
			SpecVersion: p.SpecVersion.String(),
			Version:     p.LayerVersion,
			Description: p.Description,
		}
	}
	return out, nil
}

func collectExtensions(layerName string) ([]extensionInfo, error) {
	var count uint32
	if res := core.EnumerateInstanceExtensionProperties(layerName, 0, &count, nil); res != xrloader.Success {
		return nil, fmt.Errorf("enumerate extensions: %s", res)
	}
	props := make([]xrloader.ExtensionProperties, count)
	if count > 0 {
		if res := core.EnumerateInstanceExtensionProperties(layerName, count, &count, props); res != xrloader.Success {
			return nil, fmt.Errorf("enumerate extensions: %s", res)
		}
	}
	out := make([]extensionInfo, len(props))
	for i, p := range props {
		out[i] = extensionInfo{Name: p.ExtensionName, Version: p.ExtensionVersion}
	}
	return out, nil
}
