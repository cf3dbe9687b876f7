// Command abicall calls one export of a guest module described by a manifest
// and prints the response.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/reglet-dev/reglet-abi/host"
	"go.uber.org/zap"
)

type options struct {
	manifest string
	export   string
	data     string
	file     string
	list     bool
	verbose  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.manifest, "manifest", "", "Path to plugin manifest (YAML)")
	flag.StringVar(&opts.export, "export", "", "Export to call")
	flag.StringVar(&opts.data, "data", "", "Request payload")
	flag.StringVar(&opts.file, "file", "", "Read the request payload from a file")
	flag.BoolVar(&opts.list, "list", false, "List the manifest's exports and exit")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose host logging")
	flag.Parse()

	if opts.manifest == "" || (opts.export == "" && !opts.list) {
		fmt.Fprintln(os.Stderr, "Usage: abicall -manifest <plugin.yaml> -export <name> [-data string | -file path] [-v]")
		fmt.Fprintln(os.Stderr, "       abicall -manifest <plugin.yaml> -list")
		os.Exit(1)
	}

	logger, err := newLogger(opts.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), opts, logger, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, opts options, logger *zap.Logger, out io.Writer) error {
	m, err := host.LoadManifestFile(opts.manifest)
	if err != nil {
		return err
	}

	if opts.list {
		for _, e := range m.Exports {
			fmt.Fprintf(out, "%s\t%s\t%s\n", e.Name, e.Kind, e.Description)
		}
		return nil
	}

	entry, ok := m.Export(opts.export)
	if !ok {
		return fmt.Errorf("manifest %q has no export %q", m.Name, opts.export)
	}

	payload, err := readPayload(opts)
	if err != nil {
		return err
	}

	wasm, err := os.ReadFile(m.ModulePath())
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	exec, err := host.NewExecutor(ctx, host.WithLogger(logger))
	if err != nil {
		return err
	}
	defer exec.Close(ctx)

	plugin, err := exec.LoadPlugin(ctx, wasm)
	if err != nil {
		return err
	}
	defer plugin.Close(ctx)

	resp, err := plugin.Call(ctx, entry.Name, payload)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, formatResponse(entry.Kind, resp))
	return err
}

func readPayload(opts options) ([]byte, error) {
	switch {
	case opts.data != "" && opts.file != "":
		return nil, errors.New("-data and -file are mutually exclusive")
	case opts.file != "":
		p, err := os.ReadFile(opts.file)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		return p, nil
	default:
		return []byte(opts.data), nil
	}
}

func formatResponse(kind string, resp []byte) string {
	if kind == host.KindString {
		return string(resp)
	}
	return hex.EncodeToString(resp)
}
