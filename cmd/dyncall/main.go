package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/dyncall/config"
	"github.com/wippyai/dyncall/dispatch"
	"github.com/wippyai/dyncall/host"
	"github.com/wippyai/dyncall/library"
	"github.com/wippyai/dyncall/manifest"
	"github.com/wippyai/dyncall/signature"
)

const usage = `Usage: dyncall [-config file] [-v] <command> [flags]

Commands:
  call -lib L [-cconv C] -sym S (-spec SPEC | -wit DECL) [args...]
                         call one function; args are literals (5, 2.7, i:5, d:5)
                         put -- before negative args (-- -5) or write i:-5
  run FILE.{yaml,hcl}    run a manifest of calls and check expectations
  exports FILE.wasm      list wasm exports with their signatures

  dyncall -i [-lib L]    interactive mode with TUI
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app holds what every command needs.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	d      *dispatch.Dispatcher
	stdout io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dyncall", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	var (
		configFile  = fs.String("config", "", "Path to dyncall.yaml")
		verbose     = fs.Bool("v", false, "Debug logging")
		interactive = fs.Bool("i", false, "Interactive mode with TUI")
		lib         = fs.String("lib", "", "Library preselected in interactive mode")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log := newLogger(cfg.Level(), *verbose, stderr)
	defer log.Sync()
	library.SetLogger(log.Named("library"))
	dispatch.SetLogger(log.Named("dispatch"))

	a := newApp(cfg, log, stdout)

	if *interactive {
		err = a.interactive(*lib)
	} else {
		rest := fs.Args()
		if len(rest) == 0 {
			fs.Usage()
			return 2
		}
		switch rest[0] {
		case "call":
			err = a.call(rest[1:], stderr)
		case "run":
			err = a.runManifest(rest[1:])
		case "exports":
			err = a.exports(rest[1:])
		default:
			fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
			fs.Usage()
			return 2
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newApp(cfg *config.Config, log *zap.Logger, stdout io.Writer) *app {
	opts := append(cfg.DispatchOptions(), dispatch.WithLogger(log.Named("dispatch")))
	return &app{
		cfg:    cfg,
		log:    log,
		d:      dispatch.New(cfg.Loader(), opts...),
		stdout: stdout,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		found, err := config.FindConfig(".")
		if err != nil || found == "" {
			return config.Default(), nil
		}
		path = found
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (a *app) call(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		lib   = fs.String("lib", "", "Library path or name")
		cconv = fs.String("cconv", "", "Calling convention")
		sym   = fs.String("sym", "", "Symbol to call")
		spec  = fs.String("spec", "", "Signature, e.g. (id)i")
		wit   = fs.String("wit", "", "WIT declaration, e.g. 'floor: func(x: f64) -> f64'")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *wit != "" {
		if *spec != "" {
			return fmt.Errorf("-spec and -wit are mutually exclusive")
		}
		name, plan, err := signature.FromWIT(*wit)
		if err != nil {
			return fmt.Errorf("wit: %w", err)
		}
		if *sym == "" {
			*sym = name
		}
		*spec = plan.String()
	}
	if *lib == "" || *sym == "" || *spec == "" {
		return fmt.Errorf("call needs -lib, -sym and -spec (or -wit)")
	}

	req, err := dispatch.RequestFromOperation(*lib, *cconv, *sym, *spec, fs.Args())
	if err != nil {
		return fmt.Errorf("arguments: %w", err)
	}
	v, err := a.d.Dispatch(context.Background(), req)
	if err != nil {
		return fmt.Errorf("call %s: %w", *sym, err)
	}
	fmt.Fprintf(a.stdout, "Result: %s (%s)\n", host.Format(v), v.Tag())
	return nil
}

func (a *app) runManifest(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("run takes exactly one manifest file")
	}
	m, err := manifest.Load(args[0])
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	failed := 0
	for _, r := range m.Run(context.Background(), a.d) {
		if r.OK() {
			fmt.Fprintf(a.stdout, "ok   %s = %s\n", r.Call.Name, host.Format(r.Value))
			continue
		}
		failed++
		fmt.Fprintf(a.stdout, "FAIL %s: %v\n", r.Call.Name, r.Err)
	}
	fmt.Fprintf(a.stdout, "\n%d calls, %d failed\n", len(m.Calls), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d calls failed", failed, len(m.Calls))
	}
	return nil
}

func (a *app) exports(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("exports takes exactly one wasm file")
	}
	lines, err := listExports(context.Background(), a.cfg, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Module: %s\n\nExported functions:\n", args[0])
	for _, l := range lines {
		fmt.Fprintf(a.stdout, "  %s %s\n", l.name, l.spec)
	}
	return nil
}

type exportInfo struct {
	name string
	spec string
}

func listExports(ctx context.Context, cfg *config.Config, path string) ([]exportInfo, error) {
	if !library.IsWasmPath(path) {
		return nil, fmt.Errorf("%s: exports are only listed for .wasm modules", path)
	}
	h, err := library.NewWasm(cfg.WasmOptions()...).Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer h.Close()

	ex, ok := h.(library.Exporter)
	if !ok {
		return nil, fmt.Errorf("%s: handle cannot list exports", path)
	}
	var out []exportInfo
	for name, plan := range ex.Exports() {
		out = append(out, exportInfo{name: name, spec: plan.String()})
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].name, out[j].name) < 0 })
	return out, nil
}
