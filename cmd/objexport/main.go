// objexport converts Ragnarok Online RSM models stored in GRF archives to
// Wavefront OBJ files with MTL materials and exported textures.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/objexport/internal/assets"
	"github.com/Faultbox/objexport/internal/batch"
	"github.com/Faultbox/objexport/internal/config"
	"github.com/Faultbox/objexport/internal/logger"
	"github.com/Faultbox/objexport/internal/source"
)

// errUsage marks errors that are answered with the command's usage line.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type command struct {
	name  string
	usage string
	run   func(env *env, fs *flag.FlagSet) error
	// bare commands need no configuration or archives.
	bare bool
	// offline commands are configured but open no archives.
	offline bool
}

var commands = []command{
	{name: "export", usage: "export [flags] <model> [output.obj]", run: cmdExport},
	{name: "batch", usage: "batch [flags] <pattern>", run: cmdBatch},
	{name: "textures", usage: "textures [flags] <model> [output_dir]", run: cmdTextures},
	{name: "info", usage: "info [flags] <model>", run: cmdInfo},
	{name: "config", usage: "config [flags]", run: cmdConfig, offline: true},
	{name: "pack", usage: "pack [-C dir] <out.grf> <files...>", run: cmdPack, bare: true},
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	name, args := args[0], args[1:]
	switch name {
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	}

	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := runCommand(c, args, stdout, stderr); err != nil {
			if errors.Is(err, errUsage) {
				fmt.Fprintf(stderr, "Usage: objexport %s\n", c.usage)
			} else {
				fmt.Fprintf(stderr, "Error: %v\n", err)
			}
			return 1
		}
		return 0
	}

	fmt.Fprintf(stderr, "Unknown command: %s\n", name)
	printUsage(stderr)
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `objexport - export Ragnarok Online models to Wavefront OBJ

Usage:
  objexport <command> [flags] [arguments]

Commands:
  export <model> [output.obj]        Export one model (output defaults to <out>/<name>/<name>.obj)
  batch <pattern>                    Export every model matching a glob pattern, plus manifest.json
  textures <model> [output_dir]      Export only the textures of a model
  info <model>                       Show model statistics
  config                             Save the effective configuration as the user default
  pack [-C dir] <out.grf> <files...> Build a GRF archive from local files
  help                               Show this help

Models are archive paths (data/model/prontera/fountain.rsm, or prontera/fountain.rsm)
or local .rsm files. Textures are always read from the archives.

Common flags:
  -grf a.grf,b.grf   archives to read, later ones override earlier
  -out dir           output directory
  -formats png,tga   texture formats to try, in order (png, tga, bmp, tiff, webp)
  -config file       config file (default ./objexport.yaml)
  -write-config file write the effective configuration and continue
  -double-sided      emit back faces for every face
  -time ms           animation time to sample the pose at
  -workers n         batch worker count
  -debug, -log file  logging

Examples:
  objexport export -grf data.grf prontera/fountain.rsm
  objexport export -grf data.grf,patch.grf -formats webp,png data/model/tree.rsm tree.obj
  objexport batch -grf data.grf -out ./models "data/model/prontera/*.rsm"
  objexport info -grf data.grf prontera/fountain.rsm`)
}

// env is what a configured command works with.
type env struct {
	cfg    *config.Config
	log    *zap.Logger
	assets *assets.Manager
	stdout io.Writer
	args   []string
}

func runCommand(c command, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	if c.bare {
		return c.run(&env{stdout: stdout, args: args}, fs)
	}

	var flags config.Flags
	flags.Register(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, err := config.Load(&flags)
	if err != nil {
		return err
	}
	if flags.WriteConfig != "" {
		if err := cfg.SaveTo(flags.WriteConfig); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Fprintf(stdout, "Wrote config: %s\n", flags.WriteConfig)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.LogFile)
	defer logger.Sync()

	m := assets.NewManager()
	defer m.Close()
	if !c.offline {
		for _, p := range cfg.Data.GRFPaths {
			if err := m.AddArchive(p); err != nil {
				return err
			}
		}
	}

	return c.run(&env{cfg: cfg, log: logger.Log, assets: m, stdout: stdout, args: fs.Args()}, fs)
}

// batchConfig builds the shared export settings from the configuration.
func (e *env) batchConfig() (batch.Config, error) {
	containers, err := e.cfg.ContainerList()
	if err != nil {
		return batch.Config{}, err
	}
	return batch.Config{
		Assets:     modelSource{e.assets},
		Log:        e.log,
		Workers:    e.cfg.Workers(),
		Containers: containers,
		TextureDir: e.cfg.Export.TextureDir,
		Source: source.Options{
			AnimTimeMS:  e.cfg.Export.AnimTimeMS,
			DoubleSided: e.cfg.Export.DoubleSided,
		},
	}, nil
}

// modelSource reads local .rsm files from disk and everything else from the
// archives.
type modelSource struct {
	archives *assets.Manager
}

func (s modelSource) Load(path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".rsm") {
		if data, err := os.ReadFile(path); err == nil {
			return data, nil
		}
	}
	return s.archives.Load(path)
}

// modelPath resolves a model argument: local files are kept, archive paths
// get the model directory prefix if they lack a data/ root.
func modelPath(arg string) string {
	if _, err := os.Stat(arg); err == nil {
		return arg
	}
	p := strings.ReplaceAll(arg, "\\", "/")
	if !strings.HasPrefix(strings.ToLower(p), "data/") {
		p = batch.ModelPrefix + p
	}
	return p
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
