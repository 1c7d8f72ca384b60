package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	engine "github.com/icyseptember2237/modmesh-engine"
	"github.com/icyseptember2237/modmesh-engine/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "modmesh.yaml", "Path to YAML config")
		engineType = flag.String("engine", "", "Scripting engine ("+strings.Join(engine.EngineTypes(), ", ")+"); overrides config")
		preload    = flag.String("preload", "", "Comma-separated modules to preload")
		console    = flag.Bool("console", false, "Run the interactive console instead of enter_main")
		useTUI     = flag.Bool("tui", false, "Full-screen console (with -console)")
		execSrc    = flag.String("exec", "", "Execute source through modmesh.system and exit")
		watch      = flag.Bool("watch", false, "Reload toggles when the config file changes")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()
	engine.SetLogger(log)

	cfg, err := engine.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *engineType != "" {
		cfg.Engine = *engineType
	}
	if *preload != "" {
		cfg.Preload = append(cfg.Preload, strings.Split(*preload, ",")...)
	}

	// Scripts see the program name followed by the non-flag arguments.
	engine.ProcessInfoInstance().SetArgv(append([]string{os.Args[0]}, flag.Args()...))

	ip := engine.Instance()
	if err := ip.ApplyConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := ip.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer ip.Finalize()

	if err := engine.ImportNdarray(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	ip.SetupModmeshPath()
	ip.SetupProcess()
	if err := ip.PreloadModules(cfg.Preload); err != nil {
		var notFound *engine.ModuleNotFoundError
		if errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error: cannot preload %s: module not found\n", notFound.Name)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	if *watch {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := engine.WatchToggles(ctx, *configPath, ip.Toggle()); err != nil {
			log.Warn("toggle watcher disabled", zap.Error(err))
		}
	}

	switch {
	case *execSrc != "":
		ip.ExecCode(*execSrc)
		return 0

	case *console:
		c := engine.NewConsole()
		c.SetRedirect(cfg.Redirect)
		if *useTUI {
			err = tui.Run(c, "modmesh console ("+ip.EngineType()+")")
		} else {
			err = runREPL(c)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	return ip.EnterMain()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
