// Copyright 2025 The Lacuna Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the lacuna gap filling server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

Lacuna reconstructs missing characters in damaged text. A character n-gram model
with interpolated Kneser-Ney smoothing is trained on a corpus at startup, and
every '?' in a query is filled by a beam search over the model's vocabulary.

# Usage

Start the msgpack IPC server on a corpus file or directory:

	lacuna -corpus data/manuscripts.txt

Fill queries interactively with debug logging:

	lacuna -corpus data/ -c -beam 20 -limit 5 -d

Serve HTTP on the configured address, or a custom one:

	lacuna -corpus data/ -http -addr :9090

Sample 200 symbols continuing a seed text:

	lacuna -corpus data/ -generate 200 -seed "Replied Elinor" -rs 7

# Configuration

Model, search and transport options live in a TOML file. The default file is
created under the user config dir on first run:

	[model]
	order = 4
	mask = "?"
	discount = 0.1

	[search]
	beam_width = 10
	top_k = 5

	[server]
	http_addr = ":8080"

Flags override the file for a single run.

# IPC Protocol

The server reads msgpack maps from stdin and writes one map per request to stdout:

	{"id": "req1", "action": "fill", "q": "ca?", "b": 10, "k": 3}
	{"id": "req1", "r": [{"t": "can", "s": -1.16, "rk": 1}, ...], "c": 3, "us": 145}

See package server for every action.

# Command Line Flags

	-corpus string
	    Training corpus, a text file or a directory of .txt files (default "data/")
	-config string
	    Path to a TOML config file
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-http
	    Serve the HTTP API instead of msgpack IPC
	-addr string
	    HTTP listen address (default from config)
	-generate int
	    Print this many generated symbols and exit
	-seed string
	    Seed text for -generate
	-rs int
	    Random seed for -generate (default: clock)
	-order int
	    N-gram order (default from config)
	-beam int
	    Beam width for CLI mode
	-limit int
	    Number of reconstructions to print in CLI mode
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/lacunae/lacuna/internal/cli"
	"github.com/lacunae/lacuna/internal/logger"
	"github.com/lacunae/lacuna/internal/utils"
	"github.com/lacunae/lacuna/pkg/api"
	"github.com/lacunae/lacuna/pkg/config"
	"github.com/lacunae/lacuna/pkg/corpus"
	"github.com/lacunae/lacuna/pkg/lacuna"
	"github.com/lacunae/lacuna/pkg/server"
)

const (
	Version = "0.3.0-beta"
	AppName = "lacuna"
	gh      = "https://github.com/lacunae/lacuna"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main trains the model and hands it to the selected front end.
// main() does not implement logic for them and only manages the flow.
func main() {
	sigHandler()
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	corpusPath := flag.String("corpus", "data/", "Training corpus: a text file or a directory of .txt files")
	configPath := flag.String("config", "", "Path to a custom config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	httpMode := flag.Bool("http", false, "Serve the HTTP API instead of msgpack IPC")
	httpAddr := flag.String("addr", "", "HTTP listen address (default from config)")
	generate := flag.Int("generate", 0, "Print this many generated symbols and exit")
	seed := flag.String("seed", "", "Seed text for -generate")
	randomSeed := flag.Int64("rs", 0, "Random seed for -generate (0 uses the clock)")
	order := flag.Int("order", 0, "N-gram order (default from config)")
	beam := flag.Int("beam", defaultConfig.CLI.DefaultBeam, "Beam width for CLI mode")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of reconstructions to print in CLI mode")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.Setup(*debugMode)

	appConfig, activePath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activePath))

	if *order > 0 {
		appConfig.Model.Order = *order
	}

	model, err := train(appConfig.Model, *corpusPath)
	if err != nil {
		log.Fatalf("Failed to train model: %v", err)
	}
	model.EnableCache(appConfig.Search.CacheSize)

	// CLI would be mainly used for testing and dbg purposes.
	switch {
	case *generate > 0:
		rs := *randomSeed
		if rs == 0 {
			rs = time.Now().UnixNano()
		}
		symbols, err := model.Generate(*generate, *seed, rs)
		if err != nil {
			log.Fatalf("Failed to generate: %v", err)
		}
		modelConfig := model.Config()
		fmt.Println(strings.Join(utils.StripSymbols(symbols, modelConfig.BOS, modelConfig.EOS), ""))

	case *cliMode:
		log.SetReportTimestamp(false)
		log.Debug("Input info:", "beam", *beam, "limit", *limit)

		inputHandler := cli.NewInputHandler(model, *beam, *limit, appConfig.Search.MaxQueryLen)
		inputHandler.SetMask(model.Config().Mask)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}

	case *httpMode:
		addr := appConfig.Server.HTTPAddr
		if *httpAddr != "" {
			addr = *httpAddr
		}
		if !*debugMode {
			gin.SetMode(gin.ReleaseMode)
		}
		router := gin.New()
		router.Use(gin.Recovery())
		if *debugMode {
			router.Use(gin.Logger())
		}
		api.SetupRoutes(router, model, appConfig)

		showStartupInfo(*corpusPath, "http "+addr)
		if err := router.Run(addr); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}

	default:
		log.Debug("spawning IPC")
		srv := server.NewServer(model, appConfig)
		showStartupInfo(*corpusPath, "ipc")
		if err := srv.Start(); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}
}

// train builds a lacuna from cfg and fits it on the corpus at path.
func train(cfg config.ModelConfig, path string) (*lacuna.Lacuna, error) {
	texts, err := corpus.Load(path)
	if err != nil {
		return nil, err
	}
	log.Debugf("Loaded %d training strings from: %s", len(texts), utils.GetAbsolutePath(path))

	model, err := lacuna.New(cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := model.Train(texts); err != nil {
		return nil, err
	}
	log.Debugf("Trained order %d model in [ %v ]", cfg.Order, time.Since(start))
	return model, nil
}

func printVersion() {
	banner := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ Lacuna ] Fills the gaps in damaged text")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(corpusPath, mode string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	fmt.Fprintln(os.Stderr, "===========")
	fmt.Fprintln(os.Stderr, "  Lacuna   ")
	fmt.Fprintln(os.Stderr, "===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("corpus: ( %s )", corpusPath)
	log.Infof("mode: %s", mode)
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "===========")

	log.SetLevel(currentLevel)
}
