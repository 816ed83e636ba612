package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"playtrace/config"
	"playtrace/engine"
	"playtrace/playlog"
	"playtrace/store/memstore"
	"playtrace/utils"
)

const SONGS_DIR = "songs"

// eng is the single facade every CLI command and HTTP handler goes
// through. Built once in main() from whatever backend the environment
// selects; never reconstructed per request.
var eng *engine.Engine

func main() {
	_ = utils.CreateFolder("tmp")
	_ = utils.CreateFolder(SONGS_DIR)
	_ = godotenv.Load()

	eng = buildEngine()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "find":
		if len(os.Args) < 3 {
			fmt.Println("usage: playtrace find <path_to_audio_file>")
			os.Exit(1)
		}
		find(os.Args[2])

	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		protocol := serveCmd.String("proto", "http", "protocol label shown in the startup log (the server always listens over plain HTTP)")
		port := serveCmd.String("p", "5000", "port to use")
		serveCmd.Parse(os.Args[2:])
		serve(*protocol, *port)

	case "erase":
		dbOnly := true
		all := false

		if len(os.Args) > 2 {
			switch os.Args[2] {
			case "db":
				dbOnly = true
			case "all":
				dbOnly = false
				all = true
			default:
				fmt.Println("usage: playtrace erase [db | all]")
				os.Exit(1)
			}
		}

		erase(SONGS_DIR, dbOnly, all)

	case "save":
		indexCmd := flag.NewFlagSet("save", flag.ExitOnError)
		force := indexCmd.Bool("force", false, "index file even if its title/artist is already registered")
		indexCmd.BoolVar(force, "f", false, "index file even if its title/artist is already registered (shorthand)")
		indexCmd.Parse(os.Args[2:])
		if indexCmd.NArg() < 1 {
			fmt.Println("usage: playtrace save [-f|--force] <path_to_file_or_dir>")
			os.Exit(1)
		}
		save(indexCmd.Arg(0), *force)

	default:
		printUsage()
		os.Exit(1)
	}
}

// buildEngine wires the default in-memory backend. The real deployment
// swaps in store/mongostore behind the same engine.New call; this CLI
// never needed durability beyond one process's lifetime to be useful
// for local indexing/matching work.
func buildEngine() *engine.Engine {
	cfg := config.Default()
	if path := utils.GetEnv("PLAYTRACE_CONFIG", ""); path != "" {
		if loaded, err := config.Load(path); err == nil {
			cfg = loaded
		} else {
			color.Yellow("warning: failed to load config %s: %v (using defaults)", path, err)
		}
	}

	profile := buildProfile(cfg)
	st := memstore.New()
	sink := playlog.NewMemSink()

	return engine.New(st, sink, engine.WithProfile(profile))
}

func printUsage() {
	fmt.Println("usage: playtrace <command>")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  find  <audio_file>               match a file against the database")
	fmt.Println("  save  [-f] <file_or_dir>          index audio file(s) into the database")
	fmt.Println("  erase [db | all]                  clear database (and optionally audio files)")
	fmt.Println("  serve [-proto http] [-p 5000]     start the web server")
}
