package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"rawrsgdb/emu"
)

func main() {
	cli := parseArgs(os.Args[1:])

	switch cli.mode {
	case serveMode:
		cfg := loadConfig(cli.Config)
		cli.Serve.apply(&cfg)
		serveMain(cli.Serve, cfg)
	case infoMode:
		infoMain(cli.Info, os.Stdout)
	case ctlMode:
		ctlMain(cli.Ctl, os.Stdout)
	case versionMode:
		fmt.Println("rawrsgdb", version())
	}
}

func loadConfig(path string) emu.Config {
	if path == "" {
		return emu.LoadConfigOrDefault()
	}
	cfg, err := emu.LoadConfig(path)
	checkf(err, "failed to load configuration")
	return cfg
}

func version() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" {
		return "(devel)"
	}
	return bi.Main.Version
}
