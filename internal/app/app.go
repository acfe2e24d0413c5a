package app

import (
	"flag"
	"fmt"
	"os"
	"runtime"
)

var Version = "1.0.0"

func Init() {
	var confs flagConfig
	var version bool

	flag.Var(&confs, "config", "rpidec config (path to file, raw YAML or key=value), support multiple")
	flag.BoolVar(&version, "version", false, "Print the version of the application and exit")
	flag.Parse()

	if version {
		fmt.Printf("rpidec version %s: %s/%s\n", Version, runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	initConfig(confs)
	initLogger()

	platform := fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	Logger.Info().Str("version", Version).Str("platform", platform).Msg("rpidec")

	if ConfigPath != "" {
		Logger.Info().Str("path", ConfigPath).Msg("config")
	}
}
