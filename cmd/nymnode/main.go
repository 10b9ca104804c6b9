package main

import (
	"os"

	"github.com/4nozen/NymNodeInstall/internal/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(cmd.Execute(cmd.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}))
}
