package main

import (
	"context"
	"os"

	"github.com/iudanet/khural/internal/client/cli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	build := cli.BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
	}

	if err := cli.Execute(context.Background(), os.Args[1:], cli.WithBuildInfo(build)); err != nil {
		os.Exit(1)
	}
}
