package main

import (
	"context"
	"log"
	"os"

	"fieldvault/internal/agent/cli"
	"fieldvault/internal/agent/config"
	"fieldvault/internal/buildinfo"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
