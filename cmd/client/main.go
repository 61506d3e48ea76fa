package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/voucher-auth/internal/buildinfo"
	"github.com/dmitrijs2005/voucher-auth/internal/client/cli"
	"github.com/dmitrijs2005/voucher-auth/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	cli.NewApp(cfg).Run(context.Background())

}
