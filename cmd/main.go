package main

import (
	"github.com/roms-labs/ingest-svc/internal/app"
	"github.com/roms-labs/ingest-svc/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
