package main

import (
	"log"

	_ "github.com/anoixa/media-server/docs"

	"github.com/anoixa/media-server/cmd"
	"github.com/anoixa/media-server/config"
)

// @title        Media Server API
// @version      1.0
// @description  Upload images and videos, download them by id and fetch resized PNG previews.
// @BasePath     /
func main() {
	log.Printf("media server %s", config.BuildInfo())
	cmd.Execute()
}
