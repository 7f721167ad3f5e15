package main

import (
	"log"

	"github.com/jaennil/guide_helper/backend/gcs/internal/app"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/config"
)

func main() {
	realMain()
}

func realMain() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalln("failed to load config: ", err)
	}

	if err := app.Run(cfg); err != nil {
		log.Fatalln("app failed: ", err)
	}
}
