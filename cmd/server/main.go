// Command server runs the dashboard: four report pages backed by the metrics
// API, a JSON proxy under /api/v1 and the fetch log.
package main

import (
	"flag"
	"log"

	"github.com/simp-lee/wbdash/internal/app"
	"github.com/simp-lee/wbdash/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal("failed to create app: ", err)
	}

	if err := a.Run(); err != nil {
		log.Fatal("server error: ", err)
	}
}
