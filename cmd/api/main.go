package main

import (
	"log"

	"github.com/example/groundtrack/internal/api"
	"github.com/example/groundtrack/internal/config"
	"github.com/example/groundtrack/simulation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	sim := simulation.NewDemoSimulator(cfg.Shape, cfg.ElevationMask)
	server := api.NewServer(cfg.Addr, cfg.Shape, sim)
	if err := server.Start(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
