package main

import (
	"log"

	"github.com/joho/godotenv"

	corecmd "github.com/rampforge/sellbot/core/cmd"
	"github.com/rampforge/sellbot/internal/app"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("sellbot: %v", err)
	}
}
