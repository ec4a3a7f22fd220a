package main

import (
	"log"

	"github.com/joho/godotenv"

	"rxguardian/cmd"
	"rxguardian/internal/config"
	"rxguardian/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	logConfig := logger.DefaultConfig()
	if cfg, err := config.Load(); err != nil {
		log.Printf("Warning: Could not load configuration: %v", err)
	} else {
		logConfig = cfg.GetLoggerConfig()
	}
	if err := logger.Setup(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cmd.Execute()
}
