package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/avstrong/arisync/internal/app"
	"github.com/avstrong/arisync/internal/config"
	"github.com/avstrong/arisync/internal/logger"
)

func main() {
	l := logger.New(log.Default())

	if os.Getenv("APP_ENV") != config.EnvProduction {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			l.LogWarnf("Could not load .env file: %v", err.Error())
		}
	}

	var exitCode int

	conf, err := config.Load(".")
	if err != nil {
		l.LogErrorf("Failed to load config: %v", err.Error())

		os.Exit(1)
	}

	if err = app.Run(l, conf); err != nil {
		l.LogErrorf("Failed to run app: %v", err.Error())

		exitCode = 1
	}

	os.Exit(exitCode)
}
