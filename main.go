package main

import (
	"context"
	"log"
	"os"

	"syslogd/config"
	"syslogd/server"
	"syslogd/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("startup failed: %v", err)
		os.Exit(1)
	}

	sup, err := supervisor.New(cfg)
	if err != nil {
		log.Printf("startup failed: %v", err)
		os.Exit(1)
	}

	srv := server.New(cfg, sup)
	go srv.Start()

	if err := sup.Run(context.Background()); err != nil {
		log.Printf("shutdown error: %v", err)
		srv.Shutdown()
		os.Exit(1)
	}

	srv.Shutdown()
}
