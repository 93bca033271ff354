package main

import (
	"fmt"

	"vulnreport/internal/config"
	"vulnreport/internal/database"
	"vulnreport/internal/obs"
	"vulnreport/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	obs.Init()
	database.Init(cfg)

	r := server.NewRouter(cfg)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	zap.L().Info("starting server", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zap.L().Fatal("server error", zap.Error(err))
	}
}
