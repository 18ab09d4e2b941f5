// sangbot: LINE order-intake bot backed by Google Sheets.
// Parses Thai text and voice orders, decrements stock and records orders.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	speech "google.golang.org/api/speech/v1"

	"github.com/natthaphol/sangbot/internal/config"
	"github.com/natthaphol/sangbot/internal/log"
	"github.com/natthaphol/sangbot/pkg/bot"
	"github.com/natthaphol/sangbot/pkg/gcloud"
	"github.com/natthaphol/sangbot/pkg/line"
	"github.com/natthaphol/sangbot/pkg/orders"
	"github.com/natthaphol/sangbot/pkg/stock"
	"github.com/natthaphol/sangbot/pkg/voice"
	"github.com/natthaphol/sangbot/pkg/web"
)

var (
	envFile = pflag.String("env", "", "path to a .env file to load before reading the environment")
	port    = pflag.String("port", "", "HTTP port (overrides PORT)")
)

func main() {
	pflag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}

	log.Init(cfg.LogLevel)

	ctx := context.Background()
	authed := gcloud.NewHTTPClient(ctx, cfg.GoogleClientEmail, cfg.GooglePrivateKey)

	sheetsSvc, err := sheets.NewService(ctx, option.WithHTTPClient(authed))
	if err != nil {
		log.Error("sheets service init failed", "error", err)
		os.Exit(1)
	}
	speechSvc, err := speech.NewService(ctx, option.WithHTTPClient(authed))
	if err != nil {
		log.Error("speech service init failed", "error", err)
		os.Exit(1)
	}

	store := gcloud.NewSheetStore(sheetsSvc, cfg.SheetID)
	ledger := stock.NewLedger(store)
	recorder := orders.NewRecorder(store)
	lineClient := line.NewClient(cfg.LineToken)

	var archiver voice.Archiver
	if cfg.VoiceFolderID != "" {
		driveSvc, err := drive.NewService(ctx, option.WithHTTPClient(authed))
		if err != nil {
			log.Error("drive service init failed", "error", err)
			os.Exit(1)
		}
		archiver = gcloud.NewDriveArchive(driveSvc, cfg.VoiceFolderID)
	} else {
		log.Warn("VOICE_FOLDER_ID not set, voice clips will not be archived")
	}

	pipeline := voice.NewPipeline(lineClient, gcloud.NewSpeechRecognizer(speechSvc), archiver)
	b := bot.New(ledger, recorder, pipeline, lineClient)
	srv := web.NewServer(b)

	go func() {
		log.Info("sangbot listening", "port", cfg.Port)
		if err := srv.Listen(cfg.Port); err != nil {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
