package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/csheth/sanctuary/internal/config"
	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/llm"
	"github.com/csheth/sanctuary/internal/logging"
	"github.com/csheth/sanctuary/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, toml or json)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment is read")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	file := flag.String("file", "", "PDF to upload as soon as the sanctuary opens")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configPath, EnvFile: *envFile})
	if err != nil {
		fmt.Println("failed to load config:", err)
		os.Exit(1)
	}

	// stdout belongs to the UI, so logs only ever go to a file
	logger, err := logging.NewFileOnly(logging.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Format: cfg.Log.Format,
	})
	if err != nil {
		fmt.Println("failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	client, err := llm.New(cfg.LLM.ClientConfig())
	if err != nil {
		fmt.Println("failed to configure the model client:", err)
		os.Exit(1)
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("no API key configured; extraction and dialogue will fail")
	}
	logger.Info("starting sanctuary", zap.String("llm", client.Name()), zap.String("language", string(cfg.Language())))

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			LLM:         client,
			Encoder:     document.NewEncoder(cfg.Document.MaxBytes),
			Language:    cfg.Language(),
			Logger:      logger,
			CallTimeout: cfg.LLM.Timeout,
			InitialPath: *file,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}
