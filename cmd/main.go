package main

import (
	"context"
	"dsatter-client/contract"
	"dsatter-client/infrastructure/discovery"
	"dsatter-client/infrastructure/websocket"
	"dsatter-client/internal"
	"dsatter-client/repositories"
	"dsatter-client/runtime"
	"dsatter-client/runtime/workers"
	"dsatter-client/sink"
	"dsatter-client/ui"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run resolves the node-server, connects, then hands the terminal to the
// console until the user leaves. Neither the consumer loop nor the console
// is started when no node-server accepted the connection.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	settings, err := internal.LoadSettings(config.SettingsFile)
	if err != nil {
		return err
	}
	config.applySettings(settings)
	if err = config.parseFlags(os.Args[1:], os.Stderr); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err = config.Validate(); err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Status, saved back whatever happens next
	status := runtime.NewStatus(log)
	if settings.Username != "" {
		if err = status.SetUsername(settings.Username); err != nil {
			log.Warn("Ignoring saved username", "username", settings.Username, "error", err)
		}
	}
	defer func() {
		settings.Username = status.Username()
		settings.DiscoveryURL = config.DiscoveryURL
		if err := internal.SaveSettings(config.SettingsFile, settings); err != nil {
			log.Error("Failed to save settings", "error", err)
		}
	}()

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Node-server connection
	pipeline := runtime.NewPipeline(log, status, config.ChatID)
	discoveryClient := discovery.NewClient(log, config.DiscoveryURL, config.DiscoveryTimeout)
	candidates, err := runtime.ResolveCandidates(ctx, log, config.ServerURL, discoveryClient)
	if err != nil {
		log.Info(fmt.Sprintf("%v, exiting", err))
		return err
	}

	lifecycle := runtime.NewLifecycle(log,
		websocket.NewFactory(log, config.HandshakeTimeout),
		status, pipeline, pipeline.OnRawFrame, config.PollInterval)
	transport, err := lifecycle.Connect(ctx, candidates)
	if err != nil {
		return err
	}

	// 5. Presentation, optionally recording history
	console := ui.NewConsole(log, status, pipeline, os.Stdin, os.Stdout)
	var consumer contract.Consumer = console.ShowMessages
	if config.HistoryPath != "" {
		db, err := badger.Open(badger.DefaultOptions(config.HistoryPath).WithLoggingLevel(badger.WARNING))
		if err != nil {
			lifecycle.Disconnect(transport)
			return fmt.Errorf("history opening failed: %w", err)
		}
		defer func() {
			log.Debug("Closing BadgerDB...")
			_ = db.Close()
		}()
		history := repositories.NewMessageRepository(db, log)
		consumer = sink.NewHistorySink(log, history, consumer).Consume
	}
	pipeline.InstallConsumer(consumer)
	status.SetObserver(console.ShowStatus)
	console.ShowStatus(status.Username(), status.ConnectionTarget())

	// 6. Consumer loop under supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	supervised := make(chan struct{})
	go func() {
		sup.Add(pipeline).Run(ctx)
		close(supervised)
	}()

	log.Info("dsatter CLIENT initialized")
	uiErr := console.Run(ctx)

	// 7. Shutdown: stop the loop, close the connection, wait for the loop
	pipeline.Terminate()
	lifecycle.Disconnect(transport)
	<-supervised
	status.SetObserver(nil)
	log.Info("dsatter CLIENT shutting down")

	return uiErr
}
