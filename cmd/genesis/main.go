// Command genesis runs the conversational brain for a Pepper-class robot:
// it connects to the hardware link bridge, listens for recognized speech,
// and answers through the speech and motion channels.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"genesis/internal/config"
	"genesis/internal/dialogue"
	"genesis/internal/gateway"
	"genesis/internal/history"
	"genesis/internal/intent"
	"genesis/internal/memory"
	"genesis/internal/persona"
	"genesis/internal/plugin"
	"genesis/internal/robot"
	"genesis/internal/runtime"
	"genesis/internal/store"
	"genesis/internal/tasks"
)

const shutdownGrace = 10 * time.Second

var (
	flagConfig  string
	flagVerbose bool
	flagMock    bool
)

func main() {
	root := &cobra.Command{
		Use:   "genesis",
		Short: "Conversational robot brain",
		Long: `GENESIS connects to a robot hardware link, listens for recognized
speech, resolves intents, and answers through speech and motion. General
questions are delegated to an external reasoning backend shaped by the
active persona.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	root.Flags().BoolVar(&flagMock, "mock", false, "run against an in-process mock link")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagMock {
		cfg.Robot.Mock = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := buildLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	// Hardware link and connection manager. Failing to reach the link at
	// startup is fatal; nothing else initializes.
	var link robot.Link
	if cfg.Robot.Mock {
		log.Info("using mock hardware link")
		link = robot.NewMockLink(log)
	} else {
		link = robot.NewRemoteLink(cfg.RobotAddr(), cfg.Robot.DialTimeout, log)
	}
	client := robot.NewClient(link, cfg.Robot.PollInterval, log)
	if !client.Connect(ctx) {
		return errors.New("failed to connect to the robot hardware link")
	}

	// Durable state.
	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer db.Close()

	contextStore := memory.Load(cfg.MemoryPath())
	interactions := history.New(cfg.InteractionsPath(), log)

	// Personas with hot reload.
	personas := persona.NewRegistry(log)
	if err := personas.LoadDir(cfg.Dialogue.PersonaDir); err != nil {
		log.Warn("persona load failed, continuing with defaults", zap.Error(err))
	}
	watcher, err := persona.NewWatcher(personas, cfg.Dialogue.PersonaDir, log)
	if err != nil {
		log.Warn("persona hot reload unavailable", zap.Error(err))
	} else if err := watcher.Start(); err != nil {
		log.Warn("persona watcher failed to start", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	// Scheduling and reminders.
	scheduler := tasks.NewScheduler(log)
	scheduler.Start()
	defer scheduler.Stop(shutdownGrace)
	reminders := tasks.NewReminderService(scheduler, client, interactions, log)

	// Plugins.
	plugins := plugin.NewRegistry(log)
	resources := plugin.Resources{
		Store:     db,
		Scheduler: scheduler,
		Speaker:   client,
		Settings: map[string]string{
			"language": cfg.Dialogue.Language,
			"data_dir": cfg.Data.Dir,
		},
	}
	if err := plugins.Register(plugin.NewNotesPlugin(), resources); err != nil {
		return err
	}
	defer plugins.Shutdown()

	// Orchestrator and planner, bound in two phases.
	resolver := intent.NewRuleResolver()
	manager := dialogue.NewManager(dialogue.ManagerDeps{
		Resolver:  resolver,
		Personas:  personas,
		Plugins:   plugins,
		Gateway:   gateway.New(cfg.Gateway, log),
		Reminders: reminders,
		Styling:   cfg.Dialogue.Styling,
		Logger:    log,
	}, cfg.Dialogue.Personality)
	engine := dialogue.NewEngine(manager, resolver, client, interactions, log)
	manager.BindEngine(engine)

	// Arm event delivery and keep it armed across reconnects.
	client.Subscribe(manager.HandleSensorEvent)
	supervisor := runtime.NewSupervisor(client, cfg.Robot.HeartbeatInterval, log)
	supervisor.SetCallback(manager.HandleSensorEvent)
	supervisor.Start()
	defer supervisor.Stop(shutdownGrace)

	robotName := cfg.RobotAddr()
	if cfg.Robot.Mock {
		robotName = "the simulator"
	}
	greet(client, interactions, contextStore, robotName, log)

	log.Info("GENESIS is up",
		zap.String("robot", cfg.RobotAddr()),
		zap.Bool("mock", cfg.Robot.Mock),
		zap.String("persona", cfg.Dialogue.Personality))

	<-ctx.Done()
	log.Info("shutting down")

	disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	client.Disconnect(disconnectCtx)
	return nil
}

// greet speaks the startup line naming the connected link, personalizing
// it when a user name is remembered from an earlier session.
func greet(speaker tasks.Speaker, interactions *history.Logger, ctxStore *memory.ContextStore, robotName string, log *zap.Logger) {
	greeting := fmt.Sprintf("Hello! I'm Genesis, connected to %s and ready to chat.", robotName)
	if name, ok := ctxStore.Get("user_name"); ok && name != "" {
		greeting = fmt.Sprintf("Hello %s! I'm Genesis, connected to %s and ready to chat.", name, robotName)
	}
	if err := speaker.Say(greeting); err != nil {
		log.Warn("startup greeting failed", zap.Error(err))
		return
	}
	interactions.RecordSystem(greeting)
}

func buildLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if flagVerbose {
		lvl = zapcore.DebugLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)

	return zapCfg.Build()
}
