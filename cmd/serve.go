package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/itsJ0ker/midnight/internal/api"
	"github.com/itsJ0ker/midnight/internal/cache"
	"github.com/itsJ0ker/midnight/internal/gateway"
	"github.com/itsJ0ker/midnight/internal/gravatar"
	"github.com/itsJ0ker/midnight/internal/moderation"
	"github.com/itsJ0ker/midnight/internal/notify"
	"github.com/itsJ0ker/midnight/internal/notify/webpush"
	"github.com/itsJ0ker/midnight/internal/realtime"
	"github.com/itsJ0ker/midnight/internal/scheduler"
	"github.com/itsJ0ker/midnight/internal/submission"
	"github.com/spf13/cobra"
)

const (
	webPushCleanupSchedule = "0 3 * * *"
	webPushMaxAge          = 30 * 24 * time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Midnight server",
	Long:  `Start the Midnight server. This is also what runs when no subcommand is given.`,
	Example: `midnight serve --config config.yml
midnight serve -c /path/to/config.yml --log-level debug
`,
	Run: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func startServer(cmd *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := gravatar.ValidateConfig(cfg.Gravatar); err != nil {
		log.Fatalf("invalid gravatar config: %v", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close() //nolint: errcheck

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	broker, err := realtime.New(ctx, cfg.Realtime)
	if err != nil {
		log.Fatalf("failed to create realtime broker: %v", err)
	}
	defer broker.Close() //nolint: errcheck

	gw := gateway.New(db, broker)

	registry := moderation.NewRegistry(time.Duration(cfg.SessionMaxAge)*time.Second, func() *moderation.Controller {
		return moderation.New(gw, cfg.Admin.DefaultPassword)
	})
	defer registry.Close()

	push := webpush.NewClient(cfg.WebPush)
	if push.Enabled() {
		if err := push.ValidateConfig(); err != nil {
			log.Fatalf("invalid webpush config: %v", err)
		}
	}

	recent := cache.NewRecentCache(cfg.Cache)
	submissions := submission.New(gw, recent, notify.New(cfg, push), cfg.Cache.RecentLimit)
	defer submissions.Close()

	sched, err := newScheduler(cfg.Realtime.ResyncSchedule, gw, push)
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop() //nolint: errcheck

	server, err := api.New(cfg, api.Dependencies{
		Registry:    registry,
		Submissions: submissions,
		Scheduler:   sched,
		WebPush:     push,
		Recent:      recent,
	}, log.GetLevel() == log.DebugLevel)
	if err != nil {
		log.Fatalf("failed to create API server: %v", err)
	}

	log.Info("midnight started successfully")
	if err := server.Run(ctx); err != nil {
		log.Error("API server error", "error", err)
	}
	log.Info("shutting down gracefully...")
}

func newScheduler(resync string, n scheduler.Notifier, push *webpush.Client) (*scheduler.Scheduler, error) {
	sched, err := scheduler.New()
	if err != nil {
		return nil, err
	}

	if resync != "" {
		if err := sched.AddCronJob(
			scheduler.JobResync,
			"Resync",
			"Publish a change signal for every collection",
			resync,
			scheduler.ResyncJob(n),
		); err != nil {
			return nil, err
		}
	}

	if push.Enabled() {
		if err := sched.AddCronJob(
			scheduler.JobWebPushCleanup,
			"Push subscription cleanup",
			"Remove push subscriptions older than 30 days",
			webPushCleanupSchedule,
			scheduler.WebPushCleanupJob(push, webPushMaxAge),
		); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
