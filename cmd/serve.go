package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/agent"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/channels"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/config"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/dispatch"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/ops"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/reporter"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/scheduler"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/snapshot"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent coordination runtime",
	RunE:  runServe,
}

var (
	serveConfigPath string
	servePort       int
)

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Config file path")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Telemetry port override")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if servePort != 0 {
		cfg.Telemetry.Port = servePort
	}

	seeds, err := config.LoadResourceSeeds(cfg.ResourcesFile)
	if err != nil {
		return err
	}
	roster := cfg.Recipients
	if fileRoster, err := config.LoadRecipients(cfg.RecipientsFile); err != nil {
		return err
	} else if len(fileRoster) > 0 {
		roster = fileRoster
	}

	b := bus.New()
	rt := agent.NewRuntime(b)
	mgr := buildChannels(cfg, b)

	interval := func(name string, fallback int) time.Duration {
		return time.Duration(cfg.TickInterval(name, fallback)) * time.Second
	}

	sched := scheduler.New(b, seeds, cfg.Weights, interval("scheduler", 30))
	notif := dispatch.New(b, mgr, roster, interval("notifier", 15))

	rt.Register(sched, interval("scheduler", 30))
	rt.Register(notif, interval("notifier", 15))
	rt.Register(ops.NewDispatcher(b), interval("dispatcher", 20))
	rt.Register(ops.NewRouter(b), interval("router", 20))
	rt.Register(reporter.New(b, cfg.ReportSchedule), interval("reporter", 60))

	if snapshot.Init(snapshot.Config(cfg.Redis)) {
		snapshot.Attach(b,
			func() any { return sched.Incidents() },
			func() any { return rt.Records() },
		)
		defer snapshot.Close()
	}

	tel := telemetry.NewServer(telemetry.Config{Port: cfg.Telemetry.Port, APIKey: cfg.Telemetry.APIKey}, b, rt)
	tel.AddStats("scheduler", sched.Stats)
	tel.AddStats("notifier", notif.Stats)
	tel.SetIncidents(func() any { return sched.Incidents() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[Serve] Shutdown signal received")
		cancel()
	}()

	mgr.StartAll(ctx)
	rt.StartAll(ctx)
	go func() {
		if err := tel.Start(ctx); err != nil {
			log.Printf("[Serve] ❌ Telemetry server: %v", err)
			cancel()
		}
	}()

	log.Printf("[Serve] ✅ Guardian runtime up: %d agents, channels %v", len(rt.Records()), mgr.Names())
	<-ctx.Done()

	discarded := rt.StopAll()
	mgr.StopAll()
	log.Printf("[Serve] Runtime stopped (%d in-flight messages discarded)", discarded)
	return nil
}

// buildChannels wires the configured channel adapters into a manager.
func buildChannels(cfg config.Config, b *bus.Bus) *channels.Manager {
	mgr := channels.NewManager(cfg.Channels)
	ep := cfg.Endpoints
	if ep.Webhook != nil {
		mgr.Register(channels.NewWebhookAdapter(ep.Webhook.URL, ep.Webhook.Secret))
	}
	if ep.Email != nil {
		mgr.Register(channels.NewEmailAdapter(ep.Email.Host, ep.Email.Port, ep.Email.From, ep.Email.Password))
	}
	if ep.SMS != nil {
		mgr.Register(channels.NewSMSAdapter(ep.SMS.GatewayURL, ep.SMS.Token))
	}
	if ep.Push != nil {
		push := channels.NewPushAdapter(ep.Push.BridgeURL, ep.Push.Token)
		push.OnReceipt = func(r model.DeliveryReceipt) {
			b.Send(bus.NewMessage("push-bridge", dispatch.AgentName, bus.MsgDeliveryReceipt, r))
		}
		mgr.Register(push)
	}
	return mgr
}
