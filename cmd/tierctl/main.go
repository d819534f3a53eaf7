package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/avhall/tierctl/internal/config"
	"codeberg.org/avhall/tierctl/internal/logger"
	"codeberg.org/avhall/tierctl/internal/metrics"
	"codeberg.org/avhall/tierctl/internal/monitor"
	"codeberg.org/avhall/tierctl/internal/pid"
	"codeberg.org/avhall/tierctl/internal/quality"
	"codeberg.org/avhall/tierctl/internal/workload"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(false, false, logger.IsService())

	// Load already validated the level name, so this cannot fail here.
	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLogLevel(level)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer pid.Remove()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	sampler := quality.NewSamplerWith(cfg.TargetRate, float64(cfg.Window), cfg.History)
	sim := workload.NewSimulator(cfg.TargetRate, cfg.Load)

	tiers, err := cfg.TierSettings()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve tier settings")
	}

	// Monitor mode observes and logs without applying settings
	var applier quality.Applier
	if !cfg.Monitor {
		applier = sim
	}

	ctrl := quality.NewController(sampler, applier,
		quality.WithThresholds(cfg.Thresholds()),
		quality.WithCooldownWindow(float64(cfg.Cooldown)),
		quality.WithTierSettings(tiers),
	)

	collectorCfg := metrics.DefaultConfig()
	collectorCfg.Enabled = cfg.Metrics
	if cfg.Database != "" {
		collectorCfg.DBPath = cfg.Database
	}

	collector, err := metrics.NewService(collectorCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close metrics")
		}
	}()

	mon := monitor.New(ctrl, time.Duration(cfg.EvaluateInterval)*time.Millisecond,
		monitor.WithOnEvaluate(func(transitioned bool) {
			snapshot := buildSnapshot(ctrl, sampler, transitioned)
			if err := collector.Record(ctx, &snapshot); err != nil {
				logger.Error().Err(err).Msg("failed to record snapshot")
			}
			logState(ctrl, sim)
		}))
	mon.Start()
	defer mon.Stop()

	if cfg.Monitor {
		logger.Info().Msg("Monitor mode activated. Logging controller state...")
	}

	if err := loop(ctx, sampler, ctrl, sim); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
	logger.Info().Msg("Exiting...")
}

func loop(ctx context.Context, sampler *quality.Sampler, ctrl *quality.Controller, sim *workload.Simulator) error {
	interval := time.Duration(cfg.Interval) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			tickMs := now.Sub(last).Seconds() * 1000
			last = now

			// Run simulated frames until the tick budget is consumed, so
			// sampled time tracks wall time the way a real render loop would.
			budget := tickMs
			for budget > 0 {
				frameMs := sim.FrameTime()
				if frameMs <= 0 {
					break
				}
				sampler.RecordFrame(frameMs)
				budget -= frameMs
			}

			ctrl.Tick(tickMs)
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func buildSnapshot(ctrl *quality.Controller, sampler *quality.Sampler, transitioned bool) metrics.Snapshot {
	history := sampler.History()
	mean := 0.0
	if len(history) > 0 {
		sum := 0
		for _, r := range history {
			sum += r
		}
		mean = float64(sum) / float64(len(history))
	}

	return metrics.Snapshot{
		Timestamp: time.Now(),
		Rate: metrics.RateMetrics{
			Current: ctrl.CurrentFPS(),
			Mean:    mean,
		},
		Tier:         ctrl.QualityLevel().String(),
		CooldownMs:   int(ctrl.CooldownRemaining()),
		Transitioned: transitioned,
	}
}

func logState(ctrl *quality.Controller, sim *workload.Simulator) {
	if cfg.LogLevel == "debug" {
		logger.Debug().
			Int("fps", ctrl.CurrentFPS()).
			Str("tier", ctrl.QualityLevel().String()).
			Float64("cooldown_ms", ctrl.CooldownRemaining()).
			Float64("load", cfg.Load).
			Str("applied_tier", sim.Tier().String()).
			Interface("settings", ctrl.CurrentSettings()).
			Bool("monitor", cfg.Monitor).
			Msg("")
	} else if cfg.LogLevel == "info" || cfg.Monitor {
		logger.Info().
			Int("fps", ctrl.CurrentFPS()).
			Str("tier", ctrl.QualityLevel().String()).
			Float64("cooldown_ms", ctrl.CooldownRemaining()).
			Msg("")
	}
}
