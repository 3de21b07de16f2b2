package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/pulsar-engine/pulsar/ecs"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	configPath := flag.String("config", "", "Optional YAML runtime config file.")
	profileMode := flag.String("profile", "", "Enable profiling: cpu or mem.")
	seed := flag.Int64("seed", 1, "Seed for the entity generator.")
	flag.Parse()

	switch *profileMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := ecs.DefaultConfig()
	if *configPath != "" {
		cfg, err = ecs.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal("load config", zap.Error(err))
		}
	}

	logger.Info("starting scheduler stress test",
		zap.Duration("duration", *duration),
		zap.Int("entities", *entityCount),
		zap.Int("workers", cfg.Workers))

	// 1. Registry, world, scheduler, runtime
	registry := ecs.NewComponentRegistry()
	registerStressComponents(registry)
	world := ecs.NewWorld(registry)
	ecs.InsertResource(world, WorldBounds{Width: 1000, Height: 1000})

	schedOpts := append(cfg.SchedulerOptions(), ecs.WithLogger(logger))
	scheduler := ecs.NewScheduler(world, schedOpts...)

	rng := rand.New(rand.NewSource(*seed))
	scheduler.Register(&movementSystem{})
	scheduler.Register(&burnSystem{})
	scheduler.Register(&lifetimeSystem{rng: rand.New(rand.NewSource(*seed + 1))})
	scheduler.Register(&observerSystem{})

	rtOpts := append(cfg.RuntimeOptions(), ecs.WithRuntimeLogger(logger))
	rt := ecs.NewRuntime(world, scheduler, rtOpts...)

	// 2. Populate through the startup event, the way scene loading would
	rt.InvokeStartupEvent("populate", func(w *ecs.World) error {
		for i := 0; i < *entityCount; i++ {
			spawnStressEntity(w, rng)
		}
		return nil
	})

	groups, err := scheduler.Groups()
	if err != nil {
		logger.Fatal("build plan", zap.Error(err))
	}
	logger.Info("execution plan", zap.Any("groups", groups))

	// 3. Frame loop
	report := &Report{
		Duration:  *duration,
		Entities:  *entityCount,
		Workers:   cfg.Workers,
		Systems:   scheduler.GetStats().SystemCount,
		FrameTime: Stats{Samples: make([]time.Duration, 0, 4096)},
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			frameStart := time.Now()
			err := rt.AdvanceFrame()
			report.FrameTime.Samples = append(report.FrameTime.Samples, time.Since(frameStart))
			report.TotalFrames++

			if err != nil {
				report.FailedFrames++
				var replanErr *ecs.ReplanError
				if errors.As(err, &replanErr) {
					logger.Fatal("scheduling halted", zap.Error(replanErr))
				}
				logger.Warn("frame failed", zap.Error(err))
			}
		}
	}

	report.TotalTime = time.Since(startTime)
	report.FrameTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)

	logger.Info("simulation finished",
		zap.Int64("frames", report.TotalFrames),
		zap.Int("entities_left", world.EntityCount()))

	if err := report.Generate(os.Stdout); err != nil {
		logger.Fatal("generate report", zap.Error(err))
	}
}
