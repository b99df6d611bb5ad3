package main

import (
	"context"
	"log/slog"
	"sync"

	"courseplanner-backend/internal/components/chrono"
	"courseplanner-backend/internal/components/telemetry"
	"courseplanner-backend/internal/notify"

	"github.com/spf13/cobra"
)

var runOnStart bool

func init() {
	daemonCmd.Flags().BoolVar(&runOnStart, "now", false, "Trigger an ingestion run immediately on start.")
	rootCmd.AddCommand(daemonCmd)
}

// runGate lets a single ingestion run at a time, whether it was started by
// the schedule or on start.
type runGate struct {
	mutex sync.Mutex
	wg    sync.WaitGroup
}

// TryRun runs fn unless another run holds the gate, it reports whether fn
// ran.
func (g *runGate) TryRun(fn func()) bool {
	if !g.mutex.TryLock() {
		return false
	}
	defer g.mutex.Unlock()
	fn()
	return true
}

// Go is TryRun in its own goroutine, Wait blocks until it returns.
func (g *runGate) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.TryRun(fn)
	}()
}

func (g *runGate) Wait() {
	g.wg.Wait()
}

func ingestOnce(ctx context.Context, notifier notify.Email) {
	p, err := newPipeline(ctx, config, clock, pipelineOptions{}, tel)
	if err != nil {
		tel.ReportBroken("daemon.pipeline", err)
		return
	}
	defer p.Close()

	run, err := p.orchestrator.Run(ctx)
	if err != nil {
		tel.ReportBroken("daemon.run", err, telemetry.KV{Key: "run", Value: run.ID})
	} else {
		slog.Info("ingestion run finished", "term", run.Term, "decision", run.Decision, "courses", run.CoursesInserted)
	}

	err = notifier.NotifyRun(context.WithoutCancel(ctx), run)
	if err != nil {
		tel.ReportWarning("daemon.notify", err)
	}
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Runs ingestion on the configured cron schedule until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		telemetry.InstrumentPerfStats(ctx)

		notifier := notify.NewEmail(config.Smtp)
		gate := &runGate{}
		ingest := func() {
			ingestOnce(ctx, notifier)
		}

		cron := chrono.NewStandardCron(clock, tel)
		err := cron.Cron(config.schedule(), func() {
			if !gate.TryRun(ingest) {
				tel.ReportWarning("daemon.skip", "previous ingestion run still in progress")
			}
		})
		if err != nil {
			cron.Stop()
			return err
		}

		slog.Info("daemon started", "schedule", config.schedule(), "timezone", clock.Location().String())
		if runOnStart {
			gate.Go(ingest)
		}

		<-ctx.Done()
		slog.Info("waiting for the current ingestion run to finish")
		cron.Stop()
		gate.Wait()
		return nil
	},
}
