package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ble-beacon.klederson.com/internal/config"
	"ble-beacon.klederson.com/internal/logging"
	"ble-beacon.klederson.com/internal/metrics"
	"ble-beacon.klederson.com/internal/session"
	"ble-beacon.klederson.com/internal/ui"
)

// runHeadless drives a session without the TUI until SIGINT or SIGTERM.
func runHeadless(parent context.Context, cfg *config.Config, report time.Duration) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, closeLog, err := logging.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	rec := metrics.New()
	stopMetrics := serveMetrics(cfg.Metrics.Addr, rec, logger)
	defer stopMetrics()

	console := ui.NewConsole(os.Stdout)
	sess, err := newSession(cfg, logger, rec, console)
	if err != nil {
		return err
	}
	defer sess.Close()

	// failures were already printed by the console alerter
	_ = sess.Setup(ctx)
	if cfg.Advertise.AutoStart {
		_ = sess.StartBroadcast(ctx)
	}

	headlessLoop(ctx, sess, console, cfg.Scan.SweepInterval, report)
	return nil
}

func headlessLoop(ctx context.Context, sess *session.Session, console *ui.Console, sweepEvery, reportEvery time.Duration) {
	sweep := time.NewTicker(sweepEvery)
	defer sweep.Stop()
	if reportEvery <= 0 {
		reportEvery = 5 * time.Second
	}
	report := time.NewTicker(reportEvery)
	defer report.Stop()

	var tail logTail
	flush := func() {
		fresh, dropped := tail.next(sess.Log())
		if dropped > 0 {
			console.Notice(fmt.Sprintf("(%d log entries dropped)", dropped))
		}
		if len(fresh) > 0 {
			console.PrintEntries(fresh)
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case now := <-sweep.C:
			sess.Sweep(now)
			flush()
		case <-report.C:
			console.PrintDevices(sess.Devices())
		}
	}
}

// logTail remembers the last printed log sequence number.
type logTail struct {
	last uint64
}

// next returns the entries after the last printed one, newest first, and
// how many were evicted from the log before they could be printed.
func (t *logTail) next(entries []session.Entry) (fresh []session.Entry, dropped uint64) {
	for _, e := range entries {
		if e.Seq <= t.last {
			break
		}
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return nil, 0
	}
	oldest := fresh[len(fresh)-1].Seq
	if oldest > t.last+1 {
		dropped = oldest - t.last - 1
	}
	t.last = fresh[0].Seq
	return fresh, dropped
}
