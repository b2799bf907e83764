package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"ble-beacon.klederson.com/internal/app"
	"ble-beacon.klederson.com/internal/bluetooth"
	"ble-beacon.klederson.com/internal/config"
	"ble-beacon.klederson.com/internal/logging"
	"ble-beacon.klederson.com/internal/metrics"
	"ble-beacon.klederson.com/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type flags struct {
	config      string
	demo        bool
	adapter     string
	policy      string
	window      time.Duration
	headless    bool
	broadcast   bool
	scan        bool
	serviceUUID string
	companyID   string
	txPower     float64
	metricsAddr string
	logLevel    string
	logFile     string
	report      time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	rootCmd := &cobra.Command{
		Use:   "ble-beacon",
		Short: "BLE Beacon - advertise a service UUID and list nearby BLE devices",
		Long: `BLE Beacon broadcasts a Bluetooth Low Energy advertisement and scans for
nearby devices, showing each one with its signal strength and an estimated
distance.

Requires sudo or CAP_NET_ADMIN capability for real Bluetooth access.
Use --demo flag for demonstration mode without Bluetooth hardware.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(f.config)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, f, cfg); err != nil {
				return err
			}
			if f.headless {
				return runHeadless(cmd.Context(), cfg, f.report)
			}
			return runTUI(cfg)
		},
	}

	bindFlags(rootCmd.Flags(), f)
	rootCmd.AddCommand(newDistanceCmd())
	return rootCmd
}

func bindFlags(fl *pflag.FlagSet, f *flags) {
	fl.StringVarP(&f.config, "config", "c", "", "Path to a YAML config file")
	fl.BoolVar(&f.demo, "demo", false, "Run in demo mode with fake devices (no Bluetooth required)")
	fl.StringVar(&f.adapter, "adapter", "hci0", "Bluetooth adapter to use")
	fl.StringVar(&f.policy, "policy", config.PolicyLivenessWindow, "Device list policy: liveness-window or append-once")
	fl.DurationVar(&f.window, "window", config.LivenessWindow, "Drop devices not seen for this long (liveness-window)")
	fl.BoolVar(&f.headless, "headless", false, "Print to stdout instead of running the terminal UI")
	fl.BoolVar(&f.broadcast, "broadcast", false, "Start broadcasting on launch (headless)")
	fl.BoolVar(&f.scan, "scan", false, "Start scanning on launch")
	fl.StringVar(&f.serviceUUID, "service-uuid", config.DefaultServiceUUID, "Service UUID to advertise (128-bit or 16-bit short form)")
	fl.StringVar(&f.companyID, "company-id", "0x004C", "Bluetooth SIG company id for manufacturer data")
	fl.Float64Var(&f.txPower, "tx-power", config.MeasuredPower, "Measured RSSI at one metre used for distance estimates")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9102)")
	fl.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fl.StringVar(&f.logFile, "log-file", "", "Write logs to this file")
	fl.DurationVar(&f.report, "report-every", 5*time.Second, "Device table interval (headless)")
}

// applyFlags overlays explicitly set flags on the loaded config.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("demo") {
		cfg.Demo = f.demo
	}
	if changed("adapter") {
		cfg.Adapter = f.adapter
	}
	if changed("policy") {
		cfg.Scan.Policy = f.policy
	}
	if changed("window") {
		cfg.Scan.Window = f.window
	}
	if changed("broadcast") {
		cfg.Advertise.AutoStart = f.broadcast
	}
	if changed("scan") {
		cfg.Scan.AutoStart = f.scan
	}
	if changed("service-uuid") {
		cfg.Advertise.ServiceUUID = f.serviceUUID
	}
	if changed("company-id") {
		id, err := strconv.ParseUint(f.companyID, 0, 16)
		if err != nil {
			return fmt.Errorf("--company-id: %w", err)
		}
		cfg.Advertise.CompanyID = uint16(id)
	}
	if changed("tx-power") {
		cfg.Scan.TxPower = f.txPower
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
	if changed("log-level") {
		cfg.Logger.Level = f.logLevel
	}
	if changed("log-file") {
		cfg.Logger.Output = f.logFile
	}
	return config.Validate(cfg)
}

// newSession wires the radio, permissions and registry for cfg.
func newSession(cfg *config.Config, logger *slog.Logger, rec *metrics.Recorder, alerter session.Alerter) (*session.Session, error) {
	policy, err := bluetooth.ParsePolicy(cfg.Scan.Policy)
	if err != nil {
		return nil, err
	}
	payload, err := cfg.Advertise.Payload()
	if err != nil {
		return nil, err
	}

	var (
		radio bluetooth.Radio
		perms bluetooth.PermissionAuthority
	)
	if cfg.Demo {
		radio = bluetooth.NewMockRadio()
		perms = bluetooth.AllowAll{}
	} else {
		radio = bluetooth.NewTinyGoRadio(logger)
		perms = bluetooth.NewHostPermissions()
	}

	return session.New(session.Options{
		Radio:       radio,
		Permissions: perms,
		Registry: bluetooth.NewRegistry(bluetooth.RegistryConfig{
			Policy:  policy,
			Window:  cfg.Scan.Window,
			TxPower: cfg.Scan.TxPower,
		}),
		Alerter:          alerter,
		Logger:           logger,
		Metrics:          rec,
		LogCapacity:      cfg.Log.Capacity,
		ServiceUUID:      cfg.Advertise.ServiceUUID,
		CompanyID:        cfg.Advertise.CompanyID,
		ManufacturerData: payload,
		Broadcast: bluetooth.BroadcastOptions{
			IncludeDeviceName:   cfg.Advertise.IncludeDeviceName,
			IncludeTxPowerLevel: cfg.Advertise.IncludeTxPower,
			LocalName:           cfg.Advertise.LocalName,
		},
		ScanFilters: cfg.Scan.ServiceUUIDs,
		TxPower:     cfg.Scan.TxPower,
		AutoScan:    cfg.Scan.AutoStart,
	}), nil
}

func runTUI(cfg *config.Config) error {
	// the TUI owns the terminal
	if logging.IsTerminalOutput(cfg.Logger.Output) {
		cfg.Logger.Output = "discard"
	}
	logger, closeLog, err := logging.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	rec := metrics.New()
	stopMetrics := serveMetrics(cfg.Metrics.Addr, rec, logger)
	defer stopMetrics()

	inbox := app.NewAlertInbox()
	sess, err := newSession(cfg, logger, rec, inbox)
	if err != nil {
		return err
	}
	defer sess.Close()

	model := app.New(sess, inbox, app.Options{
		Adapter:       cfg.Adapter,
		Demo:          cfg.Demo,
		Window:        cfg.Scan.Window,
		SweepInterval: cfg.Scan.SweepInterval,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithFPS(config.TargetFPS),
	)
	_, err = p.Run()
	return err
}

// serveMetrics starts the Prometheus endpoint when addr is set and returns
// a shutdown func.
func serveMetrics(addr string, rec *metrics.Recorder, logger *slog.Logger) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
