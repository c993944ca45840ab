package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"alertmap-go/bus"
	"alertmap-go/services/app"
	"alertmap-go/services/config"
	"alertmap-go/services/platform"
	"alertmap-go/services/settings"
)

// version is stamped at link time.
var version = "4.2"

var (
	board      string
	configPath string
	settingsDB string
	server     string
	logLevel   string
	logJSON    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "alertmapd",
		Short:        "Alert map appliance controller",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&board, "board", "pico", "Board profile id")
	pf.StringVar(&configPath, "config", "", "TOML file overriding the board profile")
	pf.StringVar(&settingsDB, "settings-db", "alertmap.db", "SQLite settings database")
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.BoolVar(&logJSON, "log-json", false, "Write JSON logs instead of console output")
	rootCmd.Flags().StringVar(&server, "server", "", "Feed server host[:port] for this run")

	addBoardsCmd(rootCmd)
	addBackupCmd(rootCmd)
	addRestoreCmd(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var l zerolog.Logger
	if logJSON {
		l = zerolog.New(os.Stderr)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	return l.Level(lvl).With().Timestamp().Logger()
}

func openStore(ctx context.Context, conn *bus.Connection, log zerolog.Logger) (*settings.Store, func(), error) {
	db, err := settings.OpenSQLite(ctx, settingsDB)
	if err != nil {
		return nil, nil, fmt.Errorf("settings db: %w", err)
	}
	opts := []settings.Option{settings.WithLogger(log)}
	if conn != nil {
		opts = append(opts, settings.WithBus(conn))
	}
	s := settings.New(db, opts...)
	if err := s.Load(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("settings load: %w", err)
	}
	return s, func() { db.Close() }, nil
}

func run(ctx context.Context) error {
	log := newLogger()
	b := bus.NewBus(64)

	store, closeDB, err := openStore(ctx, b.NewConnection("settings"), log)
	if err != nil {
		return err
	}
	defer closeDB()

	if server != "" {
		if err := applyServer(store, server); err != nil {
			return err
		}
	}

	chipID, err := store.EnsureChipID("")
	if err != nil {
		log.Warn().Err(err).Msg("chip id not persisted")
	}

	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, board)
	profile, err := config.NewConfigService(configPath, log).Publish(cfgCtx, b.NewConnection("config"))
	if err != nil {
		return err
	}

	hw, err := platform.Open(profile, log)
	if err != nil {
		return fmt.Errorf("platform: %w", err)
	}

	a := app.New(app.Deps{
		Bus:      b,
		Store:    store,
		Profile:  profile,
		Log:      log,
		Firmware: version,
		ChipID:   chipID,
		IP:       localIP(),
		Output:   hw.Output,
		Display:  hw.Display,
		I2C:      hw.I2C,
		AlertPin: hw.AlertPin,
		ClearPin: hw.ClearPin,
		Buttons:  hw.Buttons,
		Watchdog: hw.Watchdog,
		Restart:  hw.Restart,
	})
	log.Info().Str("board", profile.ID).Str("chip_id", chipID).Str("version", version).Msg("starting")

	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info().Msg("stopped")
	return nil
}

// applyServer overrides the feed server for this run only.
func applyServer(s *settings.Store, hostport string) error {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return s.SaveString(settings.ServerHost, hostport, false)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("server port %q: %w", port, err)
	}
	if err := s.SaveString(settings.ServerHost, host, false); err != nil {
		return err
	}
	return s.SaveInt(settings.ServerPort, n, false)
}

func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if n, ok := a.(*net.IPNet); ok && !n.IP.IsLoopback() && n.IP.To4() != nil {
			return n.IP.String()
		}
	}
	return ""
}

func addBoardsCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "boards",
		Short: "List embedded board profiles",
		Run: func(cmd *cobra.Command, args []string) {
			ids := config.Boards()
			sort.Strings(ids)
			for _, id := range ids {
				cmd.Println(id)
			}
		},
	})
}

func addBackupCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "backup [file]",
		Short: "Write the settings backup as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			store, closeDB, err := openStore(cmd.Context(), nil, log)
			if err != nil {
				return err
			}
			defer closeDB()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return store.Backup(out, settings.BackupMeta{
				FirmwareVersion: version,
				ChipID:          store.GetString(settings.ChipID),
				Time:            time.Now(),
			})
		},
	})
}

func addRestoreCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "restore <file>",
		Short: "Load settings from a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			store, closeDB, err := openStore(cmd.Context(), nil, log)
			if err != nil {
				return err
			}
			defer closeDB()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			n, err := store.Restore(f)
			if err != nil {
				return err
			}
			cmd.Println(fmt.Sprintf("restored %d settings", n))
			return nil
		},
	})
}
