package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"clinic-store/internal/config"
	"clinic-store/internal/metrics"
	"clinic-store/internal/persistence"
	"clinic-store/internal/store"

	"github.com/chzyer/readline"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var completer = readline.NewPrefixCompleter(
	readline.PcItem("collections"),
	readline.PcItem("use"),
	readline.PcItem("find"),
	readline.PcItem("get"),
	readline.PcItem("count"),
	readline.PcItem("insert"),
	readline.PcItem("update"),
	readline.PcItem("delete"),
	readline.PcItem("aggregate"),
	readline.PcItem("flush"),
	readline.PcItem("backup"),
	readline.PcItem("stats"),
	readline.PcItem("clear"),
	readline.PcItem("help"),
	readline.PcItem("exit"),
)

func main() {
	envFile := flag.String("env", "", "Path to a .env file (default: ./.env if present)")
	dataFile := flag.String("data", "", "Store file path (overrides CLINICSTORE_DATA_FILE)")
	command := flag.String("c", "", "Run a single command and exit")
	restore := flag.String("restore", "", "Replace the store file with the named backup before opening it")
	flag.Parse()

	var cfg config.Config
	if *envFile != "" {
		cfg = config.LoadConfig(*envFile)
	} else {
		cfg = config.LoadConfig()
	}
	if *dataFile != "" {
		cfg.DataFile = *dataFile
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	metrics.Register()

	if *restore != "" {
		if err := persistence.PerformRestore(cfg.BackupDir, *restore, cfg.DataFile); err != nil {
			slog.Error("Restore failed", "backup", *restore, "error", err)
			os.Exit(1)
		}
	}

	s, err := persistence.Open(persistence.Options{
		Path:          cfg.DataFile,
		AdminPassword: cfg.AdminPassword,
		Store: store.Options{
			FlushMode: cfg.FlushMode,
			QueueSize: cfg.FlushQueueSize,
		},
	})
	if err != nil {
		slog.Error("Fatal error opening store", "path", cfg.DataFile, "error", err)
		os.Exit(1)
	}

	backups := persistence.NewBackupManager(s, cfg.BackupDir, cfg.BackupInterval, cfg.BackupRetention)
	if cfg.EnableBackups {
		backups.Start()
	}

	c := &cli{store: s, backups: backups, out: os.Stdout}
	defer func() {
		backups.Stop()
		if err := s.Close(); err != nil {
			fmt.Println(colorErr("Last flush failed: ", err))
		}
	}()

	if *command != "" {
		if err := c.execute(*command); err != nil {
			fmt.Println(colorErr("Error: ", err))
		}
		return
	}

	c.rlConfig = &readline.Config{
		Prompt:          colorPrompt("clinic> "),
		HistoryFile:     "/tmp/clinic_store_history.tmp",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	}
	c.rl, err = readline.NewEx(c.rlConfig)
	if err != nil {
		slog.Error("Failed to initialize readline", "error", err)
		return
	}
	defer c.rl.Close()

	fmt.Printf("Opened clinic store at %s. Type 'help' for commands.\n", cfg.DataFile)
	c.loop()
}

// loop reads commands until exit, EOF or an interrupt on an empty line.
func (c *cli) loop() {
	for {
		input, err := c.rl.Readline()
		if err == readline.ErrInterrupt {
			if len(input) == 0 {
				fmt.Println("Exiting shell.")
				return
			}
			continue
		} else if err == io.EOF {
			fmt.Println("Exiting shell.")
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" {
			fmt.Println("Exiting shell.")
			return
		}

		if err := c.execute(input); err != nil {
			fmt.Println(colorErr("Error: ", err))
		}
		c.updatePrompt()
	}
}
