package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	scenarioName := pflag.StringP("scenario", "s", "s1-resistive-voltage", "named scenario to run (see scenarios.yaml)")
	listScenarios := pflag.BoolP("list", "l", false, "list available scenarios and exit")
	noTUI := pflag.Bool("no-tui", false, "disable the interactive TUI and print a summary instead")
	logFile := pflag.String("log", "ccreg.log", "log file path")
	showHelp := pflag.BoolP("help", "h", false, "show this help message")

	pflag.Parse()

	if *showHelp {
		fmt.Println("ccreg - power converter regulation and simulation engine")
		fmt.Println("==========================================================")
		fmt.Println("\nRuns a named end-to-end converter scenario and shows its live state.")
		fmt.Println("\nUsage: ccreg [options]")
		fmt.Println("\nOptions:")
		pflag.PrintDefaults()
		os.Exit(0)
	}

	if *listScenarios {
		all, err := LoadScenarios()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load scenarios: %v\n", err)
			os.Exit(1)
		}
		for _, s := range all {
			fmt.Printf("%-24s %s\n", s.Name, s.Description)
		}
		os.Exit(0)
	}

	file, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666)
	if err != nil {
		fmt.Printf("Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	logger := slog.New(slog.NewTextHandler(file, nil))
	slog.SetDefault(logger)
	slog.Info("Starting ccreg", "args", os.Args, "scenario", *scenarioName)

	def, err := FindScenario(*scenarioName)
	if err != nil {
		slog.Error("Unknown scenario", "name", *scenarioName, "err", err)
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	slog.Info("Scenario loaded", "name", def.Name, "mode", def.Mode, "duration_s", def.DurationS)

	if *noTUI {
		fmt.Println("Running ccreg scenario:", def.Name)
		fmt.Println("TUI disabled. Running headlessly.")
		fmt.Println("Log file:", *logFile)

		res, err := Run(def)
		if err != nil {
			slog.Error("Scenario run failed", "err", err)
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}

		last := res.Samples[len(res.Samples)-1]
		fmt.Printf("Final state @ t=%.3fs: mode=%v field=%.4f current=%.4f voltage=%.4f ref_limited=%.4f\n",
			last.T, last.State.Mode, last.Field, last.Current, last.Voltage, last.RefLimited)
		slog.Info("Scenario complete", "ticks", len(res.Samples))
		return
	}

	c, err := BuildConverter(def)
	if err != nil {
		slog.Error("Failed to build converter", "err", err)
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	slog.Info("Converter initialized", "iter_period", def.IterPeriod, "actuation", def.Actuation)

	fmt.Println("Starting ccreg interactive scenario viewer...")
	fmt.Println("Press 'q' or Esc to quit.")
	runTUI(c, def)

	slog.Info("Shutdown complete")
}
