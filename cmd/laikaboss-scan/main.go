package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	laikaboss "github.com/Nigelli/laikaboss"
	"github.com/Nigelli/laikaboss/internal/graph"
	"github.com/Nigelli/laikaboss/internal/model"
	"github.com/Nigelli/laikaboss/internal/report"
)

var (
	log *zap.SugaredLogger

	frameworkPath string
	sidecarPath   string
	outputPath    string
	source        string
	verbosityFlag string
	scanTimeout   time.Duration
	graphPath     string
	prettyFlag    bool
)

func init() {
	logger, _ := zap.NewProduction()
	log = logger.Sugar()
}

var rootCmd = &cobra.Command{
	Use:   "laikaboss-scan [file]",
	Short: "run one file through the object-scanning engine and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(args[0])
	},
}

func init() {
	rootCmd.Flags().StringVar(&frameworkPath, "config", "laikaboss.ini", "framework config path")
	rootCmd.Flags().StringVar(&sidecarPath, "rules", "dispatch.yaml", "dispatch/module/disposition sidecar path")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write JSON result here instead of stdout")
	rootCmd.Flags().StringVar(&source, "source", "cli", "external_vars.source recorded on the root object")
	rootCmd.Flags().StringVar(&verbosityFlag, "verbosity", "full", "minimal|full|everything|nobuffer")
	rootCmd.Flags().DurationVar(&scanTimeout, "timeout", 2*time.Minute, "process-level timeout for the whole scan")
	rootCmd.Flags().StringVar(&graphPath, "graph", "", "also write a Graphviz DOT rendering of the object tree here")
	rootCmd.Flags().BoolVar(&prettyFlag, "pretty", false, "also print a colorized human-readable summary to stderr")
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic: %v", r)
			os.Exit(1)
		}
		_ = log.Sync()
	}()

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func runScan(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	verbosity, err := parseVerbosity(verbosityFlag)
	if err != nil {
		return err
	}

	engine, err := laikaboss.New(frameworkPath, sidecarPath, laikaboss.Options{Logger: log.Desugar()})
	if err != nil {
		return fmt.Errorf("wire engine: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	ev := model.ExternalVars{Source: source, Filename: path}
	result, err := engine.Scan(ctx, buf, ev, verbosity)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	data, err := result.Serialize(verbosity)
	if err != nil {
		return fmt.Errorf("serialize result: %w", err)
	}

	if graphPath != "" {
		f, err := os.Create(graphPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", graphPath, err)
		}
		err = graph.FromResult(result).ExportDOT(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("write graph %s: %w", graphPath, err)
		}
	}

	if prettyFlag {
		report.PrintSummary(os.Stderr, result)
	}

	if outputPath == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	log.Infof("wrote %d bytes to %s (%d objects)", len(data), outputPath, result.Count())
	return nil
}

func parseVerbosity(s string) (model.Verbosity, error) {
	switch s {
	case "minimal":
		return model.Minimal, nil
	case "full":
		return model.Full, nil
	case "everything":
		return model.Everything, nil
	case "nobuffer":
		return model.NoBuffer, nil
	default:
		return 0, fmt.Errorf("unknown verbosity %q", s)
	}
}
