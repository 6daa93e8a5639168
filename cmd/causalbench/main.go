package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"causalbench/adapters/metrics"
	"causalbench/adapters/rng"
	"causalbench/domain/bench"
	"causalbench/domain/scm"
	"causalbench/internal"
	"causalbench/internal/builder"
	"causalbench/internal/config"
	"causalbench/internal/errors"
)

func main() {
	if err := godotenv.Load(); err != nil {
		internal.DefaultLogger.Debug("no .env file found, using system environment variables")
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(errors.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "causalbench",
		Short:         "Generate observational vs interventional comparison benchmarks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newBuildCmd(),
		newMotifsCmd(),
		newHashCmd(),
	)
	return rootCmd
}

func newBuildCmd() *cobra.Command {
	var configPath, outPath, metricsPath string
	var (
		n, workers, nObs, nMC, nPromptObs int
		seed                              int64
		kinds                             string
		balance, stratify, discard        bool
		multiplier                        int
		tol, eqMargin, dirMargin, xBand   float64
		doValue                           float64
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build labeled instances and write them as JSONL",
		Long: `Build a balanced set of intervention-comparison instances.

Settings come from defaults, then --config, then CAUSALBENCH_* environment
variables, then flags.

Example: causalbench build --n 30 --scm-kinds all --stratify --workers 4 --out bench.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			b := &cfg.Build
			if flags.Changed("n") {
				b.N = n
			}
			if flags.Changed("seed") {
				b.Seed = seed
			}
			if flags.Changed("scm-kinds") {
				b.SCMKinds = kinds
			}
			if flags.Changed("balance-labels") {
				b.BalanceLabels = balance
			}
			if flags.Changed("stratify") {
				b.StratifyMotifLabel = stratify
			}
			if flags.Changed("discard-ambiguous") {
				b.DiscardAmbiguous = discard
			}
			if flags.Changed("workers") {
				b.Workers = workers
			}
			if flags.Changed("n-obs") {
				b.NObsSamples = nObs
			}
			if flags.Changed("n-mc") {
				b.NMCSamples = nMC
			}
			if flags.Changed("n-prompt-obs") {
				b.NPromptObsSamples = nPromptObs
			}
			if flags.Changed("tol") {
				b.Tol = tol
			}
			if flags.Changed("eq-margin") {
				b.EqMargin = eqMargin
			}
			if flags.Changed("dir-margin") {
				b.DirMargin = dirMargin
			}
			if flags.Changed("x-band") {
				b.XBand = xBand
			}
			if flags.Changed("do-value") {
				b.DoValue = doValue
			}
			if flags.Changed("max-attempt-multiplier") {
				b.MaxAttemptMultiplier = multiplier
			}
			if flags.Changed("metrics") {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Path = metricsPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runBuild(cmd, cfg, outPath)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "YAML configuration file")
	flags.StringVarP(&outPath, "out", "o", "", "Output JSONL file (default stdout)")
	flags.StringVar(&metricsPath, "metrics", "", "Write build metrics in Prometheus text format to this file")
	flags.IntVar(&n, "n", 25, "Number of instances")
	flags.Int64Var(&seed, "seed", 0, "Base seed")
	flags.StringVar(&kinds, "scm-kinds", "confounding", "Comma separated motif kinds or 'all'")
	flags.BoolVar(&balance, "balance-labels", true, "Enforce an even label split")
	flags.BoolVar(&stratify, "stratify", false, "Balance every (motif, label) bucket")
	flags.BoolVar(&discard, "discard-ambiguous", true, "Skip attempts inside the margin dead zone")
	flags.IntVar(&workers, "workers", 1, "Concurrent attempt evaluations")
	flags.IntVar(&nObs, "n-obs", 8000, "Observational samples for the gold label")
	flags.IntVar(&nMC, "n-mc", 8000, "Interventional Monte Carlo samples")
	flags.IntVar(&nPromptObs, "n-prompt-obs", 2000, "Observational samples summarized in the prompt")
	flags.Float64Var(&tol, "tol", 0.02, "Tolerance of the unconstrained comparison label")
	flags.Float64Var(&eqMargin, "eq-margin", 0.06, "Gap below which the label is approx_equal")
	flags.Float64Var(&dirMargin, "dir-margin", 0.06, "Signed gap above which a direction is labeled")
	flags.Float64Var(&xBand, "x-band", 0.25, "Half-width of the conditioning band around do(X)")
	flags.Float64Var(&doValue, "do-value", 1.0, "Intervention value x in do(X = x)")
	flags.IntVar(&multiplier, "max-attempt-multiplier", 200, "Attempt cap per requested instance")

	return cmd
}

func runBuild(cmd *cobra.Command, cfg *config.Config, outPath string) error {
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level, internal.LogLevelInfo))

	opts, err := cfg.BuildOptions()
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	b := builder.NewBuilder(rng.NewPCGAdapter(), builder.WithRecorder(recorder), builder.WithLogger(logger))
	instances, buildErr := b.Build(cmd.Context(), opts)

	// metrics are written for failed builds too
	if cfg.Metrics.Enabled {
		if err := writeMetrics(recorder, cfg.Metrics.Path); err != nil {
			logger.Error("failed to write metrics: %v", err)
		}
	}
	if buildErr != nil {
		return errors.Wrap(buildErr, "build failed")
	}

	if outPath == "" {
		if err := writeJSONL(cmd.OutOrStdout(), instances); err != nil {
			return errors.IOError("write instances", err)
		}
	} else if err := writeJSONLFile(outPath, instances); err != nil {
		return err
	}

	logger.Info("wrote %d instances, set hash %s", len(instances), bench.SetHash(instances))
	return nil
}

func writeJSONL(w io.Writer, instances []bench.Instance) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, inst := range instances {
		if err := enc.Encode(inst); err != nil {
			return fmt.Errorf("encode %s: %w", inst.InstanceID, err)
		}
	}
	return bw.Flush()
}

// writeJSONLFile reports close failures so a truncated file is never a success
func writeJSONLFile(path string, instances []bench.Instance) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.IOError("create output", err)
	}
	if err := writeJSONL(f, instances); err != nil {
		f.Close()
		return errors.IOError("write instances", err)
	}
	if err := f.Close(); err != nil {
		return errors.IOError("close output", err)
	}
	return nil
}

func writeMetrics(recorder *metrics.Recorder, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := recorder.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newMotifsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "motifs",
		Short: "List the motif catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, kind := range scm.AllMotifKinds() {
				m, err := scm.LookupMotif(kind)
				if err != nil {
					return err
				}
				unobserved := "none"
				if len(m.Unobserved) > 0 {
					unobserved = strings.Join(m.Unobserved, ", ")
				}
				fmt.Fprintf(out, "%s\n  edges: %s\n  unobserved: %s\n  note: %s\n", kind, m.EdgeList(), unobserved, m.Description)
			}
			return nil
		},
	}
}

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash FILE",
		Short: "Print the content hash of a JSONL instance file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.IOError("open instances", err)
			}
			defer f.Close()

			instances, err := readJSONL(f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %d instances\n", bench.SetHash(instances), len(instances))
			return nil
		},
	}
}

func readJSONL(r io.Reader) ([]bench.Instance, error) {
	var instances []bench.Instance
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var inst bench.Instance
		if err := json.Unmarshal([]byte(text), &inst); err != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("line %d: %w", line, err))
		}
		instances = append(instances, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.IOError("read instances", err)
	}
	return instances, nil
}
