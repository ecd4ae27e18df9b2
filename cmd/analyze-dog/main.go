package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/raine/pup-ancestry-bot/config"
	"github.com/raine/pup-ancestry-bot/internal/breed"
	"github.com/raine/pup-ancestry-bot/internal/llm"
	"github.com/raine/pup-ancestry-bot/internal/storage"
)

type options struct {
	weight  string
	length  string
	age     string
	model   string
	cache   string
	timeout time.Duration
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "analyze-dog [flags] image...",
		Short: "Estimate a dog's breed composition from photos",
		Long: `Sends one or more photos of the same dog to Gemini and prints the estimated
breed composition. Reads GEMINI_API_KEY from the environment or from the
bot's config.env.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.weight, "weight", "", "dog's weight, e.g. 25kg")
	cmd.Flags().StringVar(&opts.length, "length", "", "dog's length, e.g. 80cm")
	cmd.Flags().StringVar(&opts.age, "age", "", "dog's age, e.g. 3 years")
	cmd.Flags().StringVar(&opts.model, "model", "", "Gemini model (default $GEMINI_MODEL or "+llm.DefaultGeminiModel+")")
	cmd.Flags().StringVar(&opts.cache, "cache", "", "SQLite analysis cache path")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", llm.DefaultAnalysisTimeout, "analysis timeout")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output")

	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options, paths []string) error {
	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	images, err := readImages(paths)
	if err != nil {
		return err
	}

	config.LoadEnvFile()
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is not set")
	}
	model := opts.model
	if model == "" {
		model = os.Getenv("GEMINI_MODEL")
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gemini, err := llm.NewGeminiAnalyzer(ctx, apiKey, model)
	if err != nil {
		return err
	}

	var analyzer llm.Analyzer = gemini
	if opts.cache != "" {
		store, err := storage.NewSQLiteStore(opts.cache)
		if err != nil {
			return err
		}
		defer store.Close()
		analyzer = llm.NewCachedAnalyzer(gemini, store)
	}

	meta := breed.DogMetadata{
		Weight: strings.TrimSpace(opts.weight),
		Length: strings.TrimSpace(opts.length),
		Age:    strings.TrimSpace(opts.age),
	}

	analysis, err := llm.NewClient(analyzer, opts.timeout).Analyze(ctx, images, meta)
	if err != nil {
		return err
	}

	printAnalysis(out, analysis)
	return nil
}

// readImages loads the files and rejects anything that isn't an image.
func readImages(paths []string) ([]breed.UploadedImage, error) {
	images := make([]breed.UploadedImage, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		mime := mimetype.Detect(data)
		if !strings.HasPrefix(mime.String(), "image/") {
			return nil, fmt.Errorf("%s is not an image (%s)", path, mime.String())
		}
		images = append(images, breed.UploadedImage{ID: path, Data: data, MIMEType: mime.String()})
	}
	return images, nil
}

func printAnalysis(out io.Writer, analysis *llm.Analysis) {
	result := analysis.Result

	if !result.IsDog {
		fmt.Fprintln(out, "Not a dog.")
	} else {
		if result.MixedBreed {
			fmt.Fprintln(out, "Mixed breed")
		} else {
			fmt.Fprintln(out, "Purebred")
		}
		fmt.Fprintln(out)
		for _, b := range result.Breeds {
			fmt.Fprintf(out, "  %-30s %s%%\n", b.Name, strconv.FormatFloat(b.Percentage, 'f', -1, 64))
		}
		if len(result.Characteristics) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Characteristics:")
			for _, c := range result.Characteristics {
				fmt.Fprintf(out, "  - %s\n", c)
			}
		}
	}

	if result.Reasoning != "" {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Reasoning:   %s\n", result.Reasoning)
	}

	fmt.Fprintln(out)
	if analysis.Cached {
		fmt.Fprintln(out, "Cached:      yes")
	}
	fmt.Fprintf(out, "Tokens:      %d in / %d out / %d total\n",
		analysis.Usage.InputTokens, analysis.Usage.OutputTokens, analysis.Usage.TotalTokens)
	fmt.Fprintf(out, "Cost:        $%.6f\n", analysis.Usage.CostUSD)
}
