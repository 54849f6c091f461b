// Command chattester runs a single chat turn against the configured model
// provider and prints the reply split into prose and code blocks.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/syntra/backend/internal/analysis/segment"
	"github.com/zhouzirui/syntra/backend/internal/config"
	"github.com/zhouzirui/syntra/backend/internal/logging"
	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	"github.com/zhouzirui/syntra/backend/internal/model/persona"
	"github.com/zhouzirui/syntra/backend/internal/service/ai"
	"github.com/zhouzirui/syntra/backend/internal/service/stream"
)

var (
	tierFlag    string
	timeoutFlag time.Duration
	rawFlag     bool
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "chattester [message]",
	Short: "Send one message to the configured model and print the reply",
	Long: `Loads .env and the service configuration, opens a stream with the selected
provider and prints chunks as they arrive, followed by the segmented reply.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTurn,
}

func init() {
	rootCmd.Flags().StringVar(&tierFlag, "tier", string(chat.TierFlash), "model tier: flash or pro")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", 90*time.Second, "turn timeout")
	rootCmd.Flags().BoolVar(&rawFlag, "raw", false, "print the raw reply instead of segments")
	rootCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTurn(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("配置加载失败: %w", err)
	}

	level := "warn"
	if verboseFlag {
		level = "debug"
	}
	logger, err := logging.New(level, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tier, err := chat.ParseTier(tierFlag)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
	defer cancel()

	provider, err := ai.NewProvider(ctx, cfg.AI, persona.NewMemoryStore(persona.Seed()), logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	store := chat.NewMemoryStore()
	orchestrator := stream.New(provider, store, stream.WithLogger(logger), stream.WithIdleTimeout(cfg.AI.StreamIdleTimeout))
	session := chat.NewSession("chattester", "cli", time.Now().UTC())

	printer := &chunkPrinter{out: out}
	outcome, err := orchestrator.Run(ctx, session, strings.Join(args, " "), tier, printer)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)

	if outcome.State == stream.StateFailed {
		return fmt.Errorf("turn failed: %w", outcome.Err)
	}
	if !rawFlag {
		printSegments(out, outcome.Reply.Content)
	}
	fmt.Fprintf(out, "\n[%s] %d chunks, %d code blocks\n", outcome.State, outcome.Chunks, segment.CountCode(outcome.Reply.Content))
	return nil
}

// chunkPrinter writes only the newly arrived suffix of the draft.
type chunkPrinter struct {
	out     io.Writer
	printed int
}

func (p *chunkPrinter) SessionUpdated(s chat.Session) {
	reply := s.Last()
	if reply == nil || reply.Role != chat.RoleAssistant || reply.Failed {
		return
	}
	if len(reply.Content) > p.printed {
		fmt.Fprint(p.out, reply.Content[p.printed:])
		p.printed = len(reply.Content)
	}
}

func (p *chunkPrinter) HistoryUpdated([]chat.Session) {}

func printSegments(out io.Writer, content string) {
	fmt.Fprintln(out, "\n--- segments ---")
	for seg := range segment.Parse(content) {
		switch seg.Kind {
		case segment.KindCode:
			fmt.Fprintf(out, "[%s]\n%s\n", segment.DisplayLanguage(seg), seg.Code)
		default:
			for span := range segment.Emphasis(seg.Text) {
				if span.Bold {
					fmt.Fprintf(out, "*%s*", strings.ToUpper(span.Text))
					continue
				}
				fmt.Fprint(out, span.Text)
			}
		}
	}
}
