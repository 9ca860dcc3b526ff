package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xcro3dile/kluagent/internal/adapters/college"
	"github.com/0xcro3dile/kluagent/internal/adapters/filewatcher"
	"github.com/0xcro3dile/kluagent/internal/domain/entities"
	"github.com/0xcro3dile/kluagent/internal/domain/usecases"
	httpapi "github.com/0xcro3dile/kluagent/internal/infrastructure/http"
	"github.com/0xcro3dile/kluagent/internal/sampledocs"
	"github.com/0xcro3dile/kluagent/internal/tui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Seeds the college database and the sample documents when they are empty,
then serves the chat, document and admin API until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive terminal chat",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the college database and ingest the sample documents",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database and document store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// prepare seeds empty stores so a fresh install can answer immediately.
func (a *app) prepare(ctx context.Context) error {
	if _, err := a.college.Seed(ctx); err != nil {
		return err
	}
	if _, err := a.ingest.SeedIfEmpty(ctx, sampledocs.FS()); err != nil {
		return err
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.prepare(ctx); err != nil {
		return err
	}

	cleanup := usecases.NewSessionCleanup(a.sessions, cfg.Sessions.CleanupInterval, logger)
	cleanup.Start(ctx)
	defer cleanup.Stop()

	if cfg.Storage.WatchDocs {
		if err := a.watchDocuments(ctx); err != nil {
			return err
		}
	}

	server := httpapi.NewServer(httpapi.Dependencies{
		Chat:        a.sessions,
		Documents:   a.ingest,
		Store:       a.store,
		Database:    a.college,
		SampleDocs:  sampledocs.FS(),
		LLMProvider: cfg.LLM.Provider,
		LLMModel:    a.llm.Model(),
	}, httpapi.Config{
		Addr:            cfg.Server.Addr(),
		Version:         version,
		CORSOrigins:     cfg.Server.CORSOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
	}, logger)

	return server.Start(ctx)
}

// watchDocuments ingests the documents directory and keeps it in sync.
func (a *app) watchDocuments(ctx context.Context) error {
	dir := cfg.Storage.DocumentsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating documents directory: %w", err)
	}
	names, err := a.ingest.SeedFS(ctx, os.DirFS(dir))
	if err != nil {
		return err
	}
	logger.Info("documents directory ingested", zap.String("dir", dir), zap.Int("documents", len(names)))

	watcher, err := filewatcher.NewFSNotifyWatcher(a.loader.SupportedExtensions(), logger)
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	go func() {
		defer watcher.Stop()
		if err := a.ingest.Watch(ctx, watcher, dir); err != nil {
			logger.Error("document watcher stopped", zap.Error(err))
		}
	}()
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.prepare(ctx); err != nil {
		return err
	}

	res := a.sessions.AppendTurn(ctx, "", strings.Join(args, " "))
	printAnswer(cmd.OutOrStdout(), res)
	return nil
}

func printAnswer(w io.Writer, res entities.ChatResult) {
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Fprintln(w, boldCyan("KLU Agent:"))
	fmt.Fprintln(w, res.Answer)
	if len(res.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold("Sources:"))
		for _, s := range res.Sources {
			fmt.Fprintf(w, "  [%s] %s\n", s.Type, s.Name)
		}
	}
	fmt.Fprintln(w, dim(fmt.Sprintf("(%.2fs)", res.ElapsedSeconds)))
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.prepare(ctx); err != nil {
		return err
	}

	p := tea.NewProgram(tui.New(ctx, a.sessions, ""), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	out := cmd.OutOrStdout()

	seeded, err := a.college.Seed(ctx)
	if err != nil {
		return err
	}
	if seeded {
		fmt.Fprintln(out, green("✓"), "College database seeded at", a.college.Path())
	} else {
		fmt.Fprintln(out, yellow("•"), "College database already has data, left unchanged")
	}

	names, err := a.ingest.SeedFS(ctx, sampledocs.FS())
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(out, green("✓"), "Ingested", n)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	dbStats, err := a.college.Stats(ctx)
	if err != nil {
		return err
	}
	docStats, err := a.store.Stats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	header := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Fprintln(out, header("College database"), "("+a.college.Path()+")")
	for _, t := range dbStats.Tables {
		fmt.Fprintf(out, "  %-12s %6d\n", t.TableName, t.RowCount)
	}
	fmt.Fprintf(out, "  %-12s %6d\n", "total", dbStats.TotalRows)
	fmt.Fprintf(out, "  %d tables\n", len(college.Tables))

	fmt.Fprintln(out)
	fmt.Fprintln(out, header("Document store"))
	fmt.Fprintf(out, "  %d documents, %d chunks\n", docStats.TotalDocuments, docStats.TotalChunks)
	for _, s := range docStats.Sources {
		fmt.Fprintln(out, "  -", s)
	}
	return nil
}
