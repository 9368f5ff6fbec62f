// Package cli implements the story-history CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/config"
	"github.com/rcliao/story-history/internal/history"
	"github.com/rcliao/story-history/internal/llm"
	"github.com/rcliao/story-history/internal/logger"
	"github.com/rcliao/story-history/internal/memory"
	"github.com/rcliao/story-history/internal/scene"
	"github.com/rcliao/story-history/internal/status"
	"github.com/rcliao/story-history/internal/summarizer"
	"github.com/rcliao/story-history/internal/tokenizer"
)

var (
	scenePath  string
	dbPath     string
	configPath string
	formatFlag string

	cfg *config.Config
	log = zerolog.Nop()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "story-history",
	Short: "Layered history compaction for interactive stories",
	Long: "Maintains the archive and layered summaries of a story scene file. " +
		"Transcript in, compact history out. SQLite-backed memory index, single binary.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c
		log = logger.New("story-history", cfg.LogLevel, cfg.LogPretty)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&scenePath, "scene", "s", "", "Scene JSON file")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Memory database path (default: $STORY_HISTORY_DB_PATH or story-history.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.DBPath
}

func openIndex() (*memory.SQLiteIndex, error) {
	return memory.NewSQLiteIndex(getDBPath())
}

// loadScene reads the scene named by --scene. With create set, a missing
// file yields a new empty scene.
func loadScene(create bool) (*scene.Scene, error) {
	if scenePath == "" {
		return nil, errors.New("--scene is required")
	}
	sc, err := scene.Load(scenePath)
	if create && errors.Is(err, os.ErrNotExist) {
		return scene.New(strings.TrimSuffix(scenePath, ".json")), nil
	}
	return sc, err
}

func saveScene(sc *scene.Scene) {
	if err := sc.Save(scenePath); err != nil {
		exitErr("save scene", err)
	}
}

var errNoLLM = errors.New("no language model configured (set llm.api_key or STORY_HISTORY_LLM_API_KEY)")

func newLLM() llm.Client {
	if cfg.LLM.APIKey == "" {
		return llm.Func(func(context.Context, llm.Request) (string, error) { return "", errNoLLM })
	}
	client, err := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		exitErr("llm", err)
	}
	return client
}

func newCounter() tokenizer.Counter {
	c, err := tokenizer.New(cfg.Tokenizer, cfg.Encoding)
	if err != nil {
		exitErr("tokenizer", err)
	}
	return c
}

// newEngine builds the history engine. idx may be nil when the command
// does not touch the memory index. Status events always go to the log and
// additionally to any extra emitters.
func newEngine(idx *memory.SQLiteIndex, extra ...status.Emitter) *history.Engine {
	sink := append(status.Multi{status.Logger{Log: log}}, extra...)
	opts := []history.Option{
		history.WithTokenizer(newCounter()),
		history.WithStatus(sink),
		history.WithLogger(log),
	}
	if idx != nil {
		opts = append(opts, history.WithMemory(idx))
	}
	return history.New(cfg.History(), summarizer.New(newLLM(), log), opts...)
}

// readContent returns the positional args joined, or stdin when piped.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " "))
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return strings.TrimSpace(string(b))
	}
	return ""
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func textOutput() bool {
	return formatFlag == "text"
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
