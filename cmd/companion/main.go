// Package main boots the companion agent REPL and wires application dependencies.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	internalagent "github.com/easeaico/persona-agent/internal/agent"
	"github.com/easeaico/persona-agent/internal/config"
	"github.com/easeaico/persona-agent/internal/emotion"
	"github.com/easeaico/persona-agent/internal/memory"
	"github.com/easeaico/persona-agent/internal/models"
	"github.com/easeaico/persona-agent/internal/prompt"
	"github.com/easeaico/persona-agent/internal/repository"
	"github.com/easeaico/persona-agent/internal/tool"
	"github.com/easeaico/persona-agent/internal/types"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	slog.Info("configuration loaded", "llm_model", cfg.LLMModel, "embedding_model", cfg.EmbeddingModel, "user_id", cfg.UserID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n正在关闭...")
		cancel()
		// REPL 可能阻塞等待 stdin，给它短暂时间退出
		time.Sleep(500 * time.Millisecond)
		os.Exit(0)
	}()

	embedder, err := memory.NewEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
	if err != nil {
		log.Fatalf("failed to create embedder service: %v", err)
	}

	store, err := repository.NewStore(ctx, cfg.DatabaseURL, embedder)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	backend, err := models.NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLMModel)
	if err != nil {
		log.Fatalf("failed to create chat backend: %v", err)
	}

	manager := memory.NewManager(cfg.UserID, store.Memories, store.Vectors)

	table := memory.DefaultRuleTable()
	if cfg.RulesPath != "" {
		table, err = memory.LoadRuleTable(cfg.RulesPath)
		if err != nil {
			log.Fatalf("failed to load extractor rules: %v", err)
		}
	}
	extractor, err := memory.NewExtractor(table)
	if err != nil {
		log.Fatalf("failed to compile extractor rules: %v", err)
	}

	persona, err := ensurePersona(ctx, store.Profiles, cfg.PersonaID)
	if err != nil {
		log.Fatalf("failed to prepare persona: %v", err)
	}

	registry := tool.NewRegistry()
	if cfg.EnableTools {
		registry.Register(tool.NewDateTimeTool())
		registry.Register(tool.NewMemoryTool(manager))
		registry.Register(tool.NewWebSearchTool(cfg.SearchAPIKey))
		registry.Register(tool.NewFileWriteTool(filepath.Join(cfg.DataDir, "txt")))
		registry.Register(tool.NewFileReadTool(cfg.DataDir))
		registry.Register(tool.NewScreenshotTool(filepath.Join(cfg.DataDir, "screenshots"), nil))
	}

	builder := prompt.NewBuilder(store.Profiles, manager, cfg.HistoryLimit, cfg.TopK, cfg.MemoryBudgetChars)

	orchestrator, err := internalagent.NewOrchestrator(internalagent.Options{
		UserID:       cfg.UserID,
		PersonaID:    cfg.PersonaID,
		MaxToolCalls: cfg.MaxToolCalls,
		HistoryLimit: cfg.HistoryLimit,
		Backend:      backend,
		Sessions:     store.Sessions,
		Personas:     store.Profiles,
		Builder:      builder,
		Tools:        registry,
		Memories:     manager,
		Extractor:    extractor,
		Summarizer:   memory.NewSummarizer(backend, extractor),
		Analyzer:     emotion.NewAnalyzer(backend),
		Emotions:     emotion.NewService(emotion.NewStateMachine(), store.Profiles, persona.ID),
	})
	if err != nil {
		log.Fatalf("failed to create orchestrator: %v", err)
	}

	runREPL(ctx, orchestrator, manager, registry)
}

// ensurePersona loads the configured persona, seeding a default one on
// first run.
func ensurePersona(ctx context.Context, profiles *repository.ProfileRepo, personaID int) (*types.Persona, error) {
	if personaID > 0 {
		persona, err := profiles.GetPersona(ctx, personaID)
		if err != nil {
			return nil, err
		}
		if persona != nil {
			return persona, nil
		}
	}

	persona, err := profiles.GetDefaultPersona(ctx)
	if err != nil {
		return nil, err
	}
	if persona != nil {
		return persona, nil
	}

	seeded := &types.Persona{
		Name:        "小雨",
		Personality: "温柔体贴，善解人意，偶尔有点小俏皮",
		SystemPrompt: `你是{{char}}，{{user}}的AI伴侣。你温柔体贴，关心{{user}}的生活和心情。
说话自然亲切，像身边的朋友一样。`,
		Greeting:    "你回来啦~ 今天过得怎么样？",
		Affection:   50,
		CurrentMood: emotion.MoodNeutral,
	}
	if err := profiles.CreatePersona(ctx, seeded); err != nil {
		return nil, err
	}
	slog.Info("seeded default persona", "persona_id", seeded.ID, "name", seeded.Name)
	return seeded, nil
}

func runREPL(ctx context.Context, orchestrator *internalagent.Orchestrator, manager *memory.Manager, registry *tool.Registry) {
	fmt.Println(orchestrator.Greeting(ctx))
	fmt.Println("输入 /help 查看命令，/exit 退出。")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/exit" || line == "/quit":
			closed, err := orchestrator.EndSession(ctx, true)
			if err != nil {
				slog.Error("failed to end session", "error", err.Error())
			} else if closed {
				fmt.Println("会话已结束，记忆已保存。")
			}
			return
		case line == "/help":
			fmt.Println("/memories  查看最近记忆\n/tools     查看可用工具\n/exit      结束会话并退出")
			continue
		case line == "/memories":
			printMemories(ctx, manager)
			continue
		case line == "/tools":
			fmt.Println(registry.Describe())
			continue
		}

		reply, err := orchestrator.Chat(ctx, line)
		if err != nil {
			slog.Error("chat turn failed", "error", err.Error())
			fmt.Println("出了点问题，请再试一次。")
			continue
		}
		fmt.Println(reply)
	}
}

func printMemories(ctx context.Context, manager *memory.Manager) {
	memories, err := manager.GetRecent(ctx, 10)
	if err != nil {
		slog.Error("failed to list memories", "error", err.Error())
		return
	}
	if len(memories) == 0 {
		fmt.Println("还没有任何记忆。")
		return
	}
	for _, mem := range memories {
		fmt.Printf("- [%s] %s (重要度 %.1f)\n", mem.Type, mem.Content, mem.Importance)
	}
}
