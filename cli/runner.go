// Command execution for CLI commands.
//
// Information Hiding:
// - Assistant assembly from settings hidden
// - Chat loop, streaming output and persistence hidden
// - The async profile refresh is the CLI's concern, not the assistant's

package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/richinex/hermes/assistant"
	"github.com/richinex/hermes/config"
	"github.com/richinex/hermes/llm"
	"github.com/richinex/hermes/memory"
	"github.com/richinex/hermes/model"
	"github.com/richinex/hermes/relevance"
	"github.com/richinex/hermes/storage"
	"github.com/richinex/hermes/tools"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	User     string
	Verbose  bool
}

// runtime bundles everything a command needs after setup.
type runtime struct {
	settings   config.Settings
	provider   llm.Provider
	assistant  *assistant.Assistant
	registry   *tools.Registry
	store      storage.Store
	summarizer memory.Summarizer
	close      func()
}

// setup builds the full assistant stack from settings and environment.
func setup(opts Options) (*runtime, error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}
	providerType := settings.Provider.Type

	provider, err := providerType.Model(settings.Provider.Model).FromEnv()
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(settings.Storage)
	if err != nil {
		return nil, err
	}

	judge := relevance.NewModelJudge(provider, providerType.FastModel())
	assembler := memory.NewAssembler(judge, memory.Config{
		HistoryLimit: settings.Memory.HistoryLimit,
		ShortWindow:  settings.Memory.ShortWindow,
		DigestLimit:  settings.Memory.DigestLimit,
	})
	summarizer := memory.NewModelSummarizer(provider, providerType.FastModel(),
		settings.Memory.ProfileSourceLimit, settings.Memory.ProfileCharBudget)

	registry, err := buildRegistry(judge, settings.Tools)
	if err != nil {
		closeStore()
		return nil, err
	}
	executor := tools.NewExecutor(registry, time.Duration(settings.Tools.TimeoutSecs)*time.Second)

	asst, err := assistant.New(assistant.Config{
		Provider:  provider,
		Assembler: assembler,
		History:   store,
		Profiles:  store,
		Registry:  registry,
		Executor:  executor,
		Router:    assistant.NewRouter(provider, providerType),
	})
	if err != nil {
		closeStore()
		return nil, err
	}

	return &runtime{
		settings:   settings,
		provider:   provider,
		assistant:  asst,
		registry:   registry,
		store:      store,
		summarizer: summarizer,
		close:      closeStore,
	}, nil
}

func openStore(cfg config.StorageConfig) (storage.Store, func(), error) {
	if cfg.Backend == "sqlite" {
		s, err := storage.OpenSqlite(filepath.Join(cfg.Dir, "hermes.db"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return s, func() { s.Close() }, nil
	}
	s, err := storage.NewFileStore(cfg.Dir)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}

func buildRegistry(judge relevance.Judge, cfg config.ToolsConfig) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	// Caption-less videos need a speech-to-text backend; only OpenAI
	// carries one. Without the key the tool still works for captioned
	// videos.
	var speech tools.SpeechToText
	if key := os.Getenv(llm.ProviderOpenAI.EnvVar()); key != "" {
		speech = llm.NewWhisperTranscriber(key)
	}

	for _, tool := range []tools.Tool{
		tools.NewWebSearchTool(http.DefaultClient, judge, cfg.SearchMaxFetch),
		tools.NewFetchTool(http.DefaultClient),
		tools.NewWeatherTool(http.DefaultClient),
		tools.NewClockTool(),
		tools.NewTranscribeTool(speech),
	} {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Chat starts an interactive conversation. An empty conversationID starts
// a fresh conversation.
func Chat(ctx context.Context, conversationID string, opts Options) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	if conversationID == "" {
		conversationID = uuid.New().String()
	} else {
		history, err := rt.store.Read(ctx, opts.User, conversationID)
		if err == nil && len(history) > 0 {
			fmt.Printf("Resuming conversation %s (%d messages)\n\n", conversationID, len(history))
		}
	}

	fmt.Printf("Chat started (conversation %s). Type 'exit' to quit.\n", conversationID)
	fmt.Println("Attach an image with: /image <path> <message>")
	fmt.Println()

	// Profile refreshes run in the background; wait for stragglers on the
	// way out so a refresh is not killed mid-write.
	var refreshes sync.WaitGroup
	defer refreshes.Wait()

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
		if line == "exit" || line == "quit" {
			break
		}

		req := assistant.Request{
			UserID:         opts.User,
			ConversationID: conversationID,
		}
		req.Text, req.ImagePath = parseImageCommand(line)

		if err := runTurn(ctx, rt, req, &refreshes, opts.Verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return scanner.Err()
}

// Ask answers a single question in a throwaway conversation.
func Ask(ctx context.Context, question, imagePath string, opts Options) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	var refreshes sync.WaitGroup
	defer refreshes.Wait()

	return runTurn(ctx, rt, assistant.Request{
		UserID:         opts.User,
		ConversationID: uuid.New().String(),
		Text:           question,
		ImagePath:      imagePath,
	}, &refreshes, opts.Verbose)
}

// runTurn streams one answer, persists the turn, and schedules a profile
// refresh.
func runTurn(ctx context.Context, rt *runtime, req assistant.Request, refreshes *sync.WaitGroup, verbose bool) error {
	deltas := make(chan string)
	printed := make(chan struct{})
	go func() {
		for delta := range deltas {
			fmt.Print(delta)
		}
		close(printed)
	}()

	result, err := rt.assistant.Respond(ctx, req, deltas)
	close(deltas)
	<-printed
	if err != nil {
		return err
	}
	fmt.Println()

	note := model.UsageNote(result.ToolsUsed, rt.registry.DisplayLabels())
	if note != "" {
		fmt.Println(note)
	}
	if verbose {
		fmt.Printf("\n(%d model calls)\n", result.ModelCalls)
	}
	fmt.Println()

	// Persist the turn. The stored assistant text keeps the usage note so
	// a later reader of the transcript sees what ran; memory assembly
	// strips it again before prompting.
	userMsg := model.UserText(req.Text)
	if req.ImagePath != "" {
		userMsg.Parts = append(userMsg.Parts, model.ImagePart(req.ImagePath))
	}
	history, err := rt.store.Read(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	history = append(history, userMsg, model.AssistantText(result.Text+note))
	if err := rt.store.Write(ctx, req.UserID, req.ConversationID, history); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	refreshes.Add(1)
	go func(history []model.Message) {
		defer refreshes.Done()
		refreshProfile(rt, req.UserID, history)
	}(history)
	return nil
}

// refreshProfile re-summarizes the profile off the turn's critical path.
// Its own deadline keeps a hung refresh from leaking.
func refreshProfile(rt *runtime, userID string, history []model.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	summary, ok := rt.summarizer.Refresh(ctx, history)
	if !ok {
		return
	}
	meta := model.ProfileMeta{
		LastUpdated:    time.Now().UTC(),
		SourceMessages: countUserMessages(history),
	}
	if err := rt.store.SaveProfile(ctx, userID, summary, meta); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: profile save failed: %v\n", err)
	}
}

func countUserMessages(history []model.Message) int {
	n := 0
	for _, msg := range history {
		if msg.Role == model.RoleUser {
			n++
		}
	}
	return n
}

// parseImageCommand splits "/image <path> <message>" into its parts.
// Anything else is a plain message.
func parseImageCommand(line string) (text, imagePath string) {
	if !strings.HasPrefix(line, "/image ") {
		return line, ""
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "/image "))
	parts := strings.SplitN(rest, " ", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[1]), parts[0]
	}
	return "", parts[0]
}

// ListConversations prints a user's conversations, newest first.
func ListConversations(ctx context.Context, opts Options) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	ids, err := rt.store.Conversations(ctx, opts.User)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No conversations.")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

// ClearConversation removes one conversation's history.
func ClearConversation(ctx context.Context, conversationID string, opts Options) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.store.Clear(ctx, opts.User, conversationID); err != nil {
		return err
	}
	fmt.Printf("Cleared conversation %s\n", conversationID)
	return nil
}

// ListTools prints the registered tools.
func ListTools(opts Options) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	for _, d := range rt.registry.List() {
		fmt.Printf("%s (%s)\n  %s\n", d.Name, d.DisplayName, d.Description)
	}
	return nil
}
