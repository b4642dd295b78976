package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/relationship-engine/internal/config"
	"github.com/jwebster45206/relationship-engine/internal/logger"
	"github.com/jwebster45206/relationship-engine/internal/services"
	"github.com/jwebster45206/relationship-engine/internal/storage"
	"github.com/jwebster45206/relationship-engine/pkg/prompts"
	"github.com/jwebster45206/relationship-engine/pkg/simulation"
)

var (
	sceneMasterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	agent1Style      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	agent2Style      = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	outputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

func main() {
	var (
		runs         = flag.Int("n", 1, "number of simulations to run")
		interactions = flag.Int("interactions", 0, "agent interactions per scene (default from env)")
		persona1     = flag.String("p1", "", "first persona id from the roster")
		persona2     = flag.String("p2", "", "second persona id from the roster")
		save         = flag.Bool("save", false, "save a snapshot of each simulation when it finishes")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg)
	if *interactions <= 0 {
		*interactions = cfg.InteractionsPerScene
	}

	store := storage.NewFileStorage(cfg.SavesDir, cfg.TurningPointsPath, cfg.PersonasPath, log)

	ctx := context.Background()
	catalog, err := store.GetCatalog(ctx)
	if err != nil {
		log.Error("Failed to load turning-point catalog", "error", err)
		os.Exit(1)
	}

	p1, p2, err := resolvePersonas(ctx, store, *persona1, *persona2)
	if err != nil {
		log.Error("Failed to resolve personas", "error", err)
		os.Exit(1)
	}

	ollama := services.NewOllamaService(cfg.OllamaURL, cfg.OllamaModel, cfg.EmbeddingModel, log)
	var llmService services.LLMService
	var modelName string
	switch strings.ToLower(cfg.LLMProvider) {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Error("Anthropic API key is required when using anthropic provider")
			os.Exit(1)
		}
		llmService = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.AnthropicModel, log)
		modelName = cfg.AnthropicModel
	case "ollama":
		llmService = ollama
		modelName = cfg.OllamaModel
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider)
		os.Exit(1)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	if err := llmService.InitModel(initCtx, modelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", modelName)
		os.Exit(1)
	}

	simConfig := simulation.Config{
		LLM:       llmService,
		Embedder:  ollama,
		Templates: prompts.NewStore(),
		Catalog:   catalog,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:    log,
	}

	if *runs == 1 {
		sim := simulation.New(simConfig, p1.Name, p1.Description, p2.Name, p2.Description)
		runStreaming(ctx, sim, *interactions)
		saveIfRequested(ctx, store, sim, *save)
		return
	}

	sims := make([]*simulation.Simulation, *runs)
	for i := range sims {
		sims[i] = simulation.New(simConfig, p1.Name, p1.Description, p2.Name, p2.Description)
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Running %d simulations (max %d concurrent)", *runs, cfg.MaxConcurrentRuns)))
	results := simulation.RunBatch(ctx, sims, *interactions, cfg.MaxConcurrentRuns)

	failed := 0
	for i, res := range results {
		fmt.Println(headerStyle.Render(fmt.Sprintf("\n=== Simulation %d (%s) ===", i+1, res.Simulation.ID)))
		for _, ev := range res.Events {
			printEvent(ev)
		}
		if res.Err != nil {
			failed++
			fmt.Println(errorStyle.Render("run failed: " + res.Err.Error()))
			continue
		}
		saveIfRequested(ctx, store, res.Simulation, *save)
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("\n%d/%d simulations completed", *runs-failed, *runs)))
	if failed > 0 {
		os.Exit(1)
	}
}

func resolvePersonas(ctx context.Context, store storage.Storage, id1, id2 string) (*storage.Persona, *storage.Persona, error) {
	personas, err := store.ListPersonas(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(personas) < 2 {
		return nil, nil, fmt.Errorf("persona roster needs at least two entries")
	}
	// Default to the first two roster entries.
	if id1 == "" {
		id1 = personas[0].ID
	}
	if id2 == "" {
		id2 = personas[1].ID
	}

	find := func(id string) (*storage.Persona, error) {
		for _, p := range personas {
			if p.ID == id {
				return &p, nil
			}
		}
		return nil, fmt.Errorf("unknown persona id %s", id)
	}
	p1, err := find(id1)
	if err != nil {
		return nil, nil, err
	}
	p2, err := find(id2)
	if err != nil {
		return nil, nil, err
	}
	return p1, p2, nil
}

func runStreaming(ctx context.Context, sim *simulation.Simulation, interactions int) {
	stream := sim.RunStream(ctx, interactions)
	for ev := range stream.Events() {
		printEvent(ev)
	}
	if err := stream.Err(); err != nil {
		fmt.Println(errorStyle.Render("run failed: " + err.Error()))
		os.Exit(1)
	}
}

func saveIfRequested(ctx context.Context, store storage.Storage, sim *simulation.Simulation, save bool) {
	if !save {
		return
	}
	snap := sim.Snapshot()
	if err := store.SaveSnapshot(ctx, sim.ID, &snap); err != nil {
		fmt.Println(errorStyle.Render("save failed: " + err.Error()))
		return
	}
	fmt.Println(outputStyle.Render("snapshot saved: " + sim.ID.String()))
}

func printEvent(ev simulation.Event) {
	switch ev.Type {
	case simulation.EventSceneMaster:
		fmt.Println(sceneMasterStyle.Render(ev.Content))
	case simulation.EventAgent1:
		fmt.Println(agent1Style.Render(ev.Content))
	case simulation.EventAgent2:
		fmt.Println(agent2Style.Render(ev.Content))
	case simulation.EventError:
		fmt.Println(errorStyle.Render(ev.Content))
	default:
		fmt.Println(outputStyle.Render(ev.Content))
	}
}
