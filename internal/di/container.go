package di

import (
	"fmt"

	"portal-agent/internal/adapter/tool"
	"portal-agent/internal/application/port/input"
	"portal-agent/internal/application/port/output"
	"portal-agent/internal/application/service"
	"portal-agent/internal/domain/entity"
	"portal-agent/internal/infrastructure/env"
	"portal-agent/internal/infrastructure/llm/sealion"
	"portal-agent/internal/infrastructure/logger"
	"portal-agent/internal/infrastructure/userinteraction"
	"portal-agent/internal/usecase/runner"
)

type Container struct {
	Env    output.ConfigPort
	LLM    output.LLMPort
	Logger output.LoggerPort
	Source output.SnapshotSource
	Runner input.PlanRunner
}

type Config struct {
	// Console attaches the stdin interaction adapter; the HTTP server
	// leaves it off and pauses runs instead.
	Console bool
}

func NewContainer(cfg Config) (*Container, error) {
	envService := env.NewEnvService()

	log, err := logger.New(envService.GetWithDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	llmCfg := sealion.DefaultConfig(
		envService.MustGet("SEA_LION_API_KEY"),
		envService.Get("SEA_LION_MODEL_NAME"),
		envService.Get("SEA_LION_BASE_URL"),
	)
	llmCfg.Logger = log
	llm := sealion.NewAdapter(llmCfg)

	source := service.NewSnapshotStore()

	var user output.UserInteractionPort
	if cfg.Console {
		user = userinteraction.NewConsoleUserInteraction()
	}

	newExecutor := func(page entity.Snapshot) output.ExecutorPort {
		return tool.NewProxyExecutor(page, source, log)
	}

	return &Container{
		Env:    envService,
		LLM:    llm,
		Logger: log,
		Source: source,
		Runner: runner.New(llm, envService, source, user, log, newExecutor),
	}, nil
}

func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}
