package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"portal-agent/internal/application/port/input"
	"portal-agent/internal/di"
)

func main() {
	container, err := di.NewContainer(di.Config{Console: true})
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer container.Close()

	fmt.Println("\nEnter a goal for the agent:")
	reader := bufio.NewReader(os.Stdin)
	goal, err := reader.ReadString('\n')
	if err != nil {
		log.Fatal("failed to read input: ", err)
	}
	goal = strings.TrimSpace(goal)

	var pageState json.RawMessage
	if path := container.Env.Get("PAGE_STATE_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("failed to read %s: %v", path, err)
		}
		pageState = data
	}

	mode := input.RunMode(container.Env.GetWithDefault("RUN_MODE", string(input.ModePlan)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	container.Logger.Info("run started", "goal", goal, "mode", string(mode))

	result, err := container.Runner.Run(ctx, input.RunRequest{
		Goal:      goal,
		PageState: pageState,
		Mode:      mode,
	})
	if err != nil {
		container.Logger.Error("run failed", "error", err.Error())
		fmt.Printf("\nRun failed: %v\n", err)
		os.Exit(1)
	}

	container.Logger.Info("run completed", "steps", len(result.Steps))
	fmt.Println("\nRESULT:")
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}
