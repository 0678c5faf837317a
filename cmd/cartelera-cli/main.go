package main

import (
	"context"

	"cartelera-backend/cmd/cartelera-cli/commands"
	"cartelera-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "cartelera-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
