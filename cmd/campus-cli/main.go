package main

import (
	"context"

	"campusdual-backend/cmd/campus-cli/commands"
	"campusdual-backend/internal/components/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	commands.ExecuteContext(context.Background())
}
