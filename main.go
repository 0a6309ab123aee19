package main

import (
	"os"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
