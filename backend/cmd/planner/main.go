package main

import "ai-advisor/backend/internal/cli"

func main() {
	cli.Execute()
}
