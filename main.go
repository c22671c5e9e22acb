package main

import "github.com/aMonteSl/codexr-mcp/cmd"

func main() {
	cmd.Execute()
}
