package main

import "github.com/cowcheng/huggingface-datasets-builder/apps/cli/cmd"

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime)
}
