package main

import "github.com/OpenTraceLab/OpenTraceBench/cmd/otb/cmd"

func main() {
	cmd.Execute()
}
