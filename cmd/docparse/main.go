package main

import "github.com/docparse-io/docparse/cmd/docparse/cmd"

func main() {
	cmd.Execute()
}
