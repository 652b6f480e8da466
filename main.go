package main

import "github.com/notargets/plasmamesh/cmd"

func main() {
	cmd.Execute()
}
