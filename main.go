package main

import "github.com/forgestack/forge/cmd"

func main() {
	cmd.Execute()
}
