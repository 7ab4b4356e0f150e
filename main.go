package main

import "github.com/relloyd/songlake/cmd"

func main() {
	cmd.Execute()
}
