package main

import "github.com/mcoot/shellgame/internal/cli"

func main() {
	cli.Execute()
}
