package main

import "github.com/gbone001/hall-frontline-pass/internal/cli"

func main() {
	cli.Execute()
}
