package main

import "github.com/tessro/muffle/internal/cli"

func main() {
	cli.Execute()
}
