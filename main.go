package main

import "prodflow/internal/cli"

func main() {
	cli.Execute()
}
