package main

import "github.com/gmartinez/chatcli/internal/cli"

func main() {
	cli.Execute()
}
