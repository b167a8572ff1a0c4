package main

import "karaluxer/internal/cli"

func main() {
	cli.Execute()
}
