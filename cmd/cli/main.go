package main

import "rastreo/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
