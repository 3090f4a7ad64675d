package main

import "carbon-scribe/emissions-forecast/cmd/forecast/cmd"

func main() {
	cmd.Execute()
}
