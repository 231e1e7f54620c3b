package main

import "github.com/oshokin/playdate-sdk-updater/cmd/playdate-sdk-updater/cmd"

func main() {
	cmd.Execute()
}
