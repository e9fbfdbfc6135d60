package main

import "github.com/kozaktomas/face-animator/cmd"

func main() {
	cmd.Execute()
}
