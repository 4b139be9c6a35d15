package main

import "github.com/emaland/gpulaunch/cmd"

func main() {
	cmd.Execute()
}
