package main

import (
	"github.com/agenium-scale/nsconfig/cmd"
)

func main() {
	cmd.Execute()
}
