package main

import (
	"github.com/sidkik/studymirror/cmd"
	"github.com/sidkik/studymirror/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
