package main

import (
	"github.com/mdmtools/patchscope/cmd"
)

func main() {
	cmd.Execute()
}
