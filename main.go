package main

import (
	"github.com/ColonelBlimp/cwdsp/cmd"
	"github.com/ColonelBlimp/cwdsp/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
