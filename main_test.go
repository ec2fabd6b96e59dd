package main

import (
	"os"
	"testing"
)

// TestMain_Help runs the binary entry point with --help, which returns
// without exiting.
func TestMain_Help(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open %s: %v", os.DevNull, err)
	}
	defer devNull.Close()

	origStdout := os.Stdout
	os.Stdout = devNull
	t.Cleanup(func() { os.Stdout = origStdout })

	os.Args = []string{"cwdsp", "--help"}
	main()
}
