// internal/cli/root_test.go
package studyrag

import (
	"bytes"
	"strings"
	"testing"
)

// TestRootCmd verifies running the root command with an invalid subcommand reports an error.
func TestRootCmd(t *testing.T) {
	b := new(bytes.Buffer)
	rootCmd.SetOut(b)
	rootCmd.SetErr(b)

	rootCmd.SetArgs([]string{"nonexistent"})
	_, err := rootCmd.ExecuteC()

	if err == nil {
		t.Error("Expected an error for a nonexistent command, but got none")
	}

	expected := "unknown command \"nonexistent\" for \"studyrag\""
	if !strings.Contains(b.String(), expected) {
		t.Errorf("Expected output to contain '%s', but got '%s'", expected, b.String())
	}
}

func TestSuggestListsQuestions(t *testing.T) {
	b := new(bytes.Buffer)
	rootCmd.SetOut(b)
	rootCmd.SetErr(b)
	rootCmd.SetArgs([]string{"suggest", "--config", writeConfig(t, "http://127.0.0.1:1/v1")})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("suggest returned error: %v", err)
	}
	if !strings.Contains(b.String(), "1. What is economics and why is it important?") {
		t.Fatalf("expected numbered suggestions, got: %s", b.String())
	}
}
