package main

import (
	"bytes"
	"testing"
)

func TestRootCmd_RequiresURL(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	if err := cmd.Execute(); err == nil {
		t.Error("expected error when no URL is given")
	}
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := rootCmd()
	for _, name := range []string{"config", "output-dir", "log-level", "verbose", "timeout", "render-js"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag --%s to be registered", name)
		}
	}
}

func TestInitCommand_Registered(t *testing.T) {
	for _, sub := range rootCmd().Commands() {
		if sub.Name() == "init" {
			return
		}
	}
	t.Error("expected init subcommand to be registered")
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"version"})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	if err := cmd.Execute(); err != nil {
		t.Errorf("version command failed: %v", err)
	}
}
