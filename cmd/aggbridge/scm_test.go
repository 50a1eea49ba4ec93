package main

import "testing"

func TestSCMCmdDirectMergeFlag(t *testing.T) {
	cmd := newSCMCmd()

	f := cmd.Flags().Lookup("reconcile-direct-merges")
	if f == nil {
		t.Fatal("reconcile-direct-merges flag not registered")
	}
	if f.DefValue != "true" {
		t.Fatalf("default = %s, want true", f.DefValue)
	}
	if cmd.Flags().Changed("reconcile-direct-merges") {
		t.Fatal("flag reports changed before parsing")
	}

	if err := cmd.Flags().Parse([]string{"--reconcile-direct-merges=false"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cmd.Flags().Changed("reconcile-direct-merges") {
		t.Fatal("explicit flag not reported as changed, env override would never apply")
	}
	got, err := cmd.Flags().GetBool("reconcile-direct-merges")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got {
		t.Fatal("--reconcile-direct-merges=false parsed as true")
	}
}
