package main

import (
	"path/filepath"
	"strings"
	"testing"
)

// run executes a fresh root command against the shared sqlite file and
// returns captured stdout.
func run(t *testing.T, args ...string) string {
	t.Helper()
	b := &strings.Builder{}
	root := NewRootCmd()
	root.SetOut(b)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return b.String()
}

func TestCLI_SignupGroupLinkFlow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "groupshare.db")
	t.Setenv("GROUPSHARE_STORE_BACKEND", "sqlite")
	t.Setenv("GROUPSHARE_SQLITE_PATH", dbPath)

	run(t, "signup", "--email", "a@x.com", "--nickname", "alice")
	run(t, "signup", "--email", "b@x.com", "--nickname", "bob")

	run(t, "--as", "a@x.com", "create-group", "--name", "reading list")

	out := run(t, "--as", "a@x.com", "list-groups")
	if !strings.Contains(out, "reading list") {
		t.Fatalf("list-groups missing created group: %q", out)
	}
	groupID := strings.Fields(out)[0]

	run(t, "--as", "a@x.com", "add-members", "--group-id", groupID, "--email", "b@x.com")
	run(t, "--as", "a@x.com", "share-link", "--group-id", groupID,
		"--url", "https://go.dev", "--title", "Go")

	out = run(t, "--as", "b@x.com", "list-groups", "--links")
	if !strings.Contains(out, "https://go.dev") {
		t.Fatalf("member does not see the shared link: %q", out)
	}
	linkID := ""
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "https://go.dev") {
			linkID = strings.Fields(line)[0]
		}
	}
	if linkID == "" {
		t.Fatalf("link id not found in output: %q", out)
	}

	run(t, "--as", "b@x.com", "vote", "--group-id", groupID, "--link-id", linkID, "--direction", "down")
	run(t, "--as", "b@x.com", "comment", "--group-id", groupID, "--link-id", linkID, "--content", "seen it")

	out = run(t, "--as", "a@x.com", "list-groups", "--links")
	if !strings.Contains(out, "+0/-1") || !strings.Contains(out, "comments=1") {
		t.Fatalf("vote or comment not visible to owner: %q", out)
	}
}

func TestCLI_SearchUsers(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "groupshare.db")
	t.Setenv("GROUPSHARE_STORE_BACKEND", "sqlite")
	t.Setenv("GROUPSHARE_SQLITE_PATH", dbPath)

	run(t, "signup", "--email", "carol@x.com", "--nickname", "carol")

	out := run(t, "--as", "carol@x.com", "search-users", "--term", "car")
	if !strings.Contains(out, "carol@x.com") {
		t.Fatalf("search missed seeded user: %q", out)
	}
}
