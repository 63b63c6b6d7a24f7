package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"sealkit/internal/backup"
	"sealkit/internal/cloud"
	"sealkit/internal/domain"
)

type cli struct {
	t    *testing.T
	home string
}

func (c cli) run(stdin string, args ...string) (string, string, error) {
	c.t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--home", c.home}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func newCLI(t *testing.T, identity, url string) cli {
	t.Helper()
	c := cli{t: t, home: t.TempDir()}
	_, _, err := c.run("", "init", "--identity", identity, "--directory", url, "--token", "secret", "--log-level", "warn")
	require.NoError(t, err)
	return c
}

func newServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(cloud.NewServer(cloud.NewDirectory(nil), backup.NewMemory(), cloud.ServerOptions{Token: "secret"}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCLI_InitRefusesOverwrite(t *testing.T) {
	c := newCLI(t, "alice", newServer(t))
	_, _, err := c.run("", "init", "--identity", "alice")
	require.ErrorContains(t, err, "exists")

	_, _, err = c.run("", "init", "--force", "--identity", "alice", "--directory", "http://127.0.0.1:1")
	require.NoError(t, err)
}

func TestCLI_LifecycleAndBackup(t *testing.T) {
	c := newCLI(t, "alice", newServer(t))

	out, _, err := c.run("", "register")
	require.NoError(t, err)
	require.Contains(t, out, "Registered alice")

	out, _, err = c.run("", "status")
	require.NoError(t, err)
	require.Contains(t, out, "State: "+domain.StateRegistered.String())
	require.Contains(t, out, "Fingerprint:")

	_, _, err = c.run("weak\nweak\n", "backup")
	require.ErrorIs(t, err, ErrWeakPassword)

	const pw = "Correct-Horse-9"
	_, _, err = c.run(pw+"\n"+pw+"x\n", "backup")
	require.ErrorIs(t, err, ErrPasswordMismatch)

	_, _, err = c.run(pw+"\n"+pw+"\n", "backup")
	require.NoError(t, err)

	_, _, err = c.run("", "cleanup")
	require.NoError(t, err)

	out, _, err = c.run("", "status")
	require.NoError(t, err)
	require.Contains(t, out, "State: "+domain.StateKeyLost.String())
	require.NotContains(t, out, "Fingerprint:")

	_, _, err = c.run("wrong\n", "restore")
	require.Error(t, err)

	_, _, err = c.run(pw+"\n", "restore")
	require.NoError(t, err)

	const next = "Battery-Staple-7"
	_, _, err = c.run(pw+"\n"+next+"\n"+next+"\n", "change-password")
	require.NoError(t, err)

	_, _, err = c.run("", "reset-backup", "--all")
	require.NoError(t, err)
	_, _, err = c.run(next+"\n", "restore")
	require.Error(t, err)

	_, _, err = c.run("", "rotate")
	require.ErrorIs(t, err, domain.ErrPrivateKeyAlreadyExists)

	_, _, err = c.run("", "cleanup")
	require.NoError(t, err)
	out, _, err = c.run("", "rotate")
	require.NoError(t, err)
	require.Contains(t, out, "Rotated alice")
}

func TestCLI_EncryptBetweenIdentities(t *testing.T) {
	url := newServer(t)
	alice := newCLI(t, "alice", url)
	bob := newCLI(t, "bob", url)
	_, _, err := alice.run("", "register")
	require.NoError(t, err)
	_, _, err = bob.run("", "register")
	require.NoError(t, err)

	env, _, err := alice.run("", "encrypt", "--to", "bob", "hello bob")
	require.NoError(t, err)

	out, _, err := bob.run(env, "decrypt", "--from", "alice")
	require.NoError(t, err)
	require.Equal(t, "hello bob\n", out)

	_, _, err = bob.run(env, "decrypt")
	require.Error(t, err)

	out, errOut, err := alice.run("", "lookup", "bob", "mallory")
	require.ErrorIs(t, err, domain.ErrLookupAggregate)
	require.Contains(t, out, "bob\t")
	require.Contains(t, errOut, "mallory\t")
}

func TestCLI_EncryptFileWithProgress(t *testing.T) {
	url := newServer(t)
	alice := newCLI(t, "alice", url)
	bob := newCLI(t, "bob", url)
	_, _, err := alice.run("", "register")
	require.NoError(t, err)
	_, _, err = bob.run("", "register")
	require.NoError(t, err)

	dir := t.TempDir()
	plain := bytes.Repeat([]byte("sealkit "), 40_000)
	in := filepath.Join(dir, "report.bin")
	require.NoError(t, os.WriteFile(in, plain, 0o600))

	out, errOut, err := alice.run("", "encrypt-file", "--to", "bob", in)
	require.NoError(t, err)
	require.Contains(t, out, in+sealedExt)
	require.Contains(t, errOut, "signing")
	require.Contains(t, errOut, "encrypting")

	dst := filepath.Join(dir, "report.out")
	_, errOut, err = bob.run("", "decrypt-file", "--from", "alice", "-o", dst, in+sealedExt)
	require.NoError(t, err)
	require.Contains(t, errOut, "decrypting")
	require.Contains(t, errOut, "verifying")

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, plain, got)
}

func TestIsSecurePassword(t *testing.T) {
	require.True(t, isSecurePassword("Correct-Horse-9"))
	require.False(t, isSecurePassword("Short-1a"))
	require.False(t, isSecurePassword("alllowercase-123"))
	require.False(t, isSecurePassword("NoSymbolsHere123"))
}
