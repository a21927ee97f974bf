package prompt

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func pipeWith(t *testing.T, input string) *os.File {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	_, err = w.WriteString(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return r
}

func TestTerminalCredentials(t *testing.T) {
	out := &bytes.Buffer{}
	term := Terminal{In: pipeWith(t, "someone@example.com\r\nsecret pass\n"), Out: out}

	creds, err := term.Credentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, Credentials{Email: "someone@example.com", Password: "secret pass"}, creds)
	require.Equal(t, "E-mail: Password: ", out.String())
}

func TestTerminalCredentialsNoTrailingNewline(t *testing.T) {
	term := Terminal{In: pipeWith(t, "someone@example.com\nsecret"), Out: &bytes.Buffer{}}

	creds, err := term.Credentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, "secret", creds.Password)
}

func TestTerminalCredentialsClosedInput(t *testing.T) {
	term := Terminal{In: pipeWith(t, ""), Out: &bytes.Buffer{}}

	_, err := term.Credentials(context.Background())
	require.Error(t, err)
}

func TestTerminalCredentialsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	term := Terminal{In: pipeWith(t, "someone@example.com\nsecret\n"), Out: &bytes.Buffer{}}
	_, err := term.Credentials(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
