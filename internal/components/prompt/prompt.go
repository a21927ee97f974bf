package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type Credentials struct {
	Email    string
	Password string
}

// Prompter asks the user for their credentials.
//
// note: fault injection point
type Prompter interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// Terminal prompts on an interactive terminal, the password is read without echo when
// In is a terminal.
type Terminal struct {
	In  *os.File
	Out io.Writer
}

func NewTerminal() Terminal {
	return Terminal{In: os.Stdin, Out: os.Stdout}
}

func (t Terminal) Credentials(ctx context.Context) (Credentials, error) {
	reader := bufio.NewReader(t.In)

	fmt.Fprint(t.Out, "E-mail: ")
	email, err := readLine(reader)
	if err != nil {
		return Credentials{}, fmt.Errorf("read email: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}

	fmt.Fprint(t.Out, "Password: ")
	var password string
	fd := int(t.In.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(t.Out)
		if err != nil {
			return Credentials{}, fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	} else {
		password, err = readLine(reader)
		if err != nil {
			return Credentials{}, fmt.Errorf("read password: %w", err)
		}
	}

	return Credentials{Email: email, Password: password}, nil
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
