package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/klabast/wb-services/waste-sensor/internal/app"
)

func newHashPasswordCmd() *cobra.Command {
	var (
		overwrite      bool
		insecureUnmask bool
		authFile       string
	)

	c := &cobra.Command{
		Use:   "hash-password",
		Short: "Create an auth secret file with an Argon2id password hash",
		Long: "Creates an auth secret file protecting the HTTP API with Basic Auth.\n\n" +
			"Environment Variables:\n  AUTH_FILE    Path to auth file (default: ./" + app.DefaultAuthFile + ")",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if authFile == "" {
				authFile = os.Getenv("AUTH_FILE")
			}
			if authFile == "" {
				authFile = app.DefaultAuthFile
			}

			stdin := bufio.NewReader(os.Stdin)
			out := cmd.OutOrStdout()

			fmt.Fprint(out, "Enter username: ")
			username, err := stdin.ReadString('\n')
			if err != nil {
				return fmt.Errorf("error reading username: %w", err)
			}
			username = strings.TrimSpace(username)
			if username == "" {
				return fmt.Errorf("username cannot be empty")
			}

			var password, confirm string
			if insecureUnmask {
				fmt.Fprintln(cmd.ErrOrStderr(), "WARNING: Password will be visible on screen!")
				if password, err = prompt(out, stdin, "Enter password:   "); err != nil {
					return err
				}
				if confirm, err = prompt(out, stdin, "Confirm password: "); err != nil {
					return err
				}
			} else {
				if password, err = readPassword(out, "Enter password:   "); err != nil {
					return err
				}
				if confirm, err = readPassword(out, "Confirm password: "); err != nil {
					return err
				}
			}

			if password == "" {
				return fmt.Errorf("password cannot be empty")
			}
			if password != confirm {
				return fmt.Errorf("passwords do not match")
			}

			return app.CreateAuthFile(authFile, username, password, overwrite, stdin, out)
		},
	}

	c.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite existing auth file without asking")
	c.Flags().BoolVar(&insecureUnmask, "insecure-unmask-password", false, "show password as plain text (INSECURE!)")
	c.Flags().StringVar(&authFile, "auth-file", "", "path to auth file (default $AUTH_FILE or ./"+app.DefaultAuthFile+")")
	return c
}

func prompt(out io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword reads a password without echo
func readPassword(out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal (use --insecure-unmask-password for piped input)")
	}
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	return string(password), nil
}
