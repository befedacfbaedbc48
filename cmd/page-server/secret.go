package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const secretBytes = 32

func secretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secret",
		Short: "Generate a random SESSION_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key := securecookie.GenerateRandomKey(secretBytes)
			if key == nil {
				return errors.New("failed to read random bytes")
			}
			writeSecret(cmd.OutOrStdout(), base64.RawURLEncoding.EncodeToString(key))
			return nil
		},
	}
}

// writeSecret prints a .env line with a hint on terminals and the bare value
// otherwise, so the output can be captured by scripts.
func writeSecret(out io.Writer, secret string) {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(out, "SESSION_SECRET=%s\n\n", secret)
		fmt.Fprintln(out, "Add this line to .env or the server environment.")
		return
	}
	fmt.Fprintln(out, secret)
}
