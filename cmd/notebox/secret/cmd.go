package secret

import (
	"crypto/rand"
	"fmt"

	"github.com/andrebq/notebox/session"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: fmt.Sprintf("Print a random value suitable for %v", session.SecretEnvVar),
		Action: func(ctx *cli.Context) error {
			s, err := session.NewSecret(rand.Reader)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(ctx.App.Writer, s)
			return err
		},
	}
}
