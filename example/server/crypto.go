package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/zitadel/ciba/pkg/crypto"
)

// encryptCommand prints the notification server key encrypted with the
// encryption key, ready for the serverKey of the configuration file.
var encryptCommand = &cli.Command{
	Name:      "encrypt",
	Usage:     "encrypt the push notification server key",
	ArgsUsage: "<server key>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "key",
			Usage:    "AES key of 16, 24 or 32 bytes",
			EnvVars:  []string{"CIBA_ENCRYPTION_KEY"},
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.Exit("exactly one server key expected", 1)
		}
		encrypted, err := encryptServerKey(c.Args().First(), c.String("key"))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, encrypted)
		return err
	},
}

func encryptServerKey(serverKey, key string) (string, error) {
	encrypted, err := crypto.EncryptAES(serverKey, key)
	if err != nil {
		return "", fmt.Errorf("encrypt server key: %w", err)
	}
	return encrypted, nil
}
