package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/stealthping/internal/cipher"
)

// NewEncryptCmd creates the encrypt command.
func NewEncryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <text> <key>",
		Short: "Shift the letters of a text by key positions",
		Long: `Encrypt rotates every ASCII letter of text by key positions, keeping case.
Other characters are left unchanged. Negative keys and keys above 25 wrap
around the alphabet.

Examples:
  stealthping encrypt 'Hello World' 3     # Khoor Zruog
  stealthping encrypt 'Hola Mundo' -- -1  # Gnkz Ltmcn`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := cipher.ParseKey(args[1])
			if err != nil {
				return fmt.Errorf("%q: %w", args[1], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cipher.Encrypt(args[0], key))
			return nil
		},
	}
}

// NewDecryptCmd creates the decrypt command.
func NewDecryptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt <ciphertext>",
		Short: "List the decryption under every key",
		Long: `Decrypt prints the ciphertext rotated back by each of the 26 keys.
Use --key to decrypt with a known key, or "analyze" to let stealthping
pick the most likely plaintext.

Examples:
  stealthping decrypt 'Khoor Zruog'
  stealthping decrypt --key 3 'Khoor Zruog'`,
		Args: cobra.ExactArgs(1),
		RunE: runDecryptCmd,
	}

	cmd.Flags().StringP("key", "k", "", "Decrypt with this key only")

	return cmd
}

func runDecryptCmd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ciphertext := args[0]

	keyFlag, err := cmd.Flags().GetString("key")
	if err != nil {
		return err
	}
	if keyFlag != "" {
		key, err := cipher.ParseKey(keyFlag)
		if err != nil {
			return fmt.Errorf("%q: %w", keyFlag, err)
		}
		fmt.Fprintln(out, cipher.Decrypt(ciphertext, key))
		return nil
	}

	for key := range cipher.AlphabetSize {
		fmt.Fprintf(out, "Shift %2d: %s\n", key, cipher.Decrypt(ciphertext, key))
	}
	return nil
}
