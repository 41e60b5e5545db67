package main

import (
	"github.com/spf13/cobra"

	"breachwatch/internal/password"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate passkeys, passphrases, PINs and backup codes",
}

var (
	passkeyLength int
	passkeyOpts   = password.DefaultOptions()
	noUpper       bool
	noLower       bool
	noNumbers     bool
	noSymbols     bool
	allowSimilar  bool
	phraseWords   int
	phraseSep     string
	pinLength     int
	backupCount   int
)

var generatePasskeyCmd = &cobra.Command{
	Use:   "passkey",
	Short: "Generate a random passkey",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := passkeyOpts
		opts.Uppercase = !noUpper
		opts.Lowercase = !noLower
		opts.Numbers = !noNumbers
		opts.Symbols = !noSymbols
		opts.ExcludeSimilar = !allowSimilar
		pk, err := password.NewGenerator().Passkey(passkeyLength, opts)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), pk)
	},
}

var generatePassphraseCmd = &cobra.Command{
	Use:   "passphrase",
	Short: "Generate a memorable passphrase",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := password.NewGenerator().Passphrase(phraseWords, phraseSep)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), pp)
	},
}

var generatePINCmd = &cobra.Command{
	Use:   "pin",
	Short: "Generate a numeric PIN",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pin, err := password.NewGenerator().PIN(pinLength)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), pin)
	},
}

var generateBackupCodesCmd = &cobra.Command{
	Use:   "backup-codes",
	Short: "Generate one-time backup codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		codes, err := password.NewGenerator().BackupCodes(backupCount)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), codes)
	},
}

func init() {
	f := generatePasskeyCmd.Flags()
	f.IntVarP(&passkeyLength, "length", "l", 32, "passkey length")
	f.BoolVar(&noUpper, "no-upper", false, "exclude uppercase letters")
	f.BoolVar(&noLower, "no-lower", false, "exclude lowercase letters")
	f.BoolVar(&noNumbers, "no-numbers", false, "exclude digits")
	f.BoolVar(&noSymbols, "no-symbols", false, "exclude symbols")
	f.BoolVar(&allowSimilar, "allow-similar", false, "allow look-alike characters such as l, 1 and O")
	f.BoolVar(&passkeyOpts.ExcludeAmbiguous, "exclude-ambiguous", false, "exclude brackets, quotes and punctuation")

	generatePassphraseCmd.Flags().IntVarP(&phraseWords, "words", "w", 4, "number of words")
	generatePassphraseCmd.Flags().StringVarP(&phraseSep, "separator", "s", "-", "word separator")
	generatePINCmd.Flags().IntVarP(&pinLength, "length", "l", 6, "PIN length")
	generateBackupCodesCmd.Flags().IntVarP(&backupCount, "count", "n", 10, "number of codes")

	generateCmd.AddCommand(generatePasskeyCmd, generatePassphraseCmd, generatePINCmd, generateBackupCodesCmd)
	rootCmd.AddCommand(generateCmd)
}
