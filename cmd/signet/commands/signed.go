package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"signet/internal/crypto"
	"signet/internal/domain"
)

func signedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signed",
		Short: "Manage signed pre-keys",
	}
	cmd.AddCommand(
		signedGenerateCmd(),
		signedActiveCmd(),
		signedSetActiveCmd(),
		signedCleanCmd(),
	)
	return cmd
}

func signedGenerateCmd() *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a signed pre-key with the identity key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := wire.Identity.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			rec, err := wire.PreKeys.GenerateSignedPreKey(id, active)
			if err != nil {
				return err
			}
			wire.Log.WithFields(logrus.Fields{
				"signed_pre_key_id": rec.ID,
				"active":            active,
			}).Info("Generated signed pre-key")
			printSignedPreKey(cmd.OutOrStdout(), rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "make the new signed pre-key active")
	return cmd
}

func signedActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Print the active signed pre-key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, ok, err := wire.PreKeys.ActiveSignedPreKey()
			if err != nil {
				return err
			}
			if !ok {
				id, err := wire.PreKeys.ActiveSignedPreKeyID()
				if err != nil {
					return err
				}
				if id == domain.NoActiveSignedPreKey {
					return errors.New("no signed pre-key is active")
				}
				return fmt.Errorf("no signed pre-key stored under active id %d", id)
			}
			printSignedPreKey(cmd.OutOrStdout(), rec)
			return nil
		},
	}
}

func signedSetActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-active [id]",
		Short: "Record which signed pre-key is active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseID(args[0])
			if err != nil {
				return err
			}
			id := domain.SignedPreKeyID(v)

			if _, err := wire.PreKeys.LoadSignedPreKey(id); errors.Is(err, domain.ErrInvalidKeyID) {
				wire.Log.WithField("signed_pre_key_id", id).Warn("Activating an id with no stored signed pre-key")
			} else if err != nil {
				return err
			}
			if err := wire.PreKeys.SetActiveSignedPreKeyID(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active signed pre-key: %d\n", id)
			return nil
		},
	}
}

func signedCleanCmd() *cobra.Command {
	var archiveAge time.Duration
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove archived signed pre-keys older than the archive age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if archiveAge <= 0 {
				archiveAge = wire.Config.Rotation.ArchiveAge
			}
			removed, err := wire.PreKeys.CleanSignedPreKeys(archiveAge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d signed pre-key(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&archiveAge, "archive-age", 0, "minimum age of removed records (default from config)")
	return cmd
}

func printSignedPreKey(w io.Writer, rec domain.SignedPreKeyRecord) {
	fmt.Fprintf(w, "ID: %d\nCreated: %s\nPublic: %s\nSignature: %s\n",
		rec.ID,
		time.UnixMilli(rec.Timestamp).UTC().Format(time.RFC3339),
		crypto.B64(rec.KeyPair.Public.Serialize()),
		crypto.B64(rec.Signature),
	)
}
