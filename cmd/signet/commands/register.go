package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"signet/internal/domain"
)

func registerCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "register [username]",
		Short: "Build and cache the public pre-key bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := domain.Username(args[0])

			id, err := wire.Identity.LoadIdentity(passphrase)
			if err != nil {
				return err
			}

			// A signed pre-key is only generated when none is active yet.
			if _, ok, err := wire.PreKeys.ActiveSignedPreKey(); err != nil {
				return err
			} else if !ok {
				if _, err := wire.PreKeys.GenerateSignedPreKey(id, true); err != nil {
					return err
				}
			}

			if count <= 0 {
				count = wire.Config.PreKeys.BatchSize
			}
			// The one-time pre-keys are kept only once the bundle that
			// publishes them has been built.
			res, err := wire.PreKeys.ReservePreKeys(count)
			if err != nil {
				return err
			}
			bundle, err := wire.PreKeys.Bundle(id, username, res.Records)
			if err != nil {
				return err
			}
			if err := wire.PreKeys.StorePreKeyRecords(res.Records); err != nil {
				return err
			}

			wire.Log.WithFields(logrus.Fields{
				"username":          username,
				"signed_pre_key_id": bundle.SignedPreKeyID,
				"start_id":          res.Start,
				"next_id":           res.Next,
			}).Info("Cached pre-key bundle")
			return printJSON(cmd.OutOrStdout(), bundle)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "one-time pre-keys to include (default from config)")
	return cmd
}
