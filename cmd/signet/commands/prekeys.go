package commands

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"signet/internal/crypto"
	"signet/internal/domain"
)

type preKeyBatch struct {
	Start   domain.PreKeyID              `json:"start"`
	Next    domain.PreKeyID              `json:"next"`
	PreKeys []domain.OneTimePreKeyPublic `json:"pre_keys"`
}

func prekeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prekeys",
		Short: "Manage one-time pre-keys",
	}
	cmd.AddCommand(prekeysGenerateCmd(), prekeysShowCmd(), prekeysRemoveCmd())
	return cmd
}

func prekeysGenerateCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a batch of one-time pre-keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				count = wire.Config.PreKeys.BatchSize
			}

			records, err := wire.PreKeys.GeneratePreKeys(count)
			if err != nil {
				return err
			}
			next, err := wire.PreKeys.NextPreKeyID()
			if err != nil {
				return err
			}

			out := preKeyBatch{Start: records[0].ID, Next: next}
			out.PreKeys = make([]domain.OneTimePreKeyPublic, 0, len(records))
			for _, rec := range records {
				out.PreKeys = append(out.PreKeys, rec.Public())
			}
			wire.Log.WithFields(logrus.Fields{
				"count":    len(records),
				"start_id": out.Start,
				"next_id":  out.Next,
			}).Info("Generated one-time pre-keys")
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of pre-keys (default from config)")
	return cmd
}

func prekeysShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print the public half of a stored one-time pre-key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, err := wire.PreKeys.LoadPreKey(domain.PreKeyID(id))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ID: %d\nPublic: %s\n", rec.ID, crypto.B64(rec.KeyPair.Public.Serialize()))
			return nil
		},
	}
}

func prekeysRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [id]",
		Short: "Delete a consumed one-time pre-key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := wire.PreKeys.RemovePreKey(domain.PreKeyID(id)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed pre-key %d\n", id)
			return nil
		},
	}
}

// parseID parses a pre-key id, which must lie below domain.MediumMaxValue.
func parseID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	if v >= domain.MediumMaxValue {
		return 0, fmt.Errorf("invalid id %d: must be below %d", v, domain.MediumMaxValue)
	}
	return uint32(v), nil
}
