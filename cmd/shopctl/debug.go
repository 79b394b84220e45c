package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/auth"
	"storefront/internal/gateway"
)

func signCmd() *cobra.Command {
	var total, transactionID, productCode string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a payment request the way initiation does",
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := gateway.NewSigner(os.Getenv("ESEWA_SECRET_KEY"))
			if err != nil {
				return err
			}

			amount, err := gateway.ParseAmount(total)
			if err != nil {
				return err
			}
			canonical := gateway.FormatAmount(amount)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "message:   %s\n", gateway.Message(gateway.PaymentFields(canonical, transactionID, productCode)...))
			fmt.Fprintf(out, "signature: %s\n", signer.SignPayment(canonical, transactionID, productCode))
			return nil
		},
	}

	cmd.Flags().StringVar(&total, "total", "", "Total amount")
	cmd.Flags().StringVar(&transactionID, "tx", "", "Transaction id")
	cmd.Flags().StringVar(&productCode, "product-code", "EPAYTEST", "Merchant product code")
	_ = cmd.MarkFlagRequired("total")
	_ = cmd.MarkFlagRequired("tx")

	return cmd
}

func decodeCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "decode [data]",
		Short: "Decode a gateway callback payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cb, err := gateway.DecodeCallback(args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(cb.Values()); err != nil {
				return err
			}

			if !verify {
				return nil
			}
			signer, err := gateway.NewSigner(os.Getenv("ESEWA_SECRET_KEY"))
			if err != nil {
				return err
			}
			if err := signer.VerifyCallback(cb); err != nil {
				return fmt.Errorf("signature check failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signature: valid")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Verify the signature with ESEWA_SECRET_KEY")

	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			verifier, err := auth.NewVerifier(os.Getenv("JWT_SECRET"))
			if err != nil {
				return err
			}

			token, err := verifier.Issue(userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	cmd.Flags().StringVarP(&role, "role", "r", "user", "Role (user or admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}
