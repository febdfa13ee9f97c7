// Package cli implements the musigd operator/demo CLI middleware, following
// the synnergy-network cmd/cli convention of one file per subsystem
// registered onto a shared root command.
package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"musigd/internal/musig2"
	"musigd/internal/protocol"
)

// RegisterMusig attaches the `musig` command tree to root. musig has no
// persistent ledger to open: the coordinator's state is process-memory only
// (spec.md §6.4), so every invocation here operates on a fresh in-process
// protocol.Store.
func RegisterMusig(root *cobra.Command) {
	musigCmd := &cobra.Command{
		Use:   "musig",
		Short: "Drive a two-party MuSig2 trade signing session",
	}
	musigCmd.AddCommand(musigDemoCmd())
	root.AddCommand(musigCmd)
}

func musigDemoCmd() *cobra.Command {
	var tradeID string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk both peers of a simulated trade through every round",
		Long: "demo plays both the buyer and the seller side of one trade in a single " +
			"process, driving the full round sequence (R0-R9) against two independent " +
			"TradeModels and printing the public key shares and the outcome. It exists " +
			"for manual protocol walkthroughs without standing up the gRPC server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tradeID == "" {
				tradeID = uuid.New().String()
			}
			return runMusigDemo(cmd, tradeID)
		},
	}
	cmd.Flags().StringVar(&tradeID, "trade-id", "", "trade id to use (default: a fresh UUID)")
	return cmd
}

func runMusigDemo(cmd *cobra.Command, tradeID string) error {
	out := cmd.OutOrStdout()
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true})

	store := protocol.NewStore()
	buyer := protocol.NewTradeModel(tradeID, protocol.BuyerAsMaker,
		musig2.RandomKeyProvider{}, musig2.RandomNonceSeedProvider{})
	seller := protocol.NewTradeModel(tradeID, protocol.SellerAsTaker,
		musig2.RandomKeyProvider{}, musig2.RandomNonceSeedProvider{})
	if err := store.Add(buyer); err != nil {
		return fmt.Errorf("register buyer side: %w", err)
	}

	fmt.Fprintf(out, "trade %s: buyer=%s seller=%s\n", tradeID, buyer.MyRole, seller.MyRole)

	log.Info("R0: generating key shares")
	if err := buyer.InitMyKeyShares(); err != nil {
		return fmt.Errorf("buyer init_my_key_shares: %w", err)
	}
	if err := seller.InitMyKeyShares(); err != nil {
		return fmt.Errorf("seller init_my_key_shares: %w", err)
	}

	buyerBuyerPub, buyerSellerPub, _ := buyer.GetMyKeyShares()
	sellerBuyerPub, sellerSellerPub, _ := seller.GetMyKeyShares()
	fmt.Fprintf(out, "  buyer output pub key:  %x\n", buyerBuyerPub.SerializeCompressed())
	fmt.Fprintf(out, "  seller output pub key: %x\n", sellerSellerPub.SerializeCompressed())

	log.Info("R1: exchanging and aggregating key shares")
	buyer.SetPeerKeyShares(sellerBuyerPub, sellerSellerPub)
	seller.SetPeerKeyShares(buyerBuyerPub, buyerSellerPub)
	if err := buyer.AggregateKeyShares(); err != nil {
		return fmt.Errorf("buyer aggregate_key_shares: %w", err)
	}
	if err := seller.AggregateKeyShares(); err != nil {
		return fmt.Errorf("seller aggregate_key_shares: %w", err)
	}

	log.Info("R2: generating nonce shares")
	if err := buyer.InitMyNonceShares(); err != nil {
		return fmt.Errorf("buyer init_my_nonce_shares: %w", err)
	}
	if err := seller.InitMyNonceShares(); err != nil {
		return fmt.Errorf("seller init_my_nonce_shares: %w", err)
	}
	buyerNonces, _ := buyer.GetMyNonceShares()
	sellerNonces, _ := seller.GetMyNonceShares()

	log.Info("R3: exchanging and aggregating nonce shares")
	buyer.SetPeerNonceShares(sellerNonces)
	seller.SetPeerNonceShares(buyerNonces)
	if err := buyer.AggregateNonceShares(); err != nil {
		return fmt.Errorf("buyer aggregate_nonce_shares: %w", err)
	}
	if err := seller.AggregateNonceShares(); err != nil {
		return fmt.Errorf("seller aggregate_nonce_shares: %w", err)
	}

	log.Info("R4: producing partial signatures on all seven inputs")
	if err := buyer.SignPartial(); err != nil {
		return fmt.Errorf("buyer sign_partial: %w", err)
	}
	if err := seller.SignPartial(); err != nil {
		return fmt.Errorf("seller sign_partial: %w", err)
	}

	buyer.ArmPaymentStarted()
	buyerSigs, _ := buyer.GetMyPartialSignaturesOnPeerTxs()
	sellerSigs, _ := seller.GetMyPartialSignaturesOnPeerTxs()

	log.Info("R5-R6: exchanging and aggregating partial signatures")
	seller.SetPeerPartialSignaturesOnMyTxs(protocol.ExchangedSigsIn{
		PeersWarningTxBuyerInputPartialSignature:  *buyerSigs.PeersWarningTxBuyerInputPartialSignature,
		PeersWarningTxSellerInputPartialSignature: *buyerSigs.PeersWarningTxSellerInputPartialSignature,
		PeersRedirectTxInputPartialSignature:      *buyerSigs.PeersRedirectTxInputPartialSignature,
		SwapTxInputPartialSignature:               buyerSigs.SwapTxInputPartialSignature,
	})
	buyer.SetPeerPartialSignaturesOnMyTxs(protocol.ExchangedSigsIn{
		PeersWarningTxBuyerInputPartialSignature:  *sellerSigs.PeersWarningTxBuyerInputPartialSignature,
		PeersWarningTxSellerInputPartialSignature: *sellerSigs.PeersWarningTxSellerInputPartialSignature,
		PeersRedirectTxInputPartialSignature:      *sellerSigs.PeersRedirectTxInputPartialSignature,
		SwapTxInputPartialSignature:               sellerSigs.SwapTxInputPartialSignature,
	})
	if err := buyer.AggregatePartialSignatures(); err != nil {
		return fmt.Errorf("buyer aggregate_partial_signatures: %w", err)
	}
	if err := seller.AggregatePartialSignatures(); err != nil {
		return fmt.Errorf("seller aggregate_partial_signatures: %w", err)
	}
	fmt.Fprintln(out, "  deposit inputs fully signed; deposit tx ready to publish")

	log.Info("R8: aggregating the swap tx signature")
	if err := seller.AggregateSwapTxPartialSignatures(); err != nil {
		return fmt.Errorf("seller aggregate_swap_tx_partial_signatures: %w", err)
	}

	log.Info("R9: confirming payment and closing the trade")
	buyer.ArmPaymentConfirmed()
	seller.ArmPaymentConfirmed()
	buyerShareForSeller, err := buyer.GetMyPrivateKeyShareForPeerOutput()
	if err != nil {
		return fmt.Errorf("buyer get_my_private_key_share_for_peer_output: %w", err)
	}
	sellerShareForBuyer, err := seller.GetMyPrivateKeyShareForPeerOutput()
	if err != nil {
		return fmt.Errorf("seller get_my_private_key_share_for_peer_output: %w", err)
	}
	if err := seller.SetPeerPrivateKeyShareForMyOutput(buyerShareForSeller); err != nil {
		return fmt.Errorf("seller set_peer_private_key_share_for_my_output: %w", err)
	}
	if err := buyer.SetPeerPrivateKeyShareForMyOutput(sellerShareForBuyer); err != nil {
		return fmt.Errorf("buyer set_peer_private_key_share_for_my_output: %w", err)
	}
	buyerOwnKey, err := buyer.AggregatePrivateKeysForMyOutput()
	if err != nil {
		return fmt.Errorf("buyer aggregate_private_keys_for_my_output: %w", err)
	}
	sellerOwnKey, err := seller.AggregatePrivateKeysForMyOutput()
	if err != nil {
		return fmt.Errorf("seller aggregate_private_keys_for_my_output: %w", err)
	}
	fmt.Fprintf(out, "  buyer now unilaterally controls the buyer output (priv key %x...)\n", buyerOwnKey.Bytes()[:4])
	fmt.Fprintf(out, "  seller now unilaterally controls the seller output (priv key %x...)\n", sellerOwnKey.Bytes()[:4])
	store.Remove(tradeID)
	return nil
}
