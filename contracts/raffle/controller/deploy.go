package controller

import (
	"context"
	"encoding/hex"
	"strconv"

	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/contracts/raffle"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger"
	ledgerctrl "go.dedis.ch/lottery/core/ledger/controller"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/randomness/vrf"
	"golang.org/x/xerrors"
)

// Deployed returns true when the raffle already exists in the ledger.
func Deployed(l *ledger.Ledger, contract raffle.Contract) (bool, error) {
	deployed := false

	err := l.View(func(r store.Readable) error {
		_, err := contract.GetRound(r)
		if xerrors.Is(err, raffle.ErrNotDeployed) {
			return nil
		}

		if err != nil {
			return err
		}

		deployed = true

		return nil
	})
	if err != nil {
		return false, xerrors.Errorf("failed to read round: %v", err)
	}

	return deployed, nil
}

// Bootstrap deploys the raffle with the preset. A subscription is created and
// funded when the preset does not name one, then the raffle is added as a
// consumer before being deployed.
func Bootstrap(ctx context.Context, l *ledger.Ledger, mgr txn.Manager,
	contract raffle.Contract, network Network) (raffle.Config, error) {

	logger := lottery.Logger.With().Str("contract", "raffle").Logger()

	subID := network.SubscriptionID

	if subID == 0 {
		receipt, err := ledgerctrl.Submit(ctx, l, mgr,
			txn.Arg{Key: native.ContractArg, Value: []byte(vrf.ContractName)},
			txn.Arg{Key: vrf.CmdArg, Value: []byte(vrf.CmdCreateSubscription)},
		)
		if err != nil {
			return raffle.Config{}, xerrors.Errorf("failed to create subscription: %v", err)
		}

		subID, err = subscriptionOf(receipt)
		if err != nil {
			return raffle.Config{}, err
		}

		logger.Info().Uint64("subscription", subID).Msg("subscription created")
	}

	cfg, err := network.Config(subID)
	if err != nil {
		return cfg, err
	}

	if network.FundAmount > 0 {
		_, err = ledgerctrl.Submit(ctx, l, mgr,
			txn.Arg{Key: native.ContractArg, Value: []byte(vrf.ContractName)},
			txn.Arg{Key: vrf.CmdArg, Value: []byte(vrf.CmdFundSubscription)},
			txn.Arg{Key: vrf.SubscriptionArg, Value: []byte(formatUint(subID))},
			txn.Arg{Key: vrf.AmountArg, Value: []byte(formatUint(network.FundAmount))},
		)
		if err != nil {
			return cfg, xerrors.Errorf("failed to fund subscription: %v", err)
		}
	}

	_, err = ledgerctrl.Submit(ctx, l, mgr,
		txn.Arg{Key: native.ContractArg, Value: []byte(vrf.ContractName)},
		txn.Arg{Key: vrf.CmdArg, Value: []byte(vrf.CmdAddConsumer)},
		txn.Arg{Key: vrf.SubscriptionArg, Value: []byte(formatUint(subID))},
		txn.Arg{Key: vrf.ConsumerArg, Value: []byte(contract.Address())},
	)
	if err != nil {
		return cfg, xerrors.Errorf("failed to add consumer: %v", err)
	}

	_, err = ledgerctrl.Submit(ctx, l, mgr, DeployArgs(cfg)...)
	if err != nil {
		return cfg, xerrors.Errorf("failed to deploy: %v", err)
	}

	return cfg, nil
}

// DeployArgs returns the arguments of the transaction that deploys the raffle
// with the configuration.
func DeployArgs(cfg raffle.Config) []txn.Arg {
	return []txn.Arg{
		{Key: native.ContractArg, Value: []byte(raffle.ContractName)},
		{Key: raffle.CmdArg, Value: []byte(raffle.CmdDeploy)},
		{Key: raffle.EntranceFeeArg, Value: []byte(formatUint(cfg.EntranceFee))},
		{Key: raffle.IntervalArg, Value: []byte(cfg.Interval.String())},
		{Key: raffle.KeyHashArg, Value: []byte(hex.EncodeToString(cfg.KeyHash))},
		{Key: raffle.SubscriptionArg, Value: []byte(formatUint(cfg.SubscriptionID))},
		{Key: raffle.ConfirmationsArg, Value: []byte(formatUint(uint64(cfg.RequestConfirmations)))},
		{Key: raffle.GasLimitArg, Value: []byte(formatUint(uint64(cfg.CallbackGasLimit)))},
	}
}

func subscriptionOf(receipt ledger.Receipt) (uint64, error) {
	for _, evt := range receipt.Events {
		if evt.Contract == vrf.ContractName && evt.Name == vrf.EventSubscriptionCreated {
			id, err := strconv.ParseUint(evt.Attributes["subId"], 10, 64)
			if err != nil {
				return 0, xerrors.Errorf("invalid subscription id: %v", err)
			}

			return id, nil
		}
	}

	return 0, xerrors.New("subscription event not found")
}

func formatUint(value uint64) string {
	return strconv.FormatUint(value, 10)
}
