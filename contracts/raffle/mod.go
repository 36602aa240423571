// Package raffle implements the native contract of a repeatable lottery.
//
// Participants enter the current round by paying at least the entrance fee.
// Once the interval has elapsed and the round has entries, anybody can trigger
// the upkeep that closes the round and asks the randomness coordinator for a
// random word. The coordinator later calls the raffle back with the word, the
// winner is paid the whole balance and a new round starts.
//
// The round moves through OPEN -> CALCULATING -> OPEN and never terminates. A
// payout that the winner refuses leaves the round in CALCULATING with the
// funds kept by the raffle.
package raffle

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/contracts/raffle/types"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/execution"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/store/prefixed"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/randomness/vrf"
	"go.dedis.ch/lottery/serde"
	"go.dedis.ch/lottery/serde/json"
	"golang.org/x/xerrors"
)

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/lottery.Raffle"

	// ContractUID is the unique (4-bytes) identifier of the contract, it is
	// used to prefix keys in the store.
	ContractUID = "RAFL"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "raffle:command"

	// AmountArg is the argument's name in the transaction that contains the
	// amount paid to enter.
	AmountArg = "raffle:amount"

	// EntranceFeeArg is the argument's name of the entrance fee at
	// deployment.
	EntranceFeeArg = "raffle:entranceFee"

	// IntervalArg is the argument's name of the round duration at deployment,
	// for instance "30s".
	IntervalArg = "raffle:interval"

	// KeyHashArg is the argument's name of the hex-encoded key hash at
	// deployment.
	KeyHashArg = "raffle:keyHash"

	// SubscriptionArg is the argument's name of the coordinator subscription
	// at deployment.
	SubscriptionArg = "raffle:subscription"

	// ConfirmationsArg is the argument's name of the request confirmations at
	// deployment.
	ConfirmationsArg = "raffle:confirmations"

	// GasLimitArg is the argument's name of the callback gas limit at
	// deployment.
	GasLimitArg = "raffle:gasLimit"

	roundKey = "round"
)

// Events emitted by the raffle.
const (
	EventEntered         = "Entered"
	EventUpkeepRequested = "UpkeepRequested"
	EventWinnerPicked    = "WinnerPicked"
)

// Command defines a type of command for the raffle contract.
type Command string

const (
	// CmdDeploy defines the command to create the raffle with its
	// configuration. It can only run once.
	CmdDeploy Command = "DEPLOY"

	// CmdEnter defines the command to enter the current round with the signer
	// as the participant.
	CmdEnter Command = "ENTER"

	// CmdPerformUpkeep defines the command to close the current round and
	// request the random word.
	CmdPerformUpkeep Command = "PERFORM_UPKEEP"
)

// State is the state of the round.
type State = types.State

const (
	// StateOpen is the state of a round accepting entries.
	StateOpen = types.StateOpen

	// StateCalculating is the state of a round waiting for its random word.
	StateCalculating = types.StateCalculating
)

var (
	// ErrInsufficientPayment is returned when an entry pays less than the
	// entrance fee.
	ErrInsufficientPayment = xerrors.New("insufficient payment")

	// ErrRoundNotOpen is returned when entering a round that is not open.
	ErrRoundNotOpen = xerrors.New("round not open")

	// ErrUpkeepNotNeeded is returned when the upkeep is triggered while the
	// round cannot be closed.
	ErrUpkeepNotNeeded = xerrors.New("upkeep not needed")

	// ErrUnrecognizedRequest is returned when a fulfillment does not match the
	// pending request.
	ErrUnrecognizedRequest = xerrors.New("unrecognized request")

	// ErrTransferFailed is returned when the winner cannot receive the prize.
	ErrTransferFailed = xerrors.New("transfer failed")

	// ErrNotDeployed is returned when the raffle is used before its
	// deployment.
	ErrNotDeployed = xerrors.New("raffle not deployed")

	// ErrAlreadyDeployed is returned when the raffle is deployed twice.
	ErrAlreadyDeployed = xerrors.New("raffle already deployed")
)

var promEntries = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "lottery_raffle_entries_total",
	Help: "total number of entries",
})

var promRounds = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "lottery_raffle_rounds_total",
	Help: "total number of rounds paid out",
})

var promBalance = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "lottery_raffle_balance",
	Help: "balance held for the current round",
})

var promPlayers = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "lottery_raffle_players",
	Help: "number of entries in the current round",
})

func init() {
	lottery.PromCollectors = append(lottery.PromCollectors,
		promEntries, promRounds, promBalance, promPlayers)
}

// Config is the configuration of the raffle set at deployment.
type Config struct {
	EntranceFee          uint64
	Interval             time.Duration
	KeyHash              []byte
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
}

// Validate returns an error if the configuration cannot be deployed.
func (c Config) Validate() error {
	if c.EntranceFee == 0 {
		return xerrors.New("entrance fee must be positive")
	}

	if c.Interval < time.Second {
		return xerrors.Errorf("interval %v is shorter than a second", c.Interval)
	}

	// The round keeps the interval in seconds.
	if c.Interval%time.Second != 0 {
		return xerrors.Errorf("interval %v is not a whole number of seconds", c.Interval)
	}

	if c.NumWords < 1 {
		return xerrors.New("at least one random word is required")
	}

	return nil
}

// Coordinator is the interface of the randomness provider.
type Coordinator interface {
	RequestRandomWords(snap store.Snapshot, step execution.Step, cfg vrf.RequestConfig) (uint64, error)
}

// Bank is the interface of the funds custody.
type Bank interface {
	bank.Reader

	Transfer(snap store.Snapshot, step execution.Step, from, to bank.Address, amount uint64) error
}

// Reader provides the read-only queries of the raffle.
type Reader interface {
	EntranceFee(r store.Readable) (uint64, error)
	Interval(r store.Readable) (time.Duration, error)
	State(r store.Readable) (State, error)
	Player(r store.Readable, index int) (bank.Address, error)
	NumPlayers(r store.Readable) (int, error)
	RecentWinner(r store.Readable) (bank.Address, error)
	LastTimestamp(r store.Readable) (time.Time, error)
	Balance(r store.Readable) (uint64, error)
	RequestConfirmations(r store.Readable) (uint16, error)
	PendingRequest(r store.Readable) (uint64, error)
}

// commands defines the commands of the raffle contract. This interface helps
// in testing the contract.
type commands interface {
	deploy(snap store.Snapshot, step execution.Step) error
	enter(snap store.Snapshot, step execution.Step) error
	performUpkeep(snap store.Snapshot, step execution.Step) error
}

// RegisterContract registers the raffle to the given execution service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the native contract of the raffle.
//
// - implements native.Contract
// - implements vrf.Consumer
// - implements raffle.Reader
// - implements keeper.Upkeep
type Contract struct {
	bank        Bank
	coordinator Coordinator
	context     serde.Context
	factory     types.RoundFactory
	cmd         commands
}

// NewContract creates a new raffle that holds its funds in the bank and
// requests its randomness to the coordinator.
func NewContract(b Bank, coord Coordinator) Contract {
	contract := Contract{
		bank:        b,
		coordinator: coord,
		context:     json.NewContext(),
		factory:     types.NewRoundFactory(),
	}

	contract.cmd = raffleCommand{Contract: &contract}

	return contract
}

// Address returns the address of the account of the raffle, which holds the
// fees of the current round.
func (c Contract) Address() bank.Address {
	return bank.ContractAddress(ContractName)
}

// UID implements native.Contract. It returns the unique 4-bytes contract
// identifier.
func (c Contract) UID() string {
	return ContractUID
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	var err error

	switch Command(cmd) {
	case CmdDeploy:
		err = c.cmd.deploy(snap, step)
	case CmdEnter:
		err = c.cmd.enter(snap, step)
	case CmdPerformUpkeep:
		err = c.cmd.performUpkeep(snap, step)
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		return xerrors.Errorf("failed to %s: %w", cmd, err)
	}

	return nil
}

// Deploy creates the raffle with an open round starting at the time of the
// step.
func (c Contract) Deploy(snap store.Snapshot, step execution.Step, cfg Config) error {
	err := cfg.Validate()
	if err != nil {
		return xerrors.Errorf("invalid config: %v", err)
	}

	_, err = c.GetRound(snap)
	if err == nil {
		return ErrAlreadyDeployed
	}

	if !xerrors.Is(err, ErrNotDeployed) {
		return err
	}

	round := types.NewRound(types.RoundParams{
		EntranceFee:          cfg.EntranceFee,
		Interval:             cfg.Interval,
		LastTimestamp:        step.Timestamp.Unix(),
		State:                StateOpen,
		KeyHash:              cfg.KeyHash,
		SubscriptionID:       cfg.SubscriptionID,
		RequestConfirmations: cfg.RequestConfirmations,
		CallbackGasLimit:     cfg.CallbackGasLimit,
		NumWords:             cfg.NumWords,
	})

	return c.setRound(snap, round)
}

// Enter adds an entry for the participant to the current round. The paid
// amount moves from the participant to the raffle account.
func (c Contract) Enter(snap store.Snapshot, step execution.Step, participant bank.Address, paid uint64) error {
	round, err := c.GetRound(snap)
	if err != nil {
		return err
	}

	if paid < round.GetEntranceFee() {
		return xerrors.Errorf("%d < %d: %w", paid, round.GetEntranceFee(), ErrInsufficientPayment)
	}

	if round.GetState() != StateOpen {
		return xerrors.Errorf("%v: %w", round.GetState(), ErrRoundNotOpen)
	}

	err = c.bank.Transfer(snap, step, participant, c.Address(), paid)
	if err != nil {
		return xerrors.Errorf("payment: %w", err)
	}

	p := round.GetParams()
	p.Players = append(p.Players, string(participant))

	err = c.setRound(snap, types.NewRound(p))
	if err != nil {
		return err
	}

	step.Emit(execution.NewEvent(ContractName, EventEntered,
		"participant", string(participant)))

	promEntries.Inc()
	promPlayers.Set(float64(len(p.Players)))

	balance, err := c.Balance(snap)
	if err != nil {
		lottery.Logger.Warn().Err(err).Msg("failed to read raffle balance")
	} else {
		promBalance.Set(float64(balance))
	}

	return nil
}

// CheckUpkeep returns true if the round can be closed at the given time: it
// must be open with entries and a balance, and the interval must have
// elapsed. It never writes.
func (c Contract) CheckUpkeep(r store.Readable, now time.Time) (bool, error) {
	round, err := c.GetRound(r)
	if err != nil {
		return false, err
	}

	balance, err := c.Balance(r)
	if err != nil {
		return false, err
	}

	return upkeepNeeded(round, balance, now), nil
}

func upkeepNeeded(round types.Round, balance uint64, now time.Time) bool {
	isOpen := round.GetState() == StateOpen
	timePassed := now.Sub(round.GetLastTimestamp()) >= round.GetInterval()
	hasPlayers := len(round.GetPlayers()) > 0
	hasBalance := balance > 0

	return isOpen && timePassed && hasPlayers && hasBalance
}

// PerformUpkeep closes the round and requests the random word to the
// coordinator. The condition of the upkeep is evaluated again at the time of
// the step.
func (c Contract) PerformUpkeep(snap store.Snapshot, step execution.Step) (uint64, error) {
	round, err := c.GetRound(snap)
	if err != nil {
		return 0, err
	}

	balance, err := c.Balance(snap)
	if err != nil {
		return 0, err
	}

	if !upkeepNeeded(round, balance, step.Timestamp) {
		return 0, xerrors.Errorf("balance=%d players=%d state=%v: %w",
			balance, len(round.GetPlayers()), round.GetState(), ErrUpkeepNotNeeded)
	}

	p := round.GetParams()

	requestID, err := c.coordinator.RequestRandomWords(snap, step, vrf.RequestConfig{
		KeyHash:              p.KeyHash,
		SubscriptionID:       p.SubscriptionID,
		RequestConfirmations: p.RequestConfirmations,
		CallbackGasLimit:     p.CallbackGasLimit,
		NumWords:             p.NumWords,
		Consumer:             string(c.Address()),
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to request randomness: %v", err)
	}

	p.State = StateCalculating
	p.PendingRequest = requestID

	err = c.setRound(snap, types.NewRound(p))
	if err != nil {
		return 0, err
	}

	step.Emit(execution.NewEvent(ContractName, EventUpkeepRequested,
		"requestId", strconv.FormatUint(requestID, 10)))

	return requestID, nil
}

// UpkeepArgs implements keeper.Upkeep. It returns the arguments of the
// PERFORM_UPKEEP transaction.
func (c Contract) UpkeepArgs() []txn.Arg {
	return []txn.Arg{
		{Key: native.ContractArg, Value: []byte(ContractName)},
		{Key: CmdArg, Value: []byte(CmdPerformUpkeep)},
	}
}

// FulfillRandomWords implements vrf.Consumer. It pays the winner designated by
// the first word and starts a new round. Only the pending request is
// accepted.
func (c Contract) FulfillRandomWords(snap store.Snapshot, step execution.Step,
	requestID uint64, words []*big.Int) error {

	round, err := c.GetRound(snap)
	if err != nil {
		return err
	}

	if round.GetPendingRequest() == 0 || round.GetPendingRequest() != requestID {
		return xerrors.Errorf("request %d: %w", requestID, ErrUnrecognizedRequest)
	}

	if len(words) == 0 || words[0] == nil {
		return xerrors.New("missing random word")
	}

	return c.payout(snap, step, round, words[0])
}

// payout transfers the balance to the winner first, and only then resets the
// round.
func (c Contract) payout(snap store.Snapshot, step execution.Step, round types.Round, word *big.Int) error {
	players := round.GetPlayers()
	if len(players) == 0 {
		return xerrors.New("no players in the round")
	}

	winner := players[PickWinner(word, len(players))]

	balance, err := c.Balance(snap)
	if err != nil {
		return err
	}

	err = c.bank.Transfer(snap, step, c.Address(), bank.Address(winner), balance)
	if err != nil {
		return xerrors.Errorf("%s (%v): %w", winner, err, ErrTransferFailed)
	}

	p := round.GetParams()
	p.RecentWinner = winner
	p.Players = nil
	p.LastTimestamp = step.Timestamp.Unix()
	p.State = StateOpen
	p.PendingRequest = 0

	err = c.setRound(snap, types.NewRound(p))
	if err != nil {
		return err
	}

	step.Emit(execution.NewEvent(ContractName, EventWinnerPicked,
		"winner", winner))

	promRounds.Inc()
	promPlayers.Set(0)
	promBalance.Set(0)

	lottery.Logger.Info().
		Str("contract", "raffle").
		Str("winner", winner).
		Uint64("prize", balance).
		Int("players", len(players)).
		Msg("winner picked")

	return nil
}

// PickWinner returns the index of the winning entry: the word modulo the
// number of entries.
func PickWinner(word *big.Int, numPlayers int) int {
	index := new(big.Int).Mod(word, big.NewInt(int64(numPlayers)))

	return int(index.Int64())
}

// GetRound returns the round of the raffle, or ErrNotDeployed.
func (c Contract) GetRound(r store.Readable) (types.Round, error) {
	data, err := prefixed.NewReadable(ContractUID, r).Get([]byte(roundKey))
	if err != nil {
		return types.Round{}, xerrors.Errorf("failed to read store: %v", err)
	}

	if len(data) == 0 {
		return types.Round{}, ErrNotDeployed
	}

	round, err := c.factory.RoundOf(c.context, data)
	if err != nil {
		return types.Round{}, xerrors.Errorf("failed to decode: %v", err)
	}

	return round, nil
}

func (c Contract) setRound(snap store.Snapshot, round types.Round) error {
	data, err := round.Serialize(c.context)
	if err != nil {
		return xerrors.Errorf("failed to serialize: %v", err)
	}

	err = prefixed.NewSnapshot(ContractUID, snap).Set([]byte(roundKey), data)
	if err != nil {
		return xerrors.Errorf("failed to write store: %v", err)
	}

	return nil
}

// EntranceFee implements raffle.Reader.
func (c Contract) EntranceFee(r store.Readable) (uint64, error) {
	round, err := c.GetRound(r)
	if err != nil {
		return 0, err
	}

	return round.GetEntranceFee(), nil
}

// Interval implements raffle.Reader.
func (c Contract) Interval(r store.Readable) (time.Duration, error) {
	round, err := c.GetRound(r)
	if err != nil {
		return 0, err
	}

	return round.GetInterval(), nil
}

// State implements raffle.Reader.
func (c Contract) State(r store.Readable) (State, error) {
	round, err := c.GetRound(r)
	if err != nil {
		return 0, err
	}

	return round.GetState(), nil
}

// Player implements raffle.Reader. It returns the participant of the entry at
// the index.
func (c Contract) Player(r store.Readable, index int) (bank.Address, error) {
	round, err := c.GetRound(r)
	if err != nil {
		return "", err
	}

	players := round.GetPlayers()
	if index < 0 || index >= len(players) {
		return "", xerrors.Errorf("index %d out of range [0, %d)", index, len(players))
	}

	return bank.Address(players[index]), nil
}

// NumPlayers implements raffle.Reader.
func (c Contract) NumPlayers(r store.Readable) (int, error) {
	round, err := c.GetRound(r)
	if err != nil {
		return 0, err
	}

	return len(round.GetPlayers()), nil
}

// RecentWinner implements raffle.Reader. It returns an empty address before
// the first payout.
func (c Contract) RecentWinner(r store.Readable) (bank.Address, error) {
	round, err := c.GetRound(r)
	if err != nil {
		return "", err
	}

	return bank.Address(round.GetRecentWinner()), nil
}

// LastTimestamp implements raffle.Reader.
func (c Contract) LastTimestamp(r store.Readable) (time.Time, error) {
	round, err := c.GetRound(r)
	if err != nil {
		return time.Time{}, err
	}

	return round.GetLastTimestamp(), nil
}

// Balance implements raffle.Reader. It returns the funds held for the current
// round.
func (c Contract) Balance(r store.Readable) (uint64, error) {
	balance, err := c.bank.Balance(r, c.Address())
	if err != nil {
		return 0, xerrors.Errorf("failed to read balance: %v", err)
	}

	return balance, nil
}

// RequestConfirmations implements raffle.Reader.
func (c Contract) RequestConfirmations(r store.Readable) (uint16, error) {
	round, err := c.GetRound(r)
	if err != nil {
		return 0, err
	}

	return round.GetParams().RequestConfirmations, nil
}

// PendingRequest implements raffle.Reader. It returns zero when no request is
// outstanding.
func (c Contract) PendingRequest(r store.Readable) (uint64, error) {
	round, err := c.GetRound(r)
	if err != nil {
		return 0, err
	}

	return round.GetPendingRequest(), nil
}

// raffleCommand implements the commands of the raffle contract.
//
// - implements commands
type raffleCommand struct {
	*Contract
}

// deploy implements commands. It performs the DEPLOY command.
func (c raffleCommand) deploy(snap store.Snapshot, step execution.Step) error {
	cfg := Config{NumWords: 1}

	var err error

	cfg.EntranceFee, err = strconv.ParseUint(string(step.Current.GetArg(EntranceFeeArg)), 10, 64)
	if err != nil {
		return xerrors.Errorf("invalid entrance fee: %v", err)
	}

	cfg.Interval, err = time.ParseDuration(string(step.Current.GetArg(IntervalArg)))
	if err != nil {
		return xerrors.Errorf("invalid interval: %v", err)
	}

	cfg.KeyHash, err = hex.DecodeString(string(step.Current.GetArg(KeyHashArg)))
	if err != nil {
		return xerrors.Errorf("invalid key hash: %v", err)
	}

	cfg.SubscriptionID, err = parseOptional(step, SubscriptionArg, 64)
	if err != nil {
		return err
	}

	confirmations, err := parseOptional(step, ConfirmationsArg, 16)
	if err != nil {
		return err
	}

	gasLimit, err := parseOptional(step, GasLimitArg, 32)
	if err != nil {
		return err
	}

	cfg.RequestConfirmations = uint16(confirmations)
	cfg.CallbackGasLimit = uint32(gasLimit)

	err = c.Deploy(snap, step, cfg)
	if err != nil {
		return err
	}

	lottery.Logger.Info().
		Str("contract", "raffle").
		Uint64("entranceFee", cfg.EntranceFee).
		Dur("interval", cfg.Interval).
		Uint64("subscription", cfg.SubscriptionID).
		Msg("raffle deployed")

	return nil
}

// enter implements commands. It performs the ENTER command with the signer as
// the participant.
func (c raffleCommand) enter(snap store.Snapshot, step execution.Step) error {
	paid, err := strconv.ParseUint(string(step.Current.GetArg(AmountArg)), 10, 64)
	if err != nil {
		return xerrors.Errorf("invalid amount: %v", err)
	}

	participant, err := bank.AddressOf(step.Current.GetIdentity())
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	return c.Enter(snap, step, participant, paid)
}

// performUpkeep implements commands. It performs the PERFORM_UPKEEP command.
func (c raffleCommand) performUpkeep(snap store.Snapshot, step execution.Step) error {
	_, err := c.PerformUpkeep(snap, step)
	return err
}

func parseOptional(step execution.Step, arg string, bitSize int) (uint64, error) {
	value := step.Current.GetArg(arg)
	if len(value) == 0 {
		return 0, nil
	}

	n, err := strconv.ParseUint(string(value), 10, bitSize)
	if err != nil {
		return 0, xerrors.Errorf("invalid '%s': %v", arg, err)
	}

	return n, nil
}
