// Package vrf implements the native contract of the randomness coordinator.
//
// Consumers registered on a prepaid subscription request random words. A
// request is fulfilled later by a separate transaction: the coordinator signs a
// seed derived from the request with its BLS key and the signature is the
// source of the words, so that anybody can verify them with the public key of
// the coordinator. The consumer callback runs in a staged snapshot and a
// failing consumer never reverts the fulfillment.
package vrf

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/execution"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/store/mem"
	"go.dedis.ch/lottery/core/store/prefixed"
	"go.dedis.ch/lottery/crypto"
	"go.dedis.ch/lottery/randomness/vrf/types"
	"go.dedis.ch/lottery/serde"
	"go.dedis.ch/lottery/serde/json"
	"golang.org/x/xerrors"
)

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/lottery.VRFCoordinator"

	// ContractUID is the unique (4-bytes) identifier of the contract, it is
	// used to prefix keys in the store.
	ContractUID = "VRFC"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "vrf:command"

	// SubscriptionArg is the argument's name in the transaction that contains
	// the subscription identifier.
	SubscriptionArg = "vrf:subscription"

	// AmountArg is the argument's name in the transaction that contains the
	// amount to fund a subscription with.
	AmountArg = "vrf:amount"

	// ConsumerArg is the argument's name in the transaction that contains the
	// address of a consumer.
	ConsumerArg = "vrf:consumer"

	// RequestArg is the argument's name in the transaction that contains the
	// request identifier to fulfill.
	RequestArg = "vrf:request"

	// MaxNumWords is the maximum number of words per request.
	MaxNumWords = 500

	// MaxCallbackGasLimit is the maximum gas limit of a consumer callback.
	MaxCallbackGasLimit = 2_500_000

	// MaxRequestConfirmations is the maximum number of confirmations a request
	// can ask for.
	MaxRequestConfirmations = 200

	// DefaultBaseFee is the flat fee of a fulfillment.
	DefaultBaseFee = 250_000_000_000_000_000

	// DefaultGasPriceLink is the price of a unit of callback gas.
	DefaultGasPriceLink = 1_000_000_000

	indexKey           = "index"
	subscriptionPrefix = "subscription:"
	requestPrefix      = "request:"
)

// Events emitted by the coordinator.
const (
	EventSubscriptionCreated = "SubscriptionCreated"
	EventSubscriptionFunded  = "SubscriptionFunded"
	EventConsumerAdded       = "SubscriptionConsumerAdded"
	EventConsumerRemoved     = "SubscriptionConsumerRemoved"
	EventRequested           = "RandomWordsRequested"
	EventFulfilled           = "RandomWordsFulfilled"
)

// Command defines a type of command for the coordinator contract.
type Command string

const (
	// CmdCreateSubscription defines the command to create a subscription owned
	// by the signer.
	CmdCreateSubscription Command = "CREATE_SUBSCRIPTION"

	// CmdFundSubscription defines the command to add funds to a subscription.
	CmdFundSubscription Command = "FUND_SUBSCRIPTION"

	// CmdAddConsumer defines the command to allow a consumer to use a
	// subscription. Only the owner can run it.
	CmdAddConsumer Command = "ADD_CONSUMER"

	// CmdRemoveConsumer defines the command to revoke a consumer. Only the
	// owner can run it.
	CmdRemoveConsumer Command = "REMOVE_CONSUMER"

	// CmdFulfill defines the command to fulfill a pending request.
	CmdFulfill Command = "FULFILL"
)

var (
	// ErrNonexistentRequest is returned when fulfilling an unknown request or
	// one already fulfilled.
	ErrNonexistentRequest = xerrors.New("nonexistent request")

	// ErrInvalidSubscription is returned for an unknown subscription.
	ErrInvalidSubscription = xerrors.New("invalid subscription")

	// ErrInvalidConsumer is returned when the requester is not a consumer of
	// the subscription.
	ErrInvalidConsumer = xerrors.New("invalid consumer")

	// ErrInsufficientBalance is returned when the subscription cannot pay for
	// a fulfillment.
	ErrInsufficientBalance = xerrors.New("insufficient balance")

	// ErrMustBeOwner is returned when a subscription is managed by somebody
	// else than its owner.
	ErrMustBeOwner = xerrors.New("must be subscription owner")
)

var promRequests = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "lottery_vrf_requests_total",
	Help: "total number of randomness requests",
})

var promFulfillments = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "lottery_vrf_fulfillments_total",
	Help: "total number of fulfillments by consumer outcome",
}, []string{"success"})

func init() {
	lottery.PromCollectors = append(lottery.PromCollectors, promRequests, promFulfillments)
}

// RequestConfig contains the parameters of a randomness request.
type RequestConfig struct {
	KeyHash              []byte
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32

	// Consumer is the address of the contract requesting, which is called
	// back on fulfillment.
	Consumer string
}

// Consumer is the interface a contract implements to receive random words.
type Consumer interface {
	FulfillRandomWords(snap store.Snapshot, step execution.Step, requestID uint64, words []*big.Int) error
}

// Config contains the fees of the coordinator.
type Config struct {
	BaseFee      uint64
	GasPriceLink uint64
}

// Fee returns the amount charged for a fulfillment with the given callback gas
// limit.
func (c Config) Fee(callbackGasLimit uint32) (uint64, error) {
	gas := uint64(callbackGasLimit)

	if gas > 0 && c.GasPriceLink > (^uint64(0)-c.BaseFee)/gas {
		return 0, xerrors.Errorf("fee overflow for gas limit %d", callbackGasLimit)
	}

	return c.BaseFee + c.GasPriceLink*gas, nil
}

// DefaultConfig returns the default fees.
func DefaultConfig() Config {
	return Config{
		BaseFee:      DefaultBaseFee,
		GasPriceLink: DefaultGasPriceLink,
	}
}

// commands defines the commands of the coordinator contract. This interface
// helps in testing the contract.
type commands interface {
	createSubscription(snap store.Snapshot, step execution.Step) error
	fundSubscription(snap store.Snapshot, step execution.Step) error
	addConsumer(snap store.Snapshot, step execution.Step) error
	removeConsumer(snap store.Snapshot, step execution.Step) error
	fulfill(snap store.Snapshot, step execution.Step) error
}

// RegisterContract registers the coordinator to the given execution service.
func RegisterContract(exec *native.Service, c *Coordinator) {
	exec.Set(ContractName, c)
}

// Coordinator is the native contract of the randomness coordinator.
//
// - implements native.Contract
type Coordinator struct {
	signer    crypto.Signer
	config    Config
	context   serde.Context
	factory   serde.Factory
	consumers map[string]Consumer
	cmd       commands
}

// NewCoordinator creates a new coordinator that proves the randomness with the
// signer.
func NewCoordinator(signer crypto.Signer, cfg Config) *Coordinator {
	c := &Coordinator{
		signer:    signer,
		config:    cfg,
		context:   json.NewContext(),
		factory:   types.NewMessageFactory(),
		consumers: make(map[string]Consumer),
	}

	c.cmd = vrfCommand{Coordinator: c}

	return c
}

// RegisterConsumer registers the callback of the consumer at the address. It
// must be done before the node starts executing transactions.
func (c *Coordinator) RegisterConsumer(addr string, consumer Consumer) {
	c.consumers[addr] = consumer
}

// GetPublicKey returns the key that verifies the proofs of the coordinator.
func (c *Coordinator) GetPublicKey() crypto.PublicKey {
	return c.signer.GetPublicKey()
}

// GetConfig returns the fees of the coordinator.
func (c *Coordinator) GetConfig() Config {
	return c.config
}

// UID implements native.Contract. It returns the unique 4-bytes contract
// identifier.
func (c *Coordinator) UID() string {
	return ContractUID
}

// Execute implements native.Contract. It runs the appropriate command.
func (c *Coordinator) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	var err error

	switch Command(cmd) {
	case CmdCreateSubscription:
		err = c.cmd.createSubscription(snap, step)
	case CmdFundSubscription:
		err = c.cmd.fundSubscription(snap, step)
	case CmdAddConsumer:
		err = c.cmd.addConsumer(snap, step)
	case CmdRemoveConsumer:
		err = c.cmd.removeConsumer(snap, step)
	case CmdFulfill:
		err = c.cmd.fulfill(snap, step)
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		return xerrors.Errorf("failed to %s: %w", cmd, err)
	}

	return nil
}

// CreateSubscription creates an empty subscription owned by the address and
// returns its identifier. Identifiers start at 1.
func (c *Coordinator) CreateSubscription(snap store.Snapshot, step execution.Step, owner string) (uint64, error) {
	idx, err := c.GetIndex(snap)
	if err != nil {
		return 0, xerrors.Errorf("index: %v", err)
	}

	idx, id := idx.NextSubscription()

	err = c.write(snap, subscriptionKey(id), types.NewSubscription(id, owner, 0))
	if err != nil {
		return 0, xerrors.Errorf("failed to write subscription: %v", err)
	}

	err = c.write(snap, []byte(indexKey), idx)
	if err != nil {
		return 0, xerrors.Errorf("failed to write index: %v", err)
	}

	step.Emit(execution.NewEvent(ContractName, EventSubscriptionCreated,
		"subId", formatUint(id),
		"owner", owner))

	return id, nil
}

// FundSubscription credits the subscription with the amount. The development
// coordinator does not hold the funds of the subscriptions in the bank.
func (c *Coordinator) FundSubscription(snap store.Snapshot, step execution.Step, id, amount uint64) error {
	sub, err := c.GetSubscription(snap, id)
	if err != nil {
		return err
	}

	balance := sub.GetBalance() + amount
	if balance < sub.GetBalance() {
		return xerrors.Errorf("balance overflow for subscription %d", id)
	}

	err = c.write(snap, subscriptionKey(id), sub.WithBalance(balance))
	if err != nil {
		return xerrors.Errorf("failed to write subscription: %v", err)
	}

	step.Emit(execution.NewEvent(ContractName, EventSubscriptionFunded,
		"subId", formatUint(id),
		"oldBalance", formatUint(sub.GetBalance()),
		"newBalance", formatUint(balance)))

	return nil
}

// AddConsumer allows the consumer to request randomness paid by the
// subscription.
func (c *Coordinator) AddConsumer(snap store.Snapshot, step execution.Step, id uint64, consumer string) error {
	sub, err := c.GetSubscription(snap, id)
	if err != nil {
		return err
	}

	err = c.write(snap, subscriptionKey(id), sub.WithConsumer(consumer))
	if err != nil {
		return xerrors.Errorf("failed to write subscription: %v", err)
	}

	step.Emit(execution.NewEvent(ContractName, EventConsumerAdded,
		"subId", formatUint(id),
		"consumer", consumer))

	return nil
}

// RemoveConsumer revokes the consumer from the subscription.
func (c *Coordinator) RemoveConsumer(snap store.Snapshot, step execution.Step, id uint64, consumer string) error {
	sub, err := c.GetSubscription(snap, id)
	if err != nil {
		return err
	}

	if !sub.HasConsumer(consumer) {
		return xerrors.Errorf("%s: %w", consumer, ErrInvalidConsumer)
	}

	err = c.write(snap, subscriptionKey(id), sub.WithoutConsumer(consumer))
	if err != nil {
		return xerrors.Errorf("failed to write subscription: %v", err)
	}

	step.Emit(execution.NewEvent(ContractName, EventConsumerRemoved,
		"subId", formatUint(id),
		"consumer", consumer))

	return nil
}

// RequestRandomWords registers a new request and returns its identifier.
// Identifiers start at 1 and increase with every request.
func (c *Coordinator) RequestRandomWords(snap store.Snapshot, step execution.Step, cfg RequestConfig) (uint64, error) {
	if cfg.NumWords < 1 || cfg.NumWords > MaxNumWords {
		return 0, xerrors.Errorf("numWords %d not in [1, %d]", cfg.NumWords, MaxNumWords)
	}

	if cfg.CallbackGasLimit > MaxCallbackGasLimit {
		return 0, xerrors.Errorf("gas limit too big: %d > %d", cfg.CallbackGasLimit, MaxCallbackGasLimit)
	}

	if cfg.RequestConfirmations > MaxRequestConfirmations {
		return 0, xerrors.Errorf("invalid request confirmations: %d > %d",
			cfg.RequestConfirmations, MaxRequestConfirmations)
	}

	sub, err := c.GetSubscription(snap, cfg.SubscriptionID)
	if err != nil {
		return 0, err
	}

	if !sub.HasConsumer(cfg.Consumer) {
		return 0, xerrors.Errorf("%s: %w", cfg.Consumer, ErrInvalidConsumer)
	}

	idx, err := c.GetIndex(snap)
	if err != nil {
		return 0, xerrors.Errorf("index: %v", err)
	}

	idx, id := idx.NextRequest()

	preSeed := c.preSeed(cfg, id)

	req := types.NewRequest(types.RequestParams{
		ID:               id,
		Subscription:     cfg.SubscriptionID,
		Consumer:         cfg.Consumer,
		KeyHash:          cfg.KeyHash,
		PreSeed:          preSeed,
		Confirmations:    cfg.RequestConfirmations,
		CallbackGasLimit: cfg.CallbackGasLimit,
		NumWords:         cfg.NumWords,
		Timestamp:        step.Timestamp.Unix(),
	})

	err = c.write(snap, requestKey(id), req)
	if err != nil {
		return 0, xerrors.Errorf("failed to write request: %v", err)
	}

	err = c.write(snap, []byte(indexKey), idx)
	if err != nil {
		return 0, xerrors.Errorf("failed to write index: %v", err)
	}

	step.Emit(execution.NewEvent(ContractName, EventRequested,
		"requestId", formatUint(id),
		"subId", formatUint(cfg.SubscriptionID),
		"sender", cfg.Consumer,
		"keyHash", hex.EncodeToString(cfg.KeyHash),
		"preSeed", hex.EncodeToString(preSeed),
		"minimumRequestConfirmations", strconv.Itoa(int(cfg.RequestConfirmations)),
		"callbackGasLimit", strconv.Itoa(int(cfg.CallbackGasLimit)),
		"numWords", strconv.Itoa(int(cfg.NumWords))))

	promRequests.Inc()

	return id, nil
}

// FulfillRandomWords proves the randomness of the pending request and
// delivers the words to the consumer. The subscription pays the fee whatever
// the outcome of the consumer callback. The writes and the events of a failing
// consumer are discarded and the request stays consumed.
func (c *Coordinator) FulfillRandomWords(snap store.Snapshot, step execution.Step, id uint64) (Proof, error) {
	req, err := c.GetRequest(snap, id)
	if err != nil {
		return Proof{}, err
	}

	sub, err := c.GetSubscription(snap, req.GetSubscription())
	if err != nil {
		return Proof{}, err
	}

	payment, err := c.config.Fee(req.GetCallbackGasLimit())
	if err != nil {
		return Proof{}, err
	}

	if sub.GetBalance() < payment {
		return Proof{}, xerrors.Errorf("subscription %d has %d, needs %d: %w",
			sub.GetID(), sub.GetBalance(), payment, ErrInsufficientBalance)
	}

	proof, words, err := c.prove(req)
	if err != nil {
		return Proof{}, xerrors.Errorf("failed to prove: %v", err)
	}

	idx, err := c.GetIndex(snap)
	if err != nil {
		return Proof{}, xerrors.Errorf("index: %v", err)
	}

	err = prefixed.NewSnapshot(ContractUID, snap).Delete(requestKey(id))
	if err != nil {
		return Proof{}, xerrors.Errorf("failed to delete request: %v", err)
	}

	err = c.write(snap, []byte(indexKey), idx.Done(id))
	if err != nil {
		return Proof{}, xerrors.Errorf("failed to write index: %v", err)
	}

	err = c.write(snap, subscriptionKey(sub.GetID()), sub.WithBalance(sub.GetBalance()-payment))
	if err != nil {
		return Proof{}, xerrors.Errorf("failed to write subscription: %v", err)
	}

	success, err := c.callback(snap, step, req, words)
	if err != nil {
		return Proof{}, xerrors.Errorf("callback: %v", err)
	}

	step.Emit(execution.NewEvent(ContractName, EventFulfilled,
		"requestId", formatUint(id),
		"payment", formatUint(payment),
		"success", strconv.FormatBool(success),
		"keyHash", hex.EncodeToString(proof.KeyHash),
		"preSeed", hex.EncodeToString(proof.PreSeed),
		"signature", hex.EncodeToString(proof.Signature),
		"numWords", strconv.Itoa(int(proof.NumWords))))

	promFulfillments.WithLabelValues(strconv.FormatBool(success)).Inc()

	return proof, nil
}

// callback runs the consumer in a stage of the snapshot. It returns false when
// the consumer is unknown or fails, and an error only if the stage cannot be
// applied.
func (c *Coordinator) callback(snap store.Snapshot, step execution.Step,
	req types.Request, words []*big.Int) (bool, error) {

	logger := lottery.Logger.With().
		Str("contract", "vrf").
		Uint64("request", req.GetID()).
		Str("consumer", req.GetConsumer()).
		Logger()

	consumer := c.consumers[req.GetConsumer()]
	if consumer == nil {
		logger.Warn().Msg("no callback registered for consumer")
		return false, nil
	}

	stage := mem.NewStage(snap)
	buffer := execution.NewEventBuffer()

	substep := step
	substep.Emitter = buffer

	err := consumer.FulfillRandomWords(stage, substep, req.GetID(), words)
	if err != nil {
		logger.Warn().Err(err).Msg("consumer failed to fulfill")

		stage.Discard()
		buffer.Reset()

		return false, nil
	}

	err = stage.Commit()
	if err != nil {
		return false, xerrors.Errorf("failed to apply stage: %v", err)
	}

	buffer.FlushTo(step.Emitter)

	return true, nil
}

// GetIndex returns the counters of the coordinator.
func (c *Coordinator) GetIndex(r store.Readable) (types.Index, error) {
	msg, err := c.read(r, []byte(indexKey))
	if err != nil {
		return types.Index{}, err
	}

	if msg == nil {
		return types.NewIndex(0, 0), nil
	}

	idx, ok := msg.(types.Index)
	if !ok {
		return types.Index{}, xerrors.Errorf("invalid index of type '%T'", msg)
	}

	return idx, nil
}

// GetSubscription returns the subscription with the identifier.
func (c *Coordinator) GetSubscription(r store.Readable, id uint64) (types.Subscription, error) {
	msg, err := c.read(r, subscriptionKey(id))
	if err != nil {
		return types.Subscription{}, err
	}

	if msg == nil {
		return types.Subscription{}, xerrors.Errorf("subscription %d: %w", id, ErrInvalidSubscription)
	}

	sub, ok := msg.(types.Subscription)
	if !ok {
		return types.Subscription{}, xerrors.Errorf("invalid subscription of type '%T'", msg)
	}

	return sub, nil
}

// GetRequest returns the pending request with the identifier.
func (c *Coordinator) GetRequest(r store.Readable, id uint64) (types.Request, error) {
	msg, err := c.read(r, requestKey(id))
	if err != nil {
		return types.Request{}, err
	}

	if msg == nil {
		return types.Request{}, xerrors.Errorf("request %d: %w", id, ErrNonexistentRequest)
	}

	req, ok := msg.(types.Request)
	if !ok {
		return types.Request{}, xerrors.Errorf("invalid request of type '%T'", msg)
	}

	return req, nil
}

// PendingRequests returns the requests waiting for a fulfillment in order of
// creation.
func (c *Coordinator) PendingRequests(r store.Readable) ([]types.Request, error) {
	idx, err := c.GetIndex(r)
	if err != nil {
		return nil, xerrors.Errorf("index: %v", err)
	}

	pending := idx.GetPending()
	reqs := make([]types.Request, len(pending))

	for i, id := range pending {
		reqs[i], err = c.GetRequest(r, id)
		if err != nil {
			return nil, xerrors.Errorf("request %d: %v", id, err)
		}
	}

	return reqs, nil
}

// preSeed derives the seed of a request from its parameters and identifier.
func (c *Coordinator) preSeed(cfg RequestConfig, id uint64) []byte {
	h := crypto.NewSha256Factory().New()
	h.Write(cfg.KeyHash)
	h.Write([]byte(cfg.Consumer))
	h.Write(uint64Bytes(cfg.SubscriptionID))
	h.Write(uint64Bytes(id))

	return h.Sum(nil)
}

func (c *Coordinator) prove(req types.Request) (Proof, []*big.Int, error) {
	proof := Proof{
		KeyHash:  req.GetKeyHash(),
		PreSeed:  req.GetPreSeed(),
		NumWords: req.GetNumWords(),
	}

	sig, err := c.signer.Sign(proof.Seed(req.GetID()))
	if err != nil {
		return proof, nil, xerrors.Errorf("signer: %v", err)
	}

	proof.Signature, err = sig.MarshalBinary()
	if err != nil {
		return proof, nil, xerrors.Errorf("failed to marshal signature: %v", err)
	}

	return proof, proof.Words(), nil
}

func (c *Coordinator) read(r store.Readable, key []byte) (serde.Message, error) {
	data, err := prefixed.NewReadable(ContractUID, r).Get(key)
	if err != nil {
		return nil, xerrors.Errorf("failed to read store: %v", err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	msg, err := c.factory.Deserialize(c.context, data)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode: %v", err)
	}

	return msg, nil
}

func (c *Coordinator) write(snap store.Snapshot, key []byte, msg serde.Message) error {
	data, err := msg.Serialize(c.context)
	if err != nil {
		return xerrors.Errorf("failed to serialize: %v", err)
	}

	err = prefixed.NewSnapshot(ContractUID, snap).Set(key, data)
	if err != nil {
		return xerrors.Errorf("failed to write store: %v", err)
	}

	return nil
}

func subscriptionKey(id uint64) []byte {
	return []byte(subscriptionPrefix + formatUint(id))
}

func requestKey(id uint64) []byte {
	return []byte(requestPrefix + formatUint(id))
}

func formatUint(value uint64) string {
	return strconv.FormatUint(value, 10)
}

func uint64Bytes(value uint64) []byte {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, value)

	return buffer
}

// vrfCommand implements the commands of the coordinator contract.
//
// - implements commands
type vrfCommand struct {
	*Coordinator
}

// createSubscription implements commands. It performs the CREATE_SUBSCRIPTION
// command.
func (c vrfCommand) createSubscription(snap store.Snapshot, step execution.Step) error {
	owner, err := bank.AddressOf(step.Current.GetIdentity())
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	id, err := c.CreateSubscription(snap, step, string(owner))
	if err != nil {
		return err
	}

	lottery.Logger.Info().
		Str("contract", "vrf").
		Uint64("subscription", id).
		Str("owner", string(owner)).
		Msg("subscription created")

	return nil
}

// fundSubscription implements commands. It performs the FUND_SUBSCRIPTION
// command.
func (c vrfCommand) fundSubscription(snap store.Snapshot, step execution.Step) error {
	id, err := parseUint(step, SubscriptionArg)
	if err != nil {
		return err
	}

	amount, err := parseUint(step, AmountArg)
	if err != nil {
		return err
	}

	return c.FundSubscription(snap, step, id, amount)
}

// addConsumer implements commands. It performs the ADD_CONSUMER command.
func (c vrfCommand) addConsumer(snap store.Snapshot, step execution.Step) error {
	id, consumer, err := c.ownedConsumer(snap, step)
	if err != nil {
		return err
	}

	return c.AddConsumer(snap, step, id, consumer)
}

// removeConsumer implements commands. It performs the REMOVE_CONSUMER command.
func (c vrfCommand) removeConsumer(snap store.Snapshot, step execution.Step) error {
	id, consumer, err := c.ownedConsumer(snap, step)
	if err != nil {
		return err
	}

	return c.RemoveConsumer(snap, step, id, consumer)
}

func (c vrfCommand) ownedConsumer(snap store.Snapshot, step execution.Step) (uint64, string, error) {
	id, err := parseUint(step, SubscriptionArg)
	if err != nil {
		return 0, "", err
	}

	consumer := string(step.Current.GetArg(ConsumerArg))
	if consumer == "" {
		return 0, "", xerrors.Errorf("'%s' not found in tx arg", ConsumerArg)
	}

	sub, err := c.GetSubscription(snap, id)
	if err != nil {
		return 0, "", err
	}

	signer, err := bank.AddressOf(step.Current.GetIdentity())
	if err != nil {
		return 0, "", xerrors.Errorf("signer: %v", err)
	}

	if string(signer) != sub.GetOwner() {
		return 0, "", xerrors.Errorf("%s: %w", signer, ErrMustBeOwner)
	}

	return id, consumer, nil
}

// fulfill implements commands. It performs the FULFILL command.
func (c vrfCommand) fulfill(snap store.Snapshot, step execution.Step) error {
	id, err := parseUint(step, RequestArg)
	if err != nil {
		return err
	}

	_, err = c.FulfillRandomWords(snap, step, id)
	return err
}

func parseUint(step execution.Step, arg string) (uint64, error) {
	value, err := strconv.ParseUint(string(step.Current.GetArg(arg)), 10, 64)
	if err != nil {
		return 0, xerrors.Errorf("invalid '%s': %v", arg, err)
	}

	return value, nil
}
