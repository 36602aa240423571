package vrf

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/txn"
	"golang.org/x/xerrors"
)

const (
	// DefaultPollPeriod is the default time between two polls of the pending
	// requests.
	DefaultPollPeriod = time.Second

	// DefaultBlockTime is the default duration of a confirmation.
	DefaultBlockTime = time.Second
)

// Client is the interface of the ledger the fulfiller relies on.
type Client interface {
	View(fn func(store.Readable) error) error
	Execute(ctx context.Context, tx txn.Transaction) (ledger.Receipt, error)
	Now() time.Time
}

// FulfillerOption is the type of option to create a fulfiller.
type FulfillerOption func(*Fulfiller)

// WithPollPeriod sets the time between two polls.
func WithPollPeriod(period time.Duration) FulfillerOption {
	return func(f *Fulfiller) {
		f.period = period
	}
}

// WithBlockTime sets the duration of a confirmation.
func WithBlockTime(d time.Duration) FulfillerOption {
	return func(f *Fulfiller) {
		f.blockTime = d
	}
}

// Fulfiller is the worker that submits the fulfillments of the pending
// requests once they have enough confirmations.
type Fulfiller struct {
	coordinator *Coordinator
	client      Client
	manager     txn.Manager
	period      time.Duration
	blockTime   time.Duration
	logger      zerolog.Logger
	closing     chan struct{}
	done        chan struct{}
}

// NewFulfiller creates a new fulfiller that signs its transactions with the
// manager.
func NewFulfiller(coord *Coordinator, client Client, mgr txn.Manager, opts ...FulfillerOption) *Fulfiller {
	f := &Fulfiller{
		coordinator: coord,
		client:      client,
		manager:     mgr,
		period:      DefaultPollPeriod,
		blockTime:   DefaultBlockTime,
		logger:      lottery.Logger.With().Str("worker", "fulfiller").Logger(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Start starts the polling loop in a goroutine.
func (f *Fulfiller) Start() {
	f.closing = make(chan struct{})
	f.done = make(chan struct{})

	go f.run()
}

// Stop stops the polling loop and waits for it to return.
func (f *Fulfiller) Stop() {
	if f.closing == nil {
		return
	}

	close(f.closing)
	<-f.done

	f.closing = nil
}

func (f *Fulfiller) run() {
	defer close(f.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(f.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, err := f.Poll(ctx)
			if err != nil {
				f.logger.Err(err).Msg("poll failed")
			}
		case <-f.closing:
			return
		}
	}
}

// Poll fulfills every pending request that has enough confirmations and
// returns the number of accepted fulfillments.
func (f *Fulfiller) Poll(ctx context.Context) (int, error) {
	var pending []Pending

	err := f.client.View(func(r store.Readable) error {
		reqs, err := f.coordinator.PendingRequests(r)
		if err != nil {
			return err
		}

		for _, req := range reqs {
			pending = append(pending, Pending{
				ID:      req.GetID(),
				ReadyAt: time.Unix(req.GetTimestamp(), 0).Add(time.Duration(req.GetConfirmations()) * f.blockTime),
			})
		}

		return nil
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read pending requests: %v", err)
	}

	now := f.client.Now()
	accepted := 0

	for _, p := range pending {
		if now.Before(p.ReadyAt) {
			continue
		}

		receipt, err := f.Fulfill(ctx, p.ID)
		if err != nil {
			return accepted, xerrors.Errorf("failed to fulfill %d: %v", p.ID, err)
		}

		if receipt.Accepted {
			accepted++
		}
	}

	return accepted, nil
}

// Fulfill submits the fulfillment of the request. A refused transaction is
// logged and reported in the receipt.
func (f *Fulfiller) Fulfill(ctx context.Context, id uint64) (ledger.Receipt, error) {
	logger := f.logger.With().
		Str("correlation", xid.New().String()).
		Uint64("request", id).
		Logger()

	tx, err := f.manager.Make(
		txn.Arg{Key: native.ContractArg, Value: []byte(ContractName)},
		txn.Arg{Key: CmdArg, Value: []byte(CmdFulfill)},
		txn.Arg{Key: RequestArg, Value: []byte(strconv.FormatUint(id, 10))},
	)
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("failed to make tx: %v", err)
	}

	receipt, err := f.client.Execute(ctx, tx)
	if err != nil {
		return receipt, xerrors.Errorf("failed to execute tx: %v", err)
	}

	if !receipt.Accepted {
		logger.Warn().Str("reason", receipt.Message).Msg("fulfillment refused")

		err = f.manager.Sync()
		if err != nil {
			return receipt, xerrors.Errorf("failed to sync manager: %v", err)
		}

		return receipt, nil
	}

	logger.Info().Uint64("height", receipt.Height).Msg("request fulfilled")

	return receipt, nil
}

// Pending is a pending request and the time from which it can be fulfilled.
type Pending struct {
	ID      uint64
	ReadyAt time.Time
}
