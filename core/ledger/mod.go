// Package ledger implements the execution environment of the node. It applies
// signed transactions one at a time against the key/value database and
// publishes the events of the accepted ones.
//
// A transaction runs inside a single database write transaction: a refused
// transaction is rolled back entirely, so that no partial mutation is ever
// observable.
package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/core/access"
	"go.dedis.ch/lottery/core/execution"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/store/kv"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/internal/tracing"
	"golang.org/x/xerrors"
)

const (
	// ServiceName is the name of the service in the traces.
	ServiceName = "lottery-ledger"

	// DefaultStateBucket is the name of the database bucket that holds the
	// state of the contracts.
	DefaultStateBucket = "state"

	metaBucket     = "ledger"
	nonceKeyPrefix = "nonce:"
	watchBuffer    = 100
)

var heightKey = []byte("height")

// errRefused is used internally to roll back the database transaction of a
// refused transaction.
var errRefused = xerrors.New("transaction refused")

var promTransactions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "lottery_ledger_transactions_total",
	Help: "total number of executed transactions by result",
}, []string{"result"})

var promHeight = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "lottery_ledger_height",
	Help: "number of committed transactions",
})

func init() {
	lottery.PromCollectors = append(lottery.PromCollectors, promTransactions, promHeight)
}

// Receipt is the outcome of a transaction.
type Receipt struct {
	TxID     []byte
	Height   uint64
	Accepted bool
	Message  string
	Events   []execution.Event
}

// Event is an event of an accepted transaction, published after the commit.
type Event struct {
	execution.Event

	Height uint64
	TxID   []byte
}

// verifiable is implemented by the transactions that carry a signature.
type verifiable interface {
	Verify() error
}

// Option is the type of option to create a ledger.
type Option func(*Ledger)

// WithClock sets the clock that provides the timestamp of the transactions.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithTracer sets the tracer of the ledger.
func WithTracer(tracer opentracing.Tracer) Option {
	return func(l *Ledger) {
		l.tracer = tracer
	}
}

// WithBucket sets the name of the bucket of the contracts state.
func WithBucket(name string) Option {
	return func(l *Ledger) {
		l.bucket = []byte(name)
	}
}

// Ledger is a sequential transaction executor backed by a key/value database.
type Ledger struct {
	sync.Mutex

	db      kv.DB
	exec    execution.Service
	bucket  []byte
	clock   func() time.Time
	tracer  opentracing.Tracer
	watcher *watcher
}

// NewLedger creates a new ledger that executes the transactions with the
// execution service.
func NewLedger(db kv.DB, exec execution.Service, opts ...Option) *Ledger {
	l := &Ledger{
		db:      db,
		exec:    exec,
		bucket:  []byte(DefaultStateBucket),
		clock:   time.Now,
		watcher: newWatcher(),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.tracer == nil {
		tracer, err := tracing.GetTracer(ServiceName)
		if err != nil {
			lottery.Logger.Warn().Err(err).Msg("tracing disabled")
			tracer = opentracing.NoopTracer{}
		}

		l.tracer = tracer
	}

	return l
}

// Now returns the current time of the ledger.
func (l *Ledger) Now() time.Time {
	return l.clock()
}

// Execute applies the transaction to the state. A refused transaction is
// reported in the receipt and leaves the state untouched. An error is returned
// only when the ledger itself fails, in which case nothing is committed either.
func (l *Ledger) Execute(ctx context.Context, tx txn.Transaction) (Receipt, error) {
	span, _ := opentracing.StartSpanFromContextWithTracer(ctx, l.tracer, "execute")
	defer span.Finish()

	span.SetTag(tracing.ContractTag, string(tx.GetArg(native.ContractArg)))
	span.SetTag(tracing.TransactionTag, fmt.Sprintf("%x", tx.GetID()))

	l.Lock()
	defer l.Unlock()

	receipt := Receipt{TxID: tx.GetID()}

	v, ok := tx.(verifiable)
	if ok {
		err := v.Verify()
		if err != nil {
			return l.refuse(span, receipt, fmt.Sprintf("invalid transaction: %v", err)), nil
		}
	}

	addr, err := access.AddressOf(tx.GetIdentity())
	if err != nil {
		return receipt, xerrors.Errorf("failed to read identity: %v", err)
	}

	buffer := execution.NewEventBuffer()

	step := execution.Step{
		Current:   tx,
		Timestamp: l.clock(),
		Emitter:   buffer,
	}

	err = l.db.Update(func(wtx kv.WritableTx) error {
		meta, err := wtx.GetBucketOrCreate([]byte(metaBucket))
		if err != nil {
			return xerrors.Errorf("failed to open meta: %v", err)
		}

		nonce := readUint64(meta.Get(nonceKey(addr)))
		if tx.GetNonce() != nonce {
			receipt.Message = fmt.Sprintf("nonce '%d' != '%d'", tx.GetNonce(), nonce)
			return errRefused
		}

		snap, err := kv.NewSnapshot(wtx, l.bucket)
		if err != nil {
			return xerrors.Errorf("failed to open state: %v", err)
		}

		res, err := l.exec.Execute(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to execute tx: %v", err)
		}

		if !res.Accepted {
			receipt.Message = res.Message
			return errRefused
		}

		height := readUint64(meta.Get(heightKey)) + 1

		err = meta.Set(nonceKey(addr), writeUint64(nonce+1))
		if err != nil {
			return xerrors.Errorf("failed to write nonce: %v", err)
		}

		err = meta.Set(heightKey, writeUint64(height))
		if err != nil {
			return xerrors.Errorf("failed to write height: %v", err)
		}

		receipt.Accepted = true
		receipt.Height = height
		receipt.Events = buffer.GetEvents()

		wtx.OnCommit(func() {
			promHeight.Set(float64(height))
			l.publish(receipt)
		})

		return nil
	})

	if xerrors.Is(err, errRefused) {
		return l.refuse(span, receipt, receipt.Message), nil
	}

	if err != nil {
		span.SetTag("error", true)
		return receipt, xerrors.Errorf("database failed: %v", err)
	}

	promTransactions.WithLabelValues("accepted").Inc()

	lottery.Logger.Debug().
		Uint64("height", receipt.Height).
		Hex("tx", receipt.TxID).
		Int("events", len(receipt.Events)).
		Msg("transaction accepted")

	return receipt, nil
}

func (l *Ledger) refuse(span opentracing.Span, receipt Receipt, msg string) Receipt {
	receipt.Accepted = false
	receipt.Message = msg
	receipt.Events = nil

	span.SetTag("refused", true)
	promTransactions.WithLabelValues("refused").Inc()

	lottery.Logger.Debug().
		Hex("tx", receipt.TxID).
		Str("reason", msg).
		Msg("transaction refused")

	return receipt
}

func (l *Ledger) publish(receipt Receipt) {
	for _, evt := range receipt.Events {
		l.watcher.Notify(Event{
			Event:  evt,
			Height: receipt.Height,
			TxID:   receipt.TxID,
		})
	}
}

// View runs the read-only function against the latest committed state.
func (l *Ledger) View(fn func(store.Readable) error) error {
	return l.db.View(func(tx kv.ReadableTx) error {
		return fn(kv.NewReadable(tx, l.bucket))
	})
}

// GetNonce implements signed.Client. It returns the nonce the next transaction
// of the identity must have.
func (l *Ledger) GetNonce(ident access.Identity) (uint64, error) {
	addr, err := access.AddressOf(ident)
	if err != nil {
		return 0, xerrors.Errorf("failed to read identity: %v", err)
	}

	var nonce uint64

	err = l.db.View(func(tx kv.ReadableTx) error {
		data, err := kv.NewReadable(tx, []byte(metaBucket)).Get(nonceKey(addr))
		nonce = readUint64(data)

		return err
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read nonce: %v", err)
	}

	return nonce, nil
}

// Height returns the number of committed transactions.
func (l *Ledger) Height() (uint64, error) {
	var height uint64

	err := l.db.View(func(tx kv.ReadableTx) error {
		data, err := kv.NewReadable(tx, []byte(metaBucket)).Get(heightKey)
		height = readUint64(data)

		return err
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read height: %v", err)
	}

	return height, nil
}

// Watch returns a channel populated with the events of the accepted
// transactions until the context is done.
func (l *Ledger) Watch(ctx context.Context) <-chan Event {
	obs := chanObserver{ch: make(chan Event, watchBuffer)}
	l.watcher.Add(obs)

	go func() {
		<-ctx.Done()
		l.watcher.Remove(obs)
	}()

	return obs.ch
}

func nonceKey(addr string) []byte {
	return []byte(nonceKeyPrefix + addr)
}

func readUint64(data []byte) uint64 {
	if len(data) != 8 {
		return 0
	}

	return binary.LittleEndian.Uint64(data)
}

func writeUint64(value uint64) []byte {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, value)

	return buffer
}
