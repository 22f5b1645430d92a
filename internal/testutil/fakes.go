// Package testutil provides in-memory stand-ins for external systems.
package testutil

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/pkg/notify"
	"github.com/agroisync/backend/pkg/payment"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FakeChain is a chain.Reader over canned transactions.
type FakeChain struct {
	mu       sync.Mutex
	txs      map[common.Hash]*types.Transaction
	receipts map[common.Hash]*types.Receipt
	Head     uint64
	Err      error
	Calls    int
}

func NewFakeChain(head uint64) *FakeChain {
	return &FakeChain{
		txs:      map[common.Hash]*types.Transaction{},
		receipts: map[common.Hash]*types.Receipt{},
		Head:     head,
	}
}

// AddTransfer registers a mined native-token transfer and returns its hash.
// A nil to makes it a contract creation.
func (c *FakeChain) AddTransfer(to *common.Address, value *big.Int, status uint64, block uint64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    uint64(len(c.txs)),
		To:       to,
		Value:    value,
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
	h := tx.Hash()
	c.txs[h] = tx
	c.receipts[h] = &types.Receipt{
		Status:      status,
		BlockNumber: new(big.Int).SetUint64(block),
		TxHash:      h,
	}
	return h.Hex()
}

func (c *FakeChain) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	if c.Err != nil {
		return nil, false, c.Err
	}
	tx, ok := c.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, false, nil
}

func (c *FakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	r, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (c *FakeChain) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	return c.Head, nil
}

// FakeGateway is a payment.CheckoutGateway that records requests.
type FakeGateway struct {
	mu       sync.Mutex
	Requests []payment.CheckoutRequest
	Err      error
	Event    *payment.WebhookEvent
	EventErr error
}

func (g *FakeGateway) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Requests = append(g.Requests, req)
	if g.Err != nil {
		return nil, g.Err
	}
	id := fmt.Sprintf("cs_test_%d", len(g.Requests))
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.example/" + id}, nil
}

func (g *FakeGateway) ParseWebhook(_ []byte, signature string) (*payment.WebhookEvent, error) {
	if g.EventErr != nil {
		return nil, g.EventErr
	}
	if signature == "" {
		return nil, payment.ErrInvalidSignature
	}
	return g.Event, nil
}

// Calls returns how many checkouts were requested.
func (g *FakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Requests)
}

// FakeClaims is an in-process TxClaimer.
type FakeClaims struct {
	mu   sync.Mutex
	held map[string]string
}

func NewFakeClaims() *FakeClaims {
	return &FakeClaims{held: map[string]string{}}
}

func (c *FakeClaims) Acquire(_ context.Context, hash, owner string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.held[hash]; ok {
		return false, nil
	}
	c.held[hash] = owner
	return true, nil
}

func (c *FakeClaims) Release(_ context.Context, hash, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held[hash] == owner {
		delete(c.held, hash)
	}
	return nil
}

// Held reports whether hash is currently claimed.
func (c *FakeClaims) Held(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.held[hash]
	return ok
}

type storedCode struct {
	code      domain.StoredCode
	attempts  int64
	expiresAt time.Time
}

// FakeCodes is an in-memory verification code store with TTLs driven by Now.
type FakeCodes struct {
	mu    sync.Mutex
	codes map[string]storedCode
	Now   func() time.Time
}

func NewFakeCodes() *FakeCodes {
	return &FakeCodes{codes: map[string]storedCode{}, Now: time.Now}
}

func codeKey(channel, dest string) string {
	return channel + ":" + strings.ToLower(dest)
}

func (f *FakeCodes) Save(_ context.Context, channel, dest string, code domain.StoredCode, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[codeKey(channel, dest)] = storedCode{code: code, expiresAt: f.Now().Add(ttl)}
	return nil
}

func (f *FakeCodes) Get(_ context.Context, channel, dest string) (*domain.StoredCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, ok := f.codes[codeKey(channel, dest)]
	if !ok || !f.Now().Before(sc.expiresAt) {
		return nil, nil
	}
	c := sc.code
	return &c, nil
}

func (f *FakeCodes) IncrAttempts(_ context.Context, channel, dest string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := codeKey(channel, dest)
	sc, ok := f.codes[key]
	if !ok || !f.Now().Before(sc.expiresAt) {
		return -1, nil
	}
	sc.attempts++
	f.codes[key] = sc
	return sc.attempts, nil
}

func (f *FakeCodes) Delete(_ context.Context, channel, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, codeKey(channel, dest))
	return nil
}

// FakeSender records outgoing messages.
type FakeSender struct {
	mu   sync.Mutex
	Sent []notify.Message
	Err  error
}

func (s *FakeSender) Send(_ context.Context, msg notify.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.Sent = append(s.Sent, msg)
	return fmt.Sprintf("msg-%d", len(s.Sent)), nil
}

// Last returns the most recent message.
func (s *FakeSender) Last() notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Sent) == 0 {
		return notify.Message{}
	}
	return s.Sent[len(s.Sent)-1]
}
