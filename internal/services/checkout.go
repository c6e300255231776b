package services

import (
	"sync"
	"time"

	"github.com/joshua-takyi/slotbook/internal/models"
	"github.com/joshua-takyi/slotbook/internal/payment"
)

const DefaultHoldTTL = 15 * time.Minute

type CheckoutState string

const (
	CheckoutOpen      CheckoutState = "open"
	CheckoutSettling  CheckoutState = "settling"
	CheckoutCompleted CheckoutState = "completed"
	CheckoutFailed    CheckoutState = "failed"
	CheckoutExpired   CheckoutState = "expired"
)

// Checkout is one booking attempt: the reserved units, the gateway order and the buyer's
// selection. One caller at a time may hold it in the settling state; a settlement that cannot
// commit hands it back as open, and a final state is reached exactly once.
type Checkout struct {
	ReceiptID string            `json:"receipt_id"`
	Order     *payment.Order    `json:"order"`
	Kind      models.EntityKind `json:"kind"`
	Key       models.SlotKey    `json:"slot"`
	TierPool  *models.SlotKey   `json:"tier_pool,omitempty"`
	Selection Selection         `json:"selection"`
	Amount    float64           `json:"amount"`
	Currency  string            `json:"currency"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`

	mu    sync.Mutex
	state CheckoutState
}

func (c *Checkout) State() CheckoutState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// begin claims an open checkout for settlement and reports whether this call got it.
func (c *Checkout) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CheckoutOpen {
		return false
	}
	c.state = CheckoutSettling
	return true
}

// finish moves a settling checkout to its final state.
func (c *Checkout) finish(state CheckoutState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == CheckoutSettling {
		c.state = state
	}
}

// reopen hands a settling checkout back so a later callback can try again.
func (c *Checkout) reopen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == CheckoutSettling {
		c.state = CheckoutOpen
	}
}

// CheckoutStore holds open checkouts keyed by gateway order id. Entries live in memory only;
// a restart forgets them and their reservations stay held until released by hand.
type CheckoutStore struct {
	mu   sync.Mutex
	byID map[string]*Checkout
}

func NewCheckoutStore() *CheckoutStore {
	return &CheckoutStore{byID: make(map[string]*Checkout)}
}

func (s *CheckoutStore) Put(co *Checkout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[co.Order.ID] = co
}

func (s *CheckoutStore) Get(orderID string) (*Checkout, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	co, ok := s.byID[orderID]
	return co, ok
}

func (s *CheckoutStore) Remove(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, orderID)
}

func (s *CheckoutStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Expired returns every checkout whose hold ran out before now. They stay in the store until
// the caller settles them.
func (s *CheckoutStore) Expired(now time.Time) []*Checkout {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Checkout
	for _, co := range s.byID {
		if now.After(co.ExpiresAt) {
			out = append(out, co)
		}
	}
	return out
}
