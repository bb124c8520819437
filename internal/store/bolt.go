package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	cartsBucket  = []byte("carts")
	ordersBucket = []byte("orders")
)

const maxCartLines = 100

// CartLine is one product added from a chat.
type CartLine struct {
	ProductID string    `json:"product_id"`
	AddedAt   time.Time `json:"added_at"`
}

// Order is a cart the customer confirmed.
type Order struct {
	ID          string     `json:"id"`
	Phone       string     `json:"phone"`
	Lines       []CartLine `json:"lines"`
	ConfirmedAt time.Time  `json:"confirmed_at"`
}

// Ledger records what customers add and confirm. The conversation replies
// never depend on it.
type Ledger interface {
	AddToCart(phone, productID string, at time.Time) error
	Cart(phone string) ([]CartLine, error)
	ConfirmOrder(phone string, at time.Time) (*Order, error)
	CancelOrder(phone string) (int, error)
	ListOrders() ([]Order, error)
	Close() error
}

type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(cartsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(ordersBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func getCart(tx *bolt.Tx, phone string) ([]CartLine, error) {
	var lines []CartLine
	v := tx.Bucket(cartsBucket).Get([]byte(phone))
	if v == nil {
		return nil, nil
	}
	if err := json.Unmarshal(v, &lines); err != nil {
		return nil, fmt.Errorf("decoding cart for %s: %w", phone, err)
	}
	return lines, nil
}

func (s *BoltStore) AddToCart(phone, productID string, at time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		lines, err := getCart(tx, phone)
		if err != nil {
			return err
		}
		lines = append(lines, CartLine{ProductID: productID, AddedAt: at})
		if len(lines) > maxCartLines {
			lines = lines[len(lines)-maxCartLines:]
		}
		data, err := json.Marshal(lines)
		if err != nil {
			return err
		}
		return tx.Bucket(cartsBucket).Put([]byte(phone), data)
	})
}

func (s *BoltStore) Cart(phone string) ([]CartLine, error) {
	var lines []CartLine
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		lines, err = getCart(tx, phone)
		return err
	})
	return lines, err
}

// ConfirmOrder turns the sender's cart into an order and empties the cart.
// It returns nil when the cart is empty.
func (s *BoltStore) ConfirmOrder(phone string, at time.Time) (*Order, error) {
	var order *Order
	err := s.db.Update(func(tx *bolt.Tx) error {
		lines, err := getCart(tx, phone)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}

		o := Order{
			ID:          uuid.NewString(),
			Phone:       phone,
			Lines:       lines,
			ConfirmedAt: at,
		}
		data, err := json.Marshal(o)
		if err != nil {
			return err
		}
		if err := tx.Bucket(ordersBucket).Put([]byte(o.ID), data); err != nil {
			return err
		}
		if err := tx.Bucket(cartsBucket).Delete([]byte(phone)); err != nil {
			return err
		}
		order = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder empties the sender's cart and reports how many lines it dropped.
func (s *BoltStore) CancelOrder(phone string) (int, error) {
	var dropped int
	err := s.db.Update(func(tx *bolt.Tx) error {
		lines, err := getCart(tx, phone)
		if err != nil {
			return err
		}
		dropped = len(lines)
		return tx.Bucket(cartsBucket).Delete([]byte(phone))
	})
	return dropped, err
}

// ListOrders returns all confirmed orders, oldest first.
func (s *BoltStore) ListOrders() ([]Order, error) {
	orders := []Order{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(ordersBucket).ForEach(func(_, v []byte) error {
			var o Order
			if err := json.Unmarshal(v, &o); err != nil {
				return err
			}
			orders = append(orders, o)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].ConfirmedAt.Before(orders[j].ConfirmedAt)
	})
	return orders, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

var _ Ledger = (*BoltStore)(nil)
