package order

import (
	"os"
	"strings"

	"orderdag/internal/graph"
	"orderdag/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	switch Side(strings.ToLower(string(s))) {
	case SideBuy, SideSell:
		return true
	default:
		return false
	}
}

// Order is the payload scheduled for one work item.
type Order struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId"`
	Market    string          `json:"market"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	DependsOn []string        `json:"dependsOn"`
}

// Workload is the on-disk list of orders, in insertion order.
type Workload struct {
	Orders []Order `json:"orders"`
}

// LoadWorkload reads a JSON workload file.
func LoadWorkload(path string) (Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workload{}, errors.Wrap(err, "read workload")
	}
	return DecodeWorkload(data)
}

// DecodeWorkload parses a JSON workload.
func DecodeWorkload(data []byte) (Workload, error) {
	var w Workload
	if err := sonic.Unmarshal(data, &w); err != nil {
		return Workload{}, errors.Wrap(err, "unmarshal workload")
	}
	return w, nil
}

// Enqueue adds the orders to store in workload order. It stops at the first
// rejected order and returns how many were added.
func Enqueue(store *graph.Store, orders []Order) (int, error) {
	for i, o := range orders {
		if err := store.Add(o.ID, o, o.DependsOn...); err != nil {
			return i, errors.Wrapf(err, "enqueue order %d", i)
		}
	}
	return len(orders), nil
}

func (o Order) validate() error {
	if o.Market == "" {
		return errors.Wrapf(exception.ErrInvalidArgument, "order %s: empty market", o.ID)
	}
	if !o.Side.Valid() {
		return errors.Wrapf(exception.ErrInvalidArgument, "order %s: unknown side %q", o.ID, o.Side)
	}
	if o.Quantity.Sign() <= 0 {
		return errors.Wrapf(exception.ErrInvalidArgument, "order %s: quantity %s must be positive", o.ID, o.Quantity.String())
	}
	if o.Price.Sign() <= 0 {
		return errors.Wrapf(exception.ErrInvalidArgument, "order %s: price %s must be positive", o.ID, o.Price.String())
	}
	return nil
}
