package orders

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/derrick-solstice/e-commerce-order/internal/lines"
)

// Repository is the persistence port for orders.
type Repository interface {
	Insert(ctx context.Context, o Order) (Order, error)
	FindAll(ctx context.Context) ([]Order, error)
	FindByNumber(ctx context.Context, orderNumber int64) (Order, error)
	Update(ctx context.Context, o Order) (Order, error)
	DeleteByNumber(ctx context.Context, orderNumber int64) error
}

// LineSource supplies the line items and shipment summary of an order.
type LineSource interface {
	GetAllLinesForOrder(ctx context.Context, orderNumber int64) ([]lines.Line, error)
	GetAllShipmentsForLines(ctx context.Context, ls []lines.Line) (string, error)
}

// AccountLookup fetches opaque account and address text from the account service.
type AccountLookup interface {
	GetAccount(ctx context.Context, accountID int64) (string, error)
	GetAddress(ctx context.Context, accountID, addressID int64) (string, error)
}

// Service orchestrates the order store, the line service and the account service.
type Service struct {
	repo     Repository
	lines    LineSource
	accounts AccountLookup
	notifier Notifier // optional
	nowFunc  func() time.Time
}

// NewService wires an order Service. notifier may be nil to disable lifecycle events.
func NewService(repo Repository, lineSource LineSource, accounts AccountLookup, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		lines:    lineSource,
		accounts: accounts,
		notifier: notifier,
		nowFunc:  time.Now,
	}
}

// CreateOrder checks that the account can be looked up, then stores the order. Only
// persisted fields of input are used; the order date defaults to today.
func (s *Service) CreateOrder(ctx context.Context, input Order) (Order, error) {
	// validate-only: the account text is not attached on create
	if _, err := s.accounts.GetAccount(ctx, input.AccountID); err != nil {
		return Order{}, fmt.Errorf("account %d: %w", input.AccountID, err)
	}

	o := storedView(input)
	o.OrderNumber = 0
	if o.OrderDate.IsZero() {
		o.OrderDate = DateOf(s.nowFunc())
	}

	saved, err := s.repo.Insert(ctx, o)
	if err != nil {
		return Order{}, err
	}

	s.notify(ctx, EventOrderCreated, saved)
	return saved, nil
}

// GetAllOrders returns every order without enrichment.
func (s *Service) GetAllOrders(ctx context.Context) ([]Order, error) {
	return s.repo.FindAll(ctx)
}

// GetOneOrder returns the order enriched with its line items, shipment summary,
// account and shipping address. Any failed lookup fails the whole read.
func (s *Service) GetOneOrder(ctx context.Context, orderNumber int64) (Order, error) {
	o, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return Order{}, err
	}

	var (
		items     []lines.Line
		shipments string
		account   string
		address   string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ls, err := s.lines.GetAllLinesForOrder(gctx, orderNumber)
		if err != nil {
			return fmt.Errorf("lines for order %d: %w", orderNumber, err)
		}
		text, err := s.lines.GetAllShipmentsForLines(gctx, ls)
		if err != nil {
			return fmt.Errorf("shipments for order %d: %w", orderNumber, err)
		}
		items, shipments = ls, text
		return nil
	})
	g.Go(func() error {
		text, err := s.accounts.GetAccount(gctx, o.AccountID)
		if err != nil {
			return fmt.Errorf("account %d: %w", o.AccountID, err)
		}
		account = text
		return nil
	})
	g.Go(func() error {
		text, err := s.accounts.GetAddress(gctx, o.AccountID, o.ShippingAddressID)
		if err != nil {
			return fmt.Errorf("address %d/%d: %w", o.AccountID, o.ShippingAddressID, err)
		}
		address = text
		return nil
	})
	if err := g.Wait(); err != nil {
		return Order{}, err
	}

	o.LineItems = items
	o.Shipments = shipments
	o.Account = account
	o.ShippingAddress = address
	return o, nil
}

// UpdateOrder applies the non-zero fields of patch to the stored order. Only the
// account and shipping address references can change.
func (s *Service) UpdateOrder(ctx context.Context, orderNumber int64, patch Patch) (Order, error) {
	existing, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return Order{}, err
	}

	if patch.AccountID != 0 {
		existing.AccountID = patch.AccountID
	}
	if patch.ShippingAddressID != 0 {
		existing.ShippingAddressID = patch.ShippingAddressID
	}

	// reachability only; an empty account text is accepted
	if _, err := s.accounts.GetAccount(ctx, existing.AccountID); err != nil {
		return Order{}, fmt.Errorf("account %d: %w", existing.AccountID, err)
	}

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return Order{}, err
	}

	s.notify(ctx, EventOrderUpdated, updated)
	return updated, nil
}

// DeleteOrder removes an existing order. Lines of the order are kept.
func (s *Service) DeleteOrder(ctx context.Context, orderNumber int64) error {
	existing, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByNumber(ctx, orderNumber); err != nil {
		return err
	}

	s.notify(ctx, EventOrderDeleted, existing)
	return nil
}

func (s *Service) notify(ctx context.Context, t EventType, o Order) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, Event{Type: t, OrderNumber: o.OrderNumber, AccountID: o.AccountID})
	if err != nil {
		log.Printf("[orders] failed to notify %s order=%d: %v", t, o.OrderNumber, err)
	}
}
