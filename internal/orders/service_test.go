package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/derrick-solstice/e-commerce-order/internal/apperr"
	"github.com/derrick-solstice/e-commerce-order/internal/lines"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- stubs ---

type memRepo struct {
	mu          sync.Mutex
	orders      map[int64]Order
	next        int64
	insertErr   error
	deleteCalls int
	updateCalls int
}

func newMemRepo(orders ...Order) *memRepo {
	r := &memRepo{orders: map[int64]Order{}, next: 1}
	for _, o := range orders {
		r.orders[o.OrderNumber] = o
		if o.OrderNumber >= r.next {
			r.next = o.OrderNumber + 1
		}
	}
	return r
}

func (r *memRepo) Insert(ctx context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return Order{}, r.insertErr
	}
	o.OrderNumber = r.next
	r.next++
	r.orders[o.OrderNumber] = o
	return o, nil
}

func (r *memRepo) FindAll(ctx context.Context) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Order, 0, len(r.orders))
	for n := int64(0); n < r.next; n++ {
		if o, ok := r.orders[n]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memRepo) FindByNumber(ctx context.Context, orderNumber int64) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNumber]
	if !ok {
		return Order{}, fmt.Errorf("order %d: %w", orderNumber, apperr.ErrNotFound)
	}
	return o, nil
}

func (r *memRepo) Update(ctx context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	r.orders[o.OrderNumber] = o
	return o, nil
}

func (r *memRepo) DeleteByNumber(ctx context.Context, orderNumber int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	delete(r.orders, orderNumber)
	return nil
}

type stubLines struct {
	mu            sync.Mutex
	lines         map[int64][]lines.Line
	shipmentsText string
	err           error
	calls         int
}

func (s *stubLines) GetAllLinesForOrder(ctx context.Context, orderNumber int64) ([]lines.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.lines[orderNumber], nil
}

func (s *stubLines) GetAllShipmentsForLines(ctx context.Context, ls []lines.Line) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.shipmentsText, nil
}

type stubAccounts struct {
	mu           sync.Mutex
	accounts     map[int64]string
	addresses    map[[2]int64]string
	err          error
	accountCalls []int64
	addressCalls int
}

func (s *stubAccounts) GetAccount(ctx context.Context, accountID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountCalls = append(s.accountCalls, accountID)
	if s.err != nil {
		return "", s.err
	}
	return s.accounts[accountID], nil
}

func (s *stubAccounts) GetAddress(ctx context.Context, accountID, addressID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addressCalls++
	if s.err != nil {
		return "", s.err
	}
	return s.addresses[[2]int64{accountID, addressID}], nil
}

type recordingNotifier struct {
	events []Event
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, e Event) error {
	n.events = append(n.events, e)
	return n.err
}

// --- fixtures ---

func mockOrder() Order {
	return Order{
		OrderNumber:       12345,
		OrderDate:         NewDate(2018, time.August, 15),
		TotalPrice:        decimal.Zero,
		AccountID:         1,
		ShippingAddressID: 1,
	}
}

func mockLines() []lines.Line {
	out := make([]lines.Line, 0, 6)
	for id := int64(15); id <= 20; id++ {
		out = append(out, lines.Line{
			LineItemID:  id,
			OrderNumber: 12345,
			Quantity:    20,
			Price:       decimal.RequireFromString("150.00"),
			ProductID:   5,
			ShipmentID:  67890,
		})
	}
	return out
}

func newFixture() (*Service, *memRepo, *stubLines, *stubAccounts, *recordingNotifier) {
	repo := newMemRepo(mockOrder())
	ls := &stubLines{
		lines:         map[int64][]lines.Line{12345: mockLines()},
		shipmentsText: "[ TESTING ARRAY ]",
	}
	accounts := &stubAccounts{
		accounts:  map[int64]string{1: "{TestAccountData}", 5: "ACCOUNT EXISTS"},
		addresses: map[[2]int64]string{{1, 1}: "{TestShippingAddress}"},
	}
	notifier := &recordingNotifier{}
	return NewService(repo, ls, accounts, notifier), repo, ls, accounts, notifier
}

// --- tests ---

func TestGetOneOrder_HappyPath(t *testing.T) {
	svc, _, ls, _, _ := newFixture()

	found, err := svc.GetOneOrder(context.Background(), 12345)
	require.NoError(t, err)

	assert.Equal(t, int64(1), found.AccountID)
	assert.Equal(t, "{TestAccountData}", found.Account)
	assert.Equal(t, int64(1), found.ShippingAddressID)
	assert.Equal(t, "{TestShippingAddress}", found.ShippingAddress)
	assert.Equal(t, "2018-08-15", found.OrderDate.String())
	assert.Len(t, found.LineItems, 6)
	assert.Equal(t, "[ TESTING ARRAY ]", found.Shipments)

	if diff := cmp.Diff(ls.lines[12345], found.LineItems); diff != "" {
		t.Fatalf("line items differ from line service result (-want +got):\n%s", diff)
	}
}

func TestGetOneOrder_NotFoundSkipsEnrichment(t *testing.T) {
	svc, _, ls, accounts, _ := newFixture()

	_, err := svc.GetOneOrder(context.Background(), 99999)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Zero(t, ls.calls)
	assert.Empty(t, accounts.accountCalls)
	assert.Zero(t, accounts.addressCalls)
}

func TestGetOneOrder_UpstreamFailureFailsRequest(t *testing.T) {
	svc, _, _, accounts, _ := newFixture()
	accounts.err = fmt.Errorf("%w: account service returned 503", apperr.ErrUpstreamUnavailable)

	_, err := svc.GetOneOrder(context.Background(), 12345)
	require.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}

func TestGetOneOrder_LineFailureFailsRequest(t *testing.T) {
	svc, _, ls, _, _ := newFixture()
	ls.err = fmt.Errorf("%w: query lines", apperr.ErrPersistence)

	_, err := svc.GetOneOrder(context.Background(), 12345)
	require.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestGetAllOrders_NotEnriched(t *testing.T) {
	var seed []Order
	for i := int64(0); i < 4; i++ {
		o := mockOrder()
		o.OrderNumber = 12342 + i
		seed = append(seed, o)
	}
	repo := newMemRepo(seed...)
	ls := &stubLines{}
	accounts := &stubAccounts{}
	svc := NewService(repo, ls, accounts, nil)

	found, err := svc.GetAllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 4)
	assert.Equal(t, int64(12345), found[3].OrderNumber)

	for _, o := range found {
		assert.Empty(t, o.Account)
		assert.Empty(t, o.ShippingAddress)
		assert.Nil(t, o.LineItems)
		assert.Empty(t, o.Shipments)
	}
	assert.Zero(t, ls.calls)
	assert.Empty(t, accounts.accountCalls)
}

func TestCreateOrder_HappyPath(t *testing.T) {
	svc, repo, _, accounts, notifier := newFixture()
	repo.next = 12346

	saved, err := svc.CreateOrder(context.Background(), Order{
		OrderDate:         NewDate(2018, time.August, 15),
		AccountID:         1,
		ShippingAddressID: 1,
		// transient fields from a client are dropped
		Account:   "forged",
		LineItems: mockLines(),
		Shipments: "forged",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12346), saved.OrderNumber)
	assert.Equal(t, "2018-08-15", saved.OrderDate.String())
	assert.True(t, saved.TotalPrice.IsZero())
	assert.Empty(t, saved.Account)
	assert.Nil(t, saved.LineItems)
	assert.Empty(t, saved.Shipments)
	assert.Equal(t, []int64{1}, accounts.accountCalls)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, EventOrderCreated, notifier.events[0].Type)
	assert.Equal(t, int64(12346), notifier.events[0].OrderNumber)
}

func TestCreateOrder_DefaultsOrderDateToToday(t *testing.T) {
	svc, _, _, _, _ := newFixture()
	svc.nowFunc = func() time.Time { return time.Date(2024, time.March, 2, 23, 10, 0, 0, time.UTC) }

	saved, err := svc.CreateOrder(context.Background(), Order{AccountID: 1, ShippingAddressID: 1})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", saved.OrderDate.String())
}

func TestCreateOrder_AccountLookupFailureStoresNothing(t *testing.T) {
	svc, repo, _, accounts, notifier := newFixture()
	accounts.err = fmt.Errorf("%w: dial tcp: connection refused", apperr.ErrUpstreamUnavailable)

	_, err := svc.CreateOrder(context.Background(), Order{AccountID: 1, ShippingAddressID: 1})
	require.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)

	all, _ := repo.FindAll(context.Background())
	assert.Len(t, all, 1)
	assert.Empty(t, notifier.events)
}

func TestCreateOrder_PersistenceFailure(t *testing.T) {
	svc, repo, _, _, _ := newFixture()
	repo.insertErr = fmt.Errorf("%w: put order: throttled", apperr.ErrPersistence)

	_, err := svc.CreateOrder(context.Background(), Order{AccountID: 1, ShippingAddressID: 1})
	require.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestUpdateOrder_HappyPath(t *testing.T) {
	svc, _, _, accounts, notifier := newFixture()

	updated, err := svc.UpdateOrder(context.Background(), 12345, Patch{AccountID: 5, ShippingAddressID: 15})
	require.NoError(t, err)

	assert.Equal(t, int64(12345), updated.OrderNumber)
	assert.Equal(t, "2018-08-15", updated.OrderDate.String())
	assert.True(t, updated.TotalPrice.Equal(decimal.Zero))
	assert.Equal(t, int64(5), updated.AccountID)
	assert.Equal(t, int64(15), updated.ShippingAddressID)
	assert.Equal(t, []int64{5}, accounts.accountCalls)

	// no read-side enrichment
	assert.Empty(t, updated.Account)
	assert.Nil(t, updated.LineItems)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, EventOrderUpdated, notifier.events[0].Type)
}

func TestUpdateOrder_OnlyReferencesChange(t *testing.T) {
	svc, repo, _, _, _ := newFixture()
	before := repo.orders[12345]

	_, err := svc.UpdateOrder(context.Background(), 12345, Patch{ShippingAddressID: 15})
	require.NoError(t, err)

	after := repo.orders[12345]
	want := before
	want.ShippingAddressID = 15
	if diff := cmp.Diff(want, after); diff != "" {
		t.Fatalf("unexpected stored order (-want +got):\n%s", diff)
	}
}

func TestUpdateOrder_EmptyAccountTextAccepted(t *testing.T) {
	svc, _, _, _, _ := newFixture()

	// account 9 has no text in the stub
	updated, err := svc.UpdateOrder(context.Background(), 12345, Patch{AccountID: 9})
	require.NoError(t, err)
	assert.Equal(t, int64(9), updated.AccountID)
}

func TestUpdateOrder_NotFound(t *testing.T) {
	svc, repo, _, accounts, _ := newFixture()

	_, err := svc.UpdateOrder(context.Background(), 1, Patch{AccountID: 5})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, accounts.accountCalls)
	assert.Zero(t, repo.updateCalls)
}

func TestDeleteOrder_HappyPath(t *testing.T) {
	svc, repo, _, _, notifier := newFixture()

	require.NoError(t, svc.DeleteOrder(context.Background(), 12345))
	assert.Equal(t, 1, repo.deleteCalls)
	_, err := repo.FindByNumber(context.Background(), 12345)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, EventOrderDeleted, notifier.events[0].Type)
}

func TestDeleteOrder_NotFoundSkipsDelete(t *testing.T) {
	svc, repo, _, _, _ := newFixture()

	err := svc.DeleteOrder(context.Background(), 777)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, repo.deleteCalls)
}

func TestNotifierFailureDoesNotFailRequest(t *testing.T) {
	svc, _, _, _, notifier := newFixture()
	notifier.err = errors.New("queue unavailable")

	_, err := svc.UpdateOrder(context.Background(), 12345, Patch{AccountID: 5})
	require.NoError(t, err)
}
