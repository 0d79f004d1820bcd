package lines

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/derrick-solstice/e-commerce-order/internal/apperr"
	"github.com/derrick-solstice/e-commerce-order/internal/aws/dynamotest"
	"github.com/derrick-solstice/e-commerce-order/internal/sequence"
)

func newTestStore() (*Store, *dynamotest.Fake) {
	fake := dynamotest.New(map[string]string{
		"lines":     KeyAttribute,
		"sequences": sequence.KeyAttribute,
	})
	ids := sequence.NewAllocator(fake, "sequences")
	return NewStore(fake, "lines", "order_number-index", ids), fake
}

func TestInsert_FindByID_DeleteByID(t *testing.T) {
	s, fake := newTestStore()
	ctx := context.Background()

	saved, err := s.Insert(ctx, Line{OrderNumber: 12345, Quantity: 20, Price: decimal.RequireFromString("150.00"), ProductID: 5})
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if saved.LineItemID != 1 {
		t.Fatalf("expected first line id 1, got %d", saved.LineItemID)
	}

	// price is stored as its decimal string
	item := fake.Item("lines", "1")
	if p, ok := item["price"].(*types.AttributeValueMemberS); !ok || p.Value != "150" {
		t.Fatalf("price not stored as decimal string: %+v", item["price"])
	}

	got, err := s.FindByID(ctx, saved.LineItemID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.OrderNumber != 12345 || got.Quantity != 20 || !got.Price.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected line: %+v", got)
	}

	if err := s.DeleteByID(ctx, saved.LineItemID); err != nil {
		t.Fatalf("DeleteByID error: %v", err)
	}
	if _, err := s.FindByID(ctx, saved.LineItemID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	// deleting again is fine
	if err := s.DeleteByID(ctx, saved.LineItemID); err != nil {
		t.Fatalf("second DeleteByID error: %v", err)
	}
}

func TestFindByOrderNumber_FiltersAndOrders(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	for _, orderNumber := range []int64{7, 8, 7, 7} {
		if _, err := s.Insert(ctx, Line{OrderNumber: orderNumber, Quantity: 1, ProductID: 9}); err != nil {
			t.Fatalf("Insert error: %v", err)
		}
	}

	got, err := s.FindByOrderNumber(ctx, 7)
	if err != nil {
		t.Fatalf("FindByOrderNumber error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(got))
	}
	for i, want := range []int64{1, 3, 4} {
		if got[i].LineItemID != want {
			t.Fatalf("line %d: expected id %d, got %d", i, want, got[i].LineItemID)
		}
	}

	none, err := s.FindByOrderNumber(ctx, 99)
	if err != nil {
		t.Fatalf("FindByOrderNumber error: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func TestStore_PersistenceErrors(t *testing.T) {
	s, fake := newTestStore()
	ctx := context.Background()
	boom := errors.New("dynamo down")

	fake.FailOn["GetItem"] = boom
	if _, err := s.FindByID(ctx, 1); !errors.Is(err, apperr.ErrPersistence) || !errors.Is(err, boom) {
		t.Fatalf("expected persistence error wrapping cause, got %v", err)
	}

	fake.FailOn["UpdateItem"] = boom
	if _, err := s.Insert(ctx, Line{OrderNumber: 1}); !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected persistence error on id allocation, got %v", err)
	}

	fake.FailOn["Query"] = boom
	if _, err := s.FindByOrderNumber(ctx, 1); !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected persistence error on query, got %v", err)
	}
}
