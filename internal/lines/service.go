package lines

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Repository is the persistence port for lines.
type Repository interface {
	Insert(ctx context.Context, l Line) (Line, error)
	FindByOrderNumber(ctx context.Context, orderNumber int64) ([]Line, error)
	FindByID(ctx context.Context, lineItemID int64) (Line, error)
	DeleteByID(ctx context.Context, lineItemID int64) error
}

// ShipmentLookup fetches the opaque shipment text for one shipment.
type ShipmentLookup interface {
	GetShipment(ctx context.Context, shipmentID int64) (string, error)
}

// Service implements line CRUD and the shipment summary used by order reads.
type Service struct {
	repo      Repository
	shipments ShipmentLookup
}

// NewService wires a line Service.
func NewService(repo Repository, shipments ShipmentLookup) *Service {
	return &Service{repo: repo, shipments: shipments}
}

// SaveLine persists a line whose OrderNumber is already set by the caller.
func (s *Service) SaveLine(ctx context.Context, l Line) (Line, error) {
	return s.repo.Insert(ctx, l)
}

func (s *Service) GetAllLinesForOrder(ctx context.Context, orderNumber int64) ([]Line, error) {
	return s.repo.FindByOrderNumber(ctx, orderNumber)
}

func (s *Service) GetOneLineByID(ctx context.Context, lineItemID int64) (Line, error) {
	return s.repo.FindByID(ctx, lineItemID)
}

func (s *Service) DeleteLine(ctx context.Context, lineItemID int64) error {
	return s.repo.DeleteByID(ctx, lineItemID)
}

// GetAllShipmentsForLines looks up each distinct shipment referenced by lines, in
// ascending shipment id order, and joins the texts as "[a, b, ...]". Lines that have
// not shipped are skipped.
func (s *Service) GetAllShipmentsForLines(ctx context.Context, lines []Line) (string, error) {
	ids := lo.Uniq(lo.FilterMap(lines, func(l Line, _ int) (int64, bool) {
		return l.ShipmentID, l.ShipmentID != 0
	}))
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	texts := make([]string, 0, len(ids))
	for _, id := range ids {
		text, err := s.shipments.GetShipment(ctx, id)
		if err != nil {
			return "", fmt.Errorf("shipment %d: %w", id, err)
		}
		texts = append(texts, text)
	}
	return "[" + strings.Join(texts, ", ") + "]", nil
}
