package service

import (
	"context"
	"fmt"
	"log"

	"cantina/internal/model"
	"cantina/internal/repository"

	"gorm.io/gorm"
)

// InventoryService manages the catalog outside the order path: item CRUD
// and manual stock corrections. Manual corrections follow the same
// lock-adjust-audit discipline as order commit.
type InventoryService struct {
	db        *gorm.DB
	stockRepo *repository.StockRepository
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{
		db:        db,
		stockRepo: repository.NewStockRepository(db),
	}
}

type CreateItemRequest struct {
	Name           string
	Category       string
	UnitPriceCents int64
	InitialStock   int
	MinThreshold   int
}

func (s *InventoryService) CreateItem(ctx context.Context, req *CreateItemRequest) (*model.StockItem, error) {
	if req.Name == "" {
		return nil, validationErrorf("item name is required")
	}
	if req.UnitPriceCents <= 0 {
		return nil, validationErrorf("unit price must be positive")
	}
	if req.InitialStock < 0 || req.MinThreshold < 0 {
		return nil, validationErrorf("stock and threshold must not be negative")
	}

	item := &model.StockItem{
		Name:           req.Name,
		Category:       req.Category,
		UnitPriceCents: req.UnitPriceCents,
		QuantityOnHand: req.InitialStock,
		MinThreshold:   req.MinThreshold,
		Available:      true,
	}
	if err := s.stockRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *InventoryService) GetItem(ctx context.Context, id int64) (*model.StockItem, error) {
	return s.stockRepo.GetByID(ctx, id)
}

func (s *InventoryService) ListItems(ctx context.Context, onlyAvailable bool) ([]*model.StockItem, error) {
	return s.stockRepo.List(ctx, onlyAvailable)
}

func (s *InventoryService) SetAvailability(ctx context.Context, id int64, available bool) error {
	return s.stockRepo.Update(ctx, id, map[string]interface{}{"available": available})
}

func (s *InventoryService) UpdateItem(ctx context.Context, id int64, name string, unitPriceCents int64, minThreshold int) error {
	fields := map[string]interface{}{}
	if name != "" {
		fields["name"] = name
	}
	if unitPriceCents > 0 {
		fields["unit_price_cents"] = unitPriceCents
	}
	if minThreshold >= 0 {
		fields["min_threshold"] = minThreshold
	}
	if len(fields) == 0 {
		return validationErrorf("nothing to update")
	}
	return s.stockRepo.Update(ctx, id, fields)
}

// AdjustStock applies a signed manual correction with an audit movement.
// A correction that would take the quantity negative is rejected.
func (s *InventoryService) AdjustStock(ctx context.Context, id int64, delta int, note string) (*model.StockItem, error) {
	if delta == 0 {
		return nil, validationErrorf("delta must be non-zero")
	}

	var item *model.StockItem
	err := s.db.Transaction(func(tx *gorm.DB) error {
		items, err := s.stockRepo.GetByIDsForUpdate(ctx, tx, []int64{id})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return repository.ErrStockItemNotFound
		}
		item = items[0]

		if item.QuantityOnHand+delta < 0 {
			return &OutOfStockError{
				StockItemID: item.ID,
				Name:        item.Name,
				Requested:   -delta,
				Remaining:   item.QuantityOnHand,
			}
		}
		if err := s.stockRepo.AdjustQuantity(ctx, tx, id, delta); err != nil {
			return err
		}
		movement := &model.InventoryMovement{
			StockItemID:    id,
			Delta:          delta,
			QuantityBefore: item.QuantityOnHand,
			QuantityAfter:  item.QuantityOnHand + delta,
			Reason:         model.MovementReasonManualAdjustment,
			Note:           note,
		}
		if err := s.stockRepo.RecordMovement(ctx, tx, movement); err != nil {
			return fmt.Errorf("record movement: %w", err)
		}
		item.QuantityOnHand += delta
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[InventoryService] stock adjusted: itemID=%d, delta=%d", id, delta)
	return item, nil
}

func (s *InventoryService) ListMovements(ctx context.Context, itemID int64, limit int) ([]*model.InventoryMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.stockRepo.ListMovements(ctx, itemID, limit)
}

// LowStockItems lists available items at or under their reorder point.
func (s *InventoryService) LowStockItems(ctx context.Context) ([]*model.StockItem, error) {
	return s.stockRepo.ListBelowThreshold(ctx)
}
