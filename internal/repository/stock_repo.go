package repository

import (
	"context"
	"errors"

	"cantina/internal/model"

	"gorm.io/gorm"
)

type StockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) Create(ctx context.Context, item *model.StockItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *StockRepository) GetByID(ctx context.Context, id int64) (*model.StockItem, error) {
	var item model.StockItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStockItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetByIDsForUpdate locks the requested rows in ascending id order so two
// concurrent orders touching overlapping items always acquire locks in the
// same sequence and cannot deadlock each other.
func (r *StockRepository) GetByIDsForUpdate(ctx context.Context, tx *gorm.DB, ids []int64) ([]*model.StockItem, error) {
	var items []*model.StockItem
	err := forUpdate(tx.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// AdjustQuantity applies delta with a guard that the result stays >= 0.
// RowsAffected == 0 under the row lock means the guard failed, i.e. the
// decrement would have gone negative.
func (r *StockRepository) AdjustQuantity(ctx context.Context, tx *gorm.DB, id int64, delta int) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.StockItem{}).
		Where("id = ? AND quantity_on_hand + ? >= 0", id, delta).
		Updates(map[string]interface{}{
			"quantity_on_hand": gorm.Expr("quantity_on_hand + ?", delta),
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}

func (r *StockRepository) RecordMovement(ctx context.Context, tx *gorm.DB, movement *model.InventoryMovement) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(movement).Error
}

func (r *StockRepository) ListMovements(ctx context.Context, stockItemID int64, limit int) ([]*model.InventoryMovement, error) {
	var movements []*model.InventoryMovement
	err := r.db.WithContext(ctx).
		Where("stock_item_id = ?", stockItemID).
		Order("id DESC").
		Limit(limit).
		Find(&movements).Error
	return movements, err
}

func (r *StockRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.StockItem{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStockItemNotFound
	}
	return nil
}

func (r *StockRepository) List(ctx context.Context, onlyAvailable bool) ([]*model.StockItem, error) {
	query := r.db.WithContext(ctx).Model(&model.StockItem{})
	if onlyAvailable {
		query = query.Where("available = ?", true)
	}
	var items []*model.StockItem
	err := query.Order("name ASC").Find(&items).Error
	return items, err
}

// ListBelowThreshold returns available items at or under their reorder point.
func (r *StockRepository) ListBelowThreshold(ctx context.Context) ([]*model.StockItem, error) {
	var items []*model.StockItem
	err := r.db.WithContext(ctx).
		Where("available = ? AND quantity_on_hand <= min_threshold", true).
		Order("quantity_on_hand ASC").
		Find(&items).Error
	return items, err
}
