package aggregate

import (
	"github.com/shopspring/decimal"

	"juicestand/internal/core"
)

var (
	// ProduceYield is the kilograms of produce pressed per liter sold.
	ProduceYield = decimal.RequireFromString("2.5")
	// LowStockThreshold flags a remaining quantity as low (exclusive).
	LowStockThreshold = decimal.NewFromInt(20)

	hundred = decimal.NewFromInt(100)
)

// EstimateInventory derives one stock level per tracked item. Usage is never
// recorded, so it is estimated from sales: produce from liters sold times
// ProduceYield, bottles from the bottles sold in the matching size.
func EstimateInventory(movements []core.InventoryMovement, sales []core.Sale) core.InventoryStatus {
	acquired := make(map[core.Item]decimal.Decimal, 3)
	for _, m := range movements {
		acquired[m.Item] = acquired[m.Item].Add(m.QuantityAdded)
	}

	var liters decimal.Decimal
	var small, large int64
	for _, s := range sales {
		liters = liters.Add(s.LitersSold)
		switch s.BottleSize.Normalized() {
		case core.BottleSizeHalf:
			small += int64(s.BottlesSold)
		case core.BottleSizeLiter:
			large += int64(s.BottlesSold)
		}
	}
	used := map[core.Item]decimal.Decimal{
		core.ItemProduce:      liters.Mul(ProduceYield),
		core.ItemSmallBottles: decimal.NewFromInt(small),
		core.ItemLargeBottles: decimal.NewFromInt(large),
	}

	status := core.InventoryStatus{Levels: make([]core.StockLevel, 0, 3)}
	for _, item := range core.Items() {
		status.Levels = append(status.Levels, stockLevel(item, acquired[item], used[item]))
	}
	return status
}

func stockLevel(item core.Item, acquired, used decimal.Decimal) core.StockLevel {
	remaining := decimal.Max(decimal.Zero, acquired.Sub(used))
	return core.StockLevel{
		Item:      item,
		Acquired:  acquired,
		Used:      used,
		Remaining: remaining,
		Low:       remaining.IsPositive() && remaining.LessThan(LowStockThreshold),
		Percent:   percentOf(remaining, acquired),
	}
}

// percentOf returns part/total as a percentage clamped to [0, 100], or zero
// when total is zero.
func percentOf(part, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	p := part.Div(total).Mul(hundred).Round(2)
	return decimal.Min(hundred, decimal.Max(decimal.Zero, p))
}
