package session

import (
	"context"

	"github.com/tillsync/tillsync/internal/record"
	"github.com/tillsync/tillsync/internal/snapshot"
)

// Transaction types that carry a stock effect.
const (
	txnSale     = "sale"
	txnPurchase = "purchase"
)

// CreateTransaction records a sale or purchase.
//
// After the transaction persists, a line-item snapshot (the item's name
// and prices at the time of the transaction) is stored locally so
// historical rows stay readable after the item changes, and the
// referenced item's stock is adjusted: a sale subtracts quantity, a
// purchase adds it, both clamped at zero.
func (e *Engine) CreateTransaction(ctx context.Context, txn record.Record) (record.Record, error) {
	committed, err := e.create(ctx, "transactions", txn)
	if err != nil {
		return nil, err
	}

	e.snapshots.Save(committed.ID(), e.lineItemDetail(committed))

	if delta := stockEffect(committed); delta != 0 {
		itemID, _ := committed["item_id"].(string)
		if itemID != "" {
			if _, err := e.AdjustStock(ctx, itemID, delta); err != nil {
				return committed, err
			}
		}
	}

	return committed, nil
}

// UpdateTransaction applies payload to a transaction and replaces its
// line-item snapshot. The snapshot follows the owner's mutation machine:
// it is replaced optimistically alongside the cache write, re-captured
// from the committed row on success, and restored to its prior version
// when the remote update rolls back.
func (e *Engine) UpdateTransaction(ctx context.Context, id string, payload record.Record) (record.Record, error) {
	priorSnap, hadSnap := e.snapshots.Read()[id]

	if cached, ok := e.cache.get("transactions", id); ok {
		e.snapshots.Save(id, e.lineItemDetail(cached.Merge(payload)))
	}

	committed, err := e.update(ctx, "transactions", id, payload)
	if err != nil {
		if hadSnap {
			e.snapshots.Save(id, priorSnap)
		} else {
			e.snapshots.Remove(id)
		}
		return nil, err
	}

	e.snapshots.Save(id, e.lineItemDetail(committed))
	return committed, nil
}

// RemoveTransaction deletes a transaction, first reversing its stock
// effect: deleting a sale restores the quantity, deleting a purchase
// removes it. The reversal uses the same clamped adjustment and runs
// before the deletion is issued.
func (e *Engine) RemoveTransaction(ctx context.Context, id string) error {
	txn, ok := e.cache.get("transactions", id)
	if ok {
		if delta := stockEffect(txn); delta != 0 {
			itemID, _ := txn["item_id"].(string)
			if itemID != "" {
				if _, err := e.AdjustStock(ctx, itemID, -delta); err != nil {
					return err
				}
			}
		}
	}

	if err := e.remove(ctx, "transactions", id); err != nil {
		return err
	}
	e.snapshots.Remove(id)
	return nil
}

// Transactions returns the cached transactions merged with their local
// line-item snapshots (canonical fields win when present).
func (e *Engine) Transactions() []record.Record {
	return snapshot.MergeAll(e.cache.list("transactions"), e.snapshots.Read())
}

// LoadTransactions refreshes the transactions cache from the store and
// returns the merged view. On failure the stale cache is served.
func (e *Engine) LoadTransactions(ctx context.Context) []record.Record {
	return snapshot.MergeAll(e.load(ctx, "transactions"), e.snapshots.Read())
}

// stockEffect returns the signed stock delta a transaction applied when
// it was created: negative for sales, positive for purchases, zero for
// anything else.
func stockEffect(txn record.Record) int64 {
	qty := asInt64(txn["quantity"])
	switch txn["type"] {
	case txnSale:
		return -qty
	case txnPurchase:
		return qty
	}
	return 0
}

// lineItemDetail captures the denormalized fields worth keeping alongside
// a transaction: the item's name and prices as they were at commit time.
// Binary fields never make it into snapshots.
func (e *Engine) lineItemDetail(txn record.Record) record.Record {
	detail := record.Record{}
	itemID, _ := txn["item_id"].(string)
	if itemID == "" {
		return detail
	}
	item, ok := e.cache.get("inventory", itemID)
	if !ok {
		return detail
	}
	for _, field := range []string{"name", "barcode", "sellingPrice", "costPrice", "unit"} {
		if record.Present(item[field]) {
			detail[field] = item[field]
		}
	}
	return detail
}
