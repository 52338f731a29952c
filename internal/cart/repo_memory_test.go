package cart

import (
	"context"
	"fmt"
	"testing"
)

func TestMemoryRepo_DeleteAndClearCompactInsertionOrder(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		item := Item{ID: fmt.Sprintf("i%d", i), OwnerID: "u1", ProductID: fmt.Sprintf("p%d", i), Quantity: 1}
		if err := repo.UpsertItem(ctx, item); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	for i := 0; i < 5; i++ {
		if err := repo.DeleteItem(ctx, fmt.Sprintf("i%d", i)); err != nil {
			t.Fatalf("delete: %v", err)
		}
	}
	if len(repo.order) != 5 {
		t.Fatalf("deleted ids still tracked, len = %d, want 5", len(repo.order))
	}

	if err := repo.Clear(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(repo.order) != 0 {
		t.Fatalf("cleared ids still tracked, len = %d, want 0", len(repo.order))
	}

	// Churn does not disturb listing for a re-added item.
	if err := repo.UpsertItem(ctx, Item{ID: "i-new", OwnerID: "u1", ProductID: "p0", Quantity: 2}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	items, err := repo.ListItems(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != "i-new" {
		t.Fatalf("unexpected items after churn: %+v", items)
	}
}
