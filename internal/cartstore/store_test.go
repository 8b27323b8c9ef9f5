package cartstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Davidgwa1996/unidigitalcom/pkg/errors"

	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
	"github.com/Davidgwa1996/unidigitalcom/internal/storage"
	"github.com/Davidgwa1996/unidigitalcom/internal/storage/memory"
)

const testKey = "unidigital.cart.v1"

func product(id, price string) domain.Product {
	return domain.Product{ID: id, Name: "Product " + id, UnitPrice: decimal.RequireFromString(price), Stock: -1}
}

func newStore(t *testing.T, st storage.Storage) *Store {
	t.Helper()
	return newStoreWith(t, st, Options{Policy: domain.DefaultPricingPolicy()})
}

func newStoreWith(t *testing.T, st storage.Storage, opts Options) *Store {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s, err := New(context.Background(), st, opts)
	require.NoError(t, err)
	return s
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestStore_ScenarioA_TotalsAboveThreshold(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStorage())

	require.NoError(t, s.AddItem(ctx, product("p1", "100.00"), 1))
	require.NoError(t, s.AddItem(ctx, product("p2", "49.99"), 2))

	totals := s.Totals()
	assertMoney(t, "199.98", totals.Reference.Subtotal)
	assertMoney(t, "20.00", totals.Reference.Tax)
	assertMoney(t, "0", totals.Reference.Shipping)
	assertMoney(t, "219.98", totals.Reference.GrandTotal)
	assert.Equal(t, 3, totals.Reference.ItemCount)
	assert.Equal(t, "GBP", totals.Currency)
}

func TestStore_ScenarioB_ShippingBelowThreshold(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStorage())

	require.NoError(t, s.AddItem(ctx, product("p1", "10.00"), 1))

	totals := s.Totals()
	assertMoney(t, "10.00", totals.Reference.Subtotal)
	assertMoney(t, "1.00", totals.Reference.Tax)
	assertMoney(t, "9.99", totals.Reference.Shipping)
	assertMoney(t, "20.99", totals.Reference.GrandTotal)
}

func TestStore_ScenarioC_UnsupportedCurrencyKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStorage())
	require.NoError(t, s.SetCurrency(ctx, "EUR"))

	err := s.SetCurrency(ctx, "XYZ")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
	assert.Equal(t, "EUR", s.Currency())
}

func TestStore_ScenarioD_MalformedSnapshotStartsEmpty(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	require.NoError(t, st.SetItem(ctx, testKey, []byte(`{"items":[{"id":"p1",`)))

	before := testutil.ToFloat64(restoresTotal.WithLabelValues(restoreMalformed))
	s := newStore(t, st)

	assert.Empty(t, s.Snapshot().Items)
	assert.Equal(t, "GBP", s.Currency())
	assert.Equal(t, before+1, testutil.ToFloat64(restoresTotal.WithLabelValues(restoreMalformed)))

	_, err := st.GetItem(ctx, testKey)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "malformed snapshot should be discarded")
}

func TestStore_RestoresPersistedCart(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()

	first := newStore(t, st)
	require.NoError(t, first.AddItem(ctx, product("p1", "19.99"), 3))
	require.NoError(t, first.SetCurrency(ctx, "JPY"))

	second := newStore(t, st)
	assert.Equal(t, first.Snapshot(), second.Snapshot())
	assert.Equal(t, "JPY", second.Currency())
	assert.Equal(t, 3, second.QuantityOf("p1"))
}

func TestStore_PersistsUnderVersionedKey(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	s := newStoreWith(t, st, Options{Namespace: "shop", Policy: domain.DefaultPricingPolicy()})

	require.NoError(t, s.AddItem(ctx, product("p1", "5"), 1))

	raw, err := st.GetItem(ctx, "shop.cart.v1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"currency":"GBP","items":[{"id":"p1","name":"Product p1","quantity":1,"unitPrice":5}]}`, string(raw))
}

func TestStore_AddItem_MergesExistingLine(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStorage())

	require.NoError(t, s.AddItem(ctx, product("p1", "10"), 2))
	renamed := product("p1", "12")
	renamed.Name = "Renamed"
	require.NoError(t, s.AddItem(ctx, renamed, 3))

	snap := s.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 5, snap.Items[0].Quantity)
	assert.Equal(t, "Product p1", snap.Items[0].Name)
	assertMoney(t, "10", snap.Items[0].UnitPrice)
}

func TestStore_AddItem_Rejects(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		product domain.Product
		qty     int
		want    error
	}{
		{"zero quantity", product("p1", "1"), 0, domain.ErrInvalidQuantity},
		{"negative quantity", product("p1", "1"), -2, domain.ErrInvalidQuantity},
		{"missing id", product("", "1"), 1, domain.ErrInvalidProduct},
		{"negative price", product("p1", "-1"), 1, domain.ErrInvalidProduct},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.NewStorage()
			s := newStore(t, st)

			err := s.AddItem(ctx, tt.product, tt.qty)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, s.Snapshot().Items)

			_, getErr := st.GetItem(ctx, testKey)
			assert.ErrorIs(t, getErr, apperrors.ErrNotFound, "rejected add must not persist")
		})
	}
}

func TestStore_MaxQuantityPerItem(t *testing.T) {
	ctx := context.Background()
	s := newStoreWith(t, memory.NewStorage(), Options{Policy: domain.DefaultPricingPolicy(), MaxQuantityPerItem: 5})

	require.NoError(t, s.AddItem(ctx, product("p1", "1"), 4))
	assert.ErrorIs(t, s.AddItem(ctx, product("p1", "1"), 2), domain.ErrInvalidQuantity)
	assert.Equal(t, 4, s.QuantityOf("p1"))

	assert.ErrorIs(t, s.UpdateQuantity(ctx, "p1", 6), domain.ErrInvalidQuantity)
	require.NoError(t, s.UpdateQuantity(ctx, "p1", 5))
	assert.Equal(t, 5, s.QuantityOf("p1"))
}

func TestStore_UpdateQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("sets quantity", func(t *testing.T) {
		s := newStore(t, memory.NewStorage())
		require.NoError(t, s.AddItem(ctx, product("p1", "2.50"), 1))

		require.NoError(t, s.UpdateQuantity(ctx, "p1", 4))
		assert.Equal(t, 4, s.QuantityOf("p1"))
		assertMoney(t, "10.00", s.Totals().Reference.Subtotal)
	})

	for _, qty := range []int{0, -1} {
		t.Run("non-positive removes", func(t *testing.T) {
			s := newStore(t, memory.NewStorage())
			require.NoError(t, s.AddItem(ctx, product("p1", "1"), 3))
			require.NoError(t, s.AddItem(ctx, product("p2", "1"), 1))

			require.NoError(t, s.UpdateQuantity(ctx, "p1", qty))
			assert.Equal(t, 0, s.QuantityOf("p1"))
			assert.Equal(t, 1, s.ItemCount())
		})
	}

	t.Run("absent id is a no-op", func(t *testing.T) {
		st := memory.NewStorage()
		s := newStore(t, st)

		require.NoError(t, s.UpdateQuantity(ctx, "missing", 2))
		assert.Empty(t, s.Snapshot().Items)
		_, err := st.GetItem(ctx, testKey)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestStore_RemoveItem(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStorage())
	require.NoError(t, s.AddItem(ctx, product("p1", "1"), 1))
	require.NoError(t, s.AddItem(ctx, product("p2", "2"), 1))
	require.NoError(t, s.AddItem(ctx, product("p3", "3"), 1))

	s.RemoveItem(ctx, "p2")
	s.RemoveItem(ctx, "missing")

	snap := s.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "p1", snap.Items[0].ID)
	assert.Equal(t, "p3", snap.Items[1].ID)
}

func TestStore_ClearKeepsCurrency(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	s := newStore(t, st)
	require.NoError(t, s.SetCurrency(ctx, "USD"))
	require.NoError(t, s.AddItem(ctx, product("p1", "40"), 2))

	s.Clear(ctx)

	assert.Equal(t, 0, s.ItemCount())
	assert.Equal(t, "USD", s.Currency())
	raw, err := st.GetItem(ctx, testKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"currency":"USD"}`, string(raw))
}

func TestStore_DisplayTotalsFollowCurrency(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStorage())
	require.NoError(t, s.AddItem(ctx, product("p1", "100.00"), 1))
	require.NoError(t, s.AddItem(ctx, product("p2", "49.99"), 2))
	require.NoError(t, s.SetCurrency(ctx, "USD"))

	view := s.View()
	assert.Equal(t, "USD", view.Totals.Currency)
	assertMoney(t, "253.97", view.Totals.Display.Subtotal)
	assertMoney(t, "25.40", view.Totals.Display.Tax)
	assertMoney(t, "279.37", view.Totals.Display.GrandTotal)
	assertMoney(t, "219.98", view.Totals.Reference.GrandTotal)
	assert.Equal(t, "USD", view.Snapshot.Currency)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStorage())
	require.NoError(t, s.AddItem(ctx, product("p1", "1"), 1))

	snap := s.Snapshot()
	snap.Items[0].Quantity = 99
	snap.Currency = "EUR"

	assert.Equal(t, 1, s.QuantityOf("p1"))
	assert.Equal(t, "GBP", s.Currency())
}

type failingStorage struct {
	*memory.Storage
	failWrites bool
	failReads  bool
}

func (f *failingStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	if f.failReads {
		return nil, errors.New("storage offline")
	}
	return f.Storage.GetItem(ctx, key)
}

func (f *failingStorage) SetItem(ctx context.Context, key string, value []byte) error {
	if f.failWrites {
		return errors.New("quota exceeded")
	}
	return f.Storage.SetItem(ctx, key, value)
}

func TestStore_WriteFailureKeepsInMemoryState(t *testing.T) {
	ctx := context.Background()
	st := &failingStorage{Storage: memory.NewStorage(), failWrites: true}
	s := newStore(t, st)

	before := testutil.ToFloat64(persistFailures)
	require.NoError(t, s.AddItem(ctx, product("p1", "1"), 2))

	assert.Equal(t, 2, s.QuantityOf("p1"))
	assert.Equal(t, before+1, testutil.ToFloat64(persistFailures))
}

func TestStore_ReadFailureKeepsPersistedCart(t *testing.T) {
	ctx := context.Background()
	st := &failingStorage{Storage: memory.NewStorage()}
	seeded := newStore(t, st)
	require.NoError(t, seeded.AddItem(ctx, product("p1", "10"), 3))
	require.NoError(t, seeded.AddItem(ctx, product("p2", "5"), 1))

	st.failReads = true
	before := testutil.ToFloat64(restoresTotal.WithLabelValues(restoreUnavailable))
	s, err := New(ctx, st, Options{Policy: domain.DefaultPricingPolicy(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Equal(t, 503, apperrors.HTTPStatus(err))
	assert.Equal(t, before+1, testutil.ToFloat64(restoresTotal.WithLabelValues(restoreUnavailable)))

	st.failReads = false
	s = newStore(t, st)
	require.NoError(t, s.AddItem(ctx, product("p3", "1"), 1))

	restored := newStore(t, st)
	snap := restored.Snapshot()
	require.Len(t, snap.Items, 3)
	assert.Equal(t, 3, restored.QuantityOf("p1"))
	assert.Equal(t, 1, restored.QuantityOf("p2"))
	assert.Equal(t, 1, restored.QuantityOf("p3"))
}

func TestStore_AddItem_StockCounter(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStorage())
	lamp := domain.Product{ID: "lamp", Name: "Lamp", UnitPrice: decimal.RequireFromString("2"), Stock: 3}

	require.NoError(t, s.AddItem(ctx, lamp, 2))
	err := s.AddItem(ctx, lamp, 2)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 2, s.QuantityOf("lamp"))
	require.NoError(t, s.AddItem(ctx, lamp, 1))
	assert.Equal(t, 3, s.QuantityOf("lamp"))

	soldOut := domain.Product{ID: "gone", UnitPrice: decimal.RequireFromString("1"), Stock: 0}
	assert.ErrorIs(t, s.AddItem(ctx, soldOut, 1), domain.ErrInsufficientStock)
}

func TestStore_ConcurrentAddsRespectStock(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStorage())
	lamp := domain.Product{ID: "lamp", Name: "Lamp", UnitPrice: decimal.RequireFromString("2"), Stock: 7}

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.AddItem(ctx, lamp, 1) == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 7, accepted)
	assert.Equal(t, 7, s.QuantityOf("lamp"))
}

func TestStore_RemoveOrdered(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	s := newStore(t, st)
	require.NoError(t, s.AddItem(ctx, product("a", "10"), 2))
	require.NoError(t, s.SetCurrency(ctx, "EUR"))
	ordered := s.Snapshot().Items

	// Added after the order was read.
	require.NoError(t, s.AddItem(ctx, product("a", "10"), 1))
	require.NoError(t, s.AddItem(ctx, product("b", "4"), 2))

	var got []Change
	s.Subscribe(func(_ context.Context, c Change) { got = append(got, c) })
	s.RemoveOrdered(ctx, ordered)

	assert.Equal(t, 1, s.QuantityOf("a"))
	assert.Equal(t, 2, s.QuantityOf("b"))
	assert.Equal(t, "EUR", s.Currency())
	require.Len(t, got, 1)
	assert.Equal(t, OpCheckout, got[0].Op)
	assert.Equal(t, 3, newStore(t, st).ItemCount())

	s.RemoveOrdered(ctx, []domain.LineItem{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 5}})
	assert.Empty(t, s.Snapshot().Items)

	s.RemoveOrdered(ctx, []domain.LineItem{{ID: "missing", Quantity: 1}})
	assert.Len(t, got, 2)
}

func TestStore_ListenersSeeChangesInCommitOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStorage())

	var mu sync.Mutex
	var counts []int
	s.Subscribe(func(_ context.Context, c Change) {
		mu.Lock()
		counts = append(counts, c.Snapshot.ItemCount())
		mu.Unlock()
	})

	const workers = 8
	const perWorker = 25
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				_ = s.AddItem(ctx, product("p1", "1"), 1)
			}
		}()
	}
	wg.Wait()

	require.Len(t, counts, workers*perWorker)
	for i, n := range counts {
		assert.Equal(t, i+1, n)
	}
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStorage())

	var got []Change
	unsubscribe := s.Subscribe(func(_ context.Context, c Change) {
		got = append(got, c)
	})

	require.NoError(t, s.AddItem(ctx, product("p1", "10"), 1))
	require.NoError(t, s.SetCurrency(ctx, "EUR"))
	require.NoError(t, s.SetCurrency(ctx, "EUR"))
	s.RemoveItem(ctx, "missing")
	assert.Error(t, s.SetCurrency(ctx, "XYZ"))
	s.Clear(ctx)

	require.Len(t, got, 3)
	assert.Equal(t, OpAdd, got[0].Op)
	assert.Equal(t, 1, got[0].Snapshot.ItemCount())
	assertMoney(t, "20.99", got[0].Totals.Reference.GrandTotal)
	assert.Equal(t, OpCurrency, got[1].Op)
	assert.Equal(t, "EUR", got[1].Totals.Currency)
	assert.Equal(t, OpClear, got[2].Op)
	assert.Empty(t, got[2].Snapshot.Items)

	unsubscribe()
	unsubscribe()
	require.NoError(t, s.AddItem(ctx, product("p2", "1"), 1))
	assert.Len(t, got, 3)
}

func TestStore_SubscriberMayReadStore(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStorage())

	var seen int
	s.Subscribe(func(_ context.Context, _ Change) {
		seen = s.ItemCount()
	})
	require.NoError(t, s.AddItem(ctx, product("p1", "1"), 4))
	assert.Equal(t, 4, seen)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	s := newStore(t, st)

	const workers = 20
	const perWorker = 25
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				_ = s.AddItem(ctx, product("p1", "0.10"), 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, s.QuantityOf("p1"))
	assertMoney(t, "50.00", s.Totals().Reference.Subtotal)

	restored := newStore(t, st)
	assert.Equal(t, workers*perWorker, restored.QuantityOf("p1"))
}
