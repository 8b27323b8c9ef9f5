package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// SnapshotKeySuffix is appended to the storefront namespace to form the storage key.
const SnapshotKeySuffix = ".cart.v1"

// SnapshotKey returns the versioned storage key for a namespace, e.g. "unidigital.cart.v1".
func SnapshotKey(namespace string) string {
	return namespace + SnapshotKeySuffix
}

// Known persisted line item fields. Anything else is kept in LineItem.Extra.
var knownItemFields = map[string]struct{}{
	"id":        {},
	"name":      {},
	"unitPrice": {},
	"quantity":  {},
	"image":     {},
	"category":  {},
}

type snapshotDoc struct {
	Items    *[]json.RawMessage `json:"items"`
	Currency string             `json:"currency"`
}

// EncodeSnapshot serializes a snapshot into the persisted format:
//
//	{"items":[{"id":"p1","name":"...","unitPrice":100.00,"quantity":1}],"currency":"GBP"}
//
// unitPrice is written as a JSON number with its exact decimal digits.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	doc := struct {
		Items    []json.RawMessage `json:"items"`
		Currency string            `json:"currency"`
	}{
		Items:    make([]json.RawMessage, 0, len(s.Items)),
		Currency: s.Currency,
	}
	for _, item := range s.Items {
		raw, err := encodeItem(item)
		if err != nil {
			return nil, fmt.Errorf("encode item %s: %w", item.ID, err)
		}
		doc.Items = append(doc.Items, raw)
	}
	return json.Marshal(doc)
}

func encodeItem(item LineItem) (json.RawMessage, error) {
	fields := make(map[string]json.RawMessage, len(item.Extra)+6)
	for k, v := range item.Extra {
		if _, known := knownItemFields[k]; known {
			continue
		}
		fields[k] = v
	}

	put := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fields[key] = b
		return nil
	}
	if err := put("id", item.ID); err != nil {
		return nil, err
	}
	if err := put("name", item.Name); err != nil {
		return nil, err
	}
	fields["unitPrice"] = json.RawMessage(item.UnitPrice.String())
	if err := put("quantity", item.Quantity); err != nil {
		return nil, err
	}
	if item.Image != "" {
		if err := put("image", item.Image); err != nil {
			return nil, err
		}
	}
	if item.Category != "" {
		if err := put("category", item.Category); err != nil {
			return nil, err
		}
	}
	// encoding/json sorts map keys, which keeps the output deterministic.
	return json.Marshal(fields)
}

// DecodeSnapshot parses a persisted snapshot and checks it against the cart
// invariants. Any failure is reported as MalformedSnapshot. An absent currency
// decodes to the table's reference currency.
func DecodeSnapshot(data []byte, currencies *CurrencyTable) (Snapshot, error) {
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, MalformedSnapshot("snapshot is not valid JSON", err)
	}
	if doc.Items == nil {
		return Snapshot{}, MalformedSnapshot("snapshot has no items list", nil)
	}
	items := *doc.Items

	s := Snapshot{Currency: doc.Currency, Items: make([]LineItem, 0, len(items))}
	if s.Currency == "" {
		s.Currency = currencies.Reference()
	}
	if !currencies.Supports(s.Currency) {
		return Snapshot{}, MalformedSnapshot(fmt.Sprintf("snapshot currency %q is not supported", s.Currency), nil)
	}

	seen := make(map[string]struct{}, len(items))
	for i, raw := range items {
		item, err := decodeItem(raw)
		if err != nil {
			return Snapshot{}, MalformedSnapshot(fmt.Sprintf("item %d: %s", i, err.Error()), err)
		}
		if _, dup := seen[item.ID]; dup {
			return Snapshot{}, MalformedSnapshot(fmt.Sprintf("item %d: duplicate id %s", i, item.ID), nil)
		}
		seen[item.ID] = struct{}{}
		s.Items = append(s.Items, item)
	}
	return s, nil
}

func decodeItem(raw json.RawMessage) (LineItem, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return LineItem{}, fmt.Errorf("not an object: %w", err)
	}
	if fields == nil {
		return LineItem{}, fmt.Errorf("item is null")
	}

	var item LineItem

	id, err := decodeID(fields["id"])
	if err != nil {
		return LineItem{}, err
	}
	item.ID = id

	if v, ok := fields["name"]; ok {
		if err := json.Unmarshal(v, &item.Name); err != nil {
			return LineItem{}, fmt.Errorf("name: %w", err)
		}
	}

	price, ok := fields["unitPrice"]
	if !ok || string(price) == "null" {
		return LineItem{}, fmt.Errorf("unitPrice is required")
	}
	if err := item.UnitPrice.UnmarshalJSON(price); err != nil {
		return LineItem{}, fmt.Errorf("unitPrice: %w", err)
	}
	if item.UnitPrice.IsNegative() {
		return LineItem{}, fmt.Errorf("unitPrice must not be negative")
	}

	qtyRaw, ok := fields["quantity"]
	if !ok || string(qtyRaw) == "null" {
		return LineItem{}, fmt.Errorf("quantity is required")
	}
	var qty json.Number
	if err := json.Unmarshal(qtyRaw, &qty); err != nil {
		return LineItem{}, fmt.Errorf("quantity: %w", err)
	}
	n, err := qty.Int64()
	if err != nil || n < 1 || n > int64(^uint32(0)>>1) {
		return LineItem{}, fmt.Errorf("quantity must be a positive integer")
	}
	item.Quantity = int(n)

	for _, key := range []string{"image", "category"} {
		v, ok := fields[key]
		if !ok || string(v) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return LineItem{}, fmt.Errorf("%s: %w", key, err)
		}
		if key == "image" {
			item.Image = s
		} else {
			item.Category = s
		}
	}

	for k, v := range fields {
		if _, known := knownItemFields[k]; known {
			continue
		}
		if item.Extra == nil {
			item.Extra = make(map[string]json.RawMessage)
		}
		item.Extra[k] = v
	}
	return item, nil
}

// decodeID accepts a string or an integer id; integers are normalized to their decimal string.
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("id is required")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("id is required")
		}
		return s, nil
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil || !d.IsInteger() {
		return "", fmt.Errorf("id must be a string or an integer")
	}
	return d.String(), nil
}
