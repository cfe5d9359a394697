// Package schema declares the warehouse tables: the seven dimension entities
// accepted as uploads, the denormalized fact table and the top-seller
// aggregate. Everything the ingest and rebuild flows need to know about a
// table (column names and types, natural business key, required upload
// header) lives in this registry.
package schema

import "ordersetl/internal/storage"

// Entity describes one persisted dimension table.
type Entity struct {
	// Key is the route/config identifier, e.g. "sellers".
	Key string

	Table storage.TableSpec

	// NaturalKey is the business key; ingest inserts conflict on it so
	// re-uploading the same file is a no-op.
	NaturalKey []string
}

// RequiredUploadColumns returns the header columns an upload must carry:
// every declared column except the surrogate id.
func (e Entity) RequiredUploadColumns() []string {
	out := make([]string, 0, len(e.Table.Columns)-1)
	for _, c := range e.Table.Columns {
		if c.Name == "id" {
			continue
		}
		out = append(out, c.Name)
	}
	return out
}

// dimSpec builds a dimension table spec. Dimension tables deliberately carry
// no primary key on the surrogate id: ids are re-densified per upload (1..N
// for each file), so two uploads can legally persist the same id with
// different business rows. The natural key is the only uniqueness enforced,
// which is also what makes re-ingesting an identical file a no-op.
func dimSpec(name string, naturalKey []string, cols ...storage.ColumnSpec) storage.TableSpec {
	all := make([]storage.ColumnSpec, 0, len(cols)+1)
	all = append(all, storage.ColumnSpec{Name: "id", Type: storage.TypeBigint})
	all = append(all, cols...)
	return storage.TableSpec{
		Name:        name,
		Columns:     all,
		Constraints: []storage.ConstraintSpec{{Kind: "unique", Columns: naturalKey}},
	}
}

var sellers = Entity{
	Key:        "sellers",
	NaturalKey: []string{"seller_id"},
	Table: dimSpec("sellers", []string{"seller_id"},
		storage.ColumnSpec{Name: "seller_id", Type: storage.TypeText},
		storage.ColumnSpec{Name: "seller_zip_code_prefix", Type: storage.TypeBigint, Nullable: true},
		storage.ColumnSpec{Name: "seller_city", Type: storage.TypeText, Nullable: true},
		storage.ColumnSpec{Name: "seller_state", Type: storage.TypeText, Nullable: true},
	),
}

var customers = Entity{
	Key:        "customers",
	NaturalKey: []string{"customer_id"},
	Table: dimSpec("customers", []string{"customer_id"},
		storage.ColumnSpec{Name: "customer_id", Type: storage.TypeText},
		storage.ColumnSpec{Name: "customer_unique_id", Type: storage.TypeText, Nullable: true},
		storage.ColumnSpec{Name: "customer_zip_code_prefix", Type: storage.TypeBigint, Nullable: true},
		storage.ColumnSpec{Name: "customer_city", Type: storage.TypeText, Nullable: true},
		storage.ColumnSpec{Name: "customer_state", Type: storage.TypeText, Nullable: true},
	),
}

var orders = Entity{
	Key:        "orders",
	NaturalKey: []string{"order_id"},
	Table: dimSpec("orders", []string{"order_id"},
		storage.ColumnSpec{Name: "order_id", Type: storage.TypeText},
		storage.ColumnSpec{Name: "customer_id", Type: storage.TypeText},
		storage.ColumnSpec{Name: "order_status", Type: storage.TypeText, Nullable: true},
		storage.ColumnSpec{Name: "order_purchase_timestamp", Type: storage.TypeTimestamp, Nullable: true},
		storage.ColumnSpec{Name: "order_approved_at", Type: storage.TypeTimestamp, Nullable: true},
		storage.ColumnSpec{Name: "order_delivered_carrier_date", Type: storage.TypeTimestamp, Nullable: true},
		storage.ColumnSpec{Name: "order_delivered_customer_date", Type: storage.TypeTimestamp, Nullable: true},
		storage.ColumnSpec{Name: "order_estimated_delivery_date", Type: storage.TypeTimestamp, Nullable: true},
	),
}

var orderItems = Entity{
	Key:        "order_items",
	NaturalKey: []string{"order_id", "order_item_id"},
	Table: dimSpec("order_items", []string{"order_id", "order_item_id"},
		storage.ColumnSpec{Name: "order_id", Type: storage.TypeText},
		storage.ColumnSpec{Name: "order_item_id", Type: storage.TypeBigint},
		storage.ColumnSpec{Name: "product_id", Type: storage.TypeText},
		storage.ColumnSpec{Name: "seller_id", Type: storage.TypeText},
		storage.ColumnSpec{Name: "shipping_limit_date", Type: storage.TypeTimestamp, Nullable: true},
		storage.ColumnSpec{Name: "price", Type: storage.TypeDouble, Nullable: true},
		storage.ColumnSpec{Name: "freight_value", Type: storage.TypeDouble, Nullable: true},
	),
}

var orderPayments = Entity{
	Key:        "order_payments",
	NaturalKey: []string{"order_id", "payment_sequential"},
	Table: dimSpec("order_payments", []string{"order_id", "payment_sequential"},
		storage.ColumnSpec{Name: "order_id", Type: storage.TypeText},
		storage.ColumnSpec{Name: "payment_sequential", Type: storage.TypeBigint},
		storage.ColumnSpec{Name: "payment_type", Type: storage.TypeText, Nullable: true},
		storage.ColumnSpec{Name: "payment_installments", Type: storage.TypeBigint, Nullable: true},
		storage.ColumnSpec{Name: "payment_value", Type: storage.TypeDouble, Nullable: true},
	),
}

// The repeated "lenght" spelling is the upstream dataset's own header; it has
// to match uploads byte for byte.
var products = Entity{
	Key:        "products",
	NaturalKey: []string{"product_id"},
	Table: dimSpec("products", []string{"product_id"},
		storage.ColumnSpec{Name: "product_id", Type: storage.TypeText},
		storage.ColumnSpec{Name: "product_category_name", Type: storage.TypeText, Nullable: true},
		storage.ColumnSpec{Name: "product_name_lenght", Type: storage.TypeText, Nullable: true},
		storage.ColumnSpec{Name: "product_description_lenght", Type: storage.TypeText, Nullable: true},
		storage.ColumnSpec{Name: "product_photos_qty", Type: storage.TypeText, Nullable: true},
		storage.ColumnSpec{Name: "product_weight_g", Type: storage.TypeBigint, Nullable: true},
		storage.ColumnSpec{Name: "product_length_cm", Type: storage.TypeBigint, Nullable: true},
		storage.ColumnSpec{Name: "product_height_cm", Type: storage.TypeBigint, Nullable: true},
		storage.ColumnSpec{Name: "product_width_cm", Type: storage.TypeBigint, Nullable: true},
	),
}

var productCategories = Entity{
	Key:        "product_categories",
	NaturalKey: []string{"product_category_name"},
	Table: dimSpec("product_category", []string{"product_category_name"},
		storage.ColumnSpec{Name: "product_category_name", Type: storage.TypeText},
		storage.ColumnSpec{Name: "product_category_name_english", Type: storage.TypeText, Nullable: true},
	),
}

// Dimensions returns the seven dimension entities in the fixed order the
// fact assembler consumes them: orders, order_items, customers,
// order_payments, products, sellers, product_categories.
func Dimensions() []Entity {
	return []Entity{orders, orderItems, customers, orderPayments, products, sellers, productCategories}
}

// ByKey resolves a dimension entity by its route key.
func ByKey(key string) (Entity, bool) {
	for _, e := range Dimensions() {
		if e.Key == key {
			return e, true
		}
	}
	return Entity{}, false
}

// Fact is the denormalized fact table: the union of all join columns, one
// row per fully matched order item. No unique constraint; the table is
// replaced wholesale on every rebuild.
func Fact() storage.TableSpec {
	return storage.TableSpec{
		Name:       "fact_table",
		PrimaryKey: "id",
		Columns: []storage.ColumnSpec{
			{Name: "id", Type: storage.TypeBigint},
			{Name: "order_id", Type: storage.TypeText},
			{Name: "customer_id", Type: storage.TypeText},
			{Name: "order_status", Type: storage.TypeText, Nullable: true},
			{Name: "order_purchase_timestamp", Type: storage.TypeTimestamp, Nullable: true},
			{Name: "order_approved_at", Type: storage.TypeTimestamp, Nullable: true},
			{Name: "order_delivered_carrier_date", Type: storage.TypeTimestamp, Nullable: true},
			{Name: "order_delivered_customer_date", Type: storage.TypeTimestamp, Nullable: true},
			{Name: "order_estimated_delivery_date", Type: storage.TypeTimestamp, Nullable: true},
			{Name: "order_item_id", Type: storage.TypeBigint},
			{Name: "product_id", Type: storage.TypeText},
			{Name: "seller_id", Type: storage.TypeText},
			{Name: "shipping_limit_date", Type: storage.TypeTimestamp, Nullable: true},
			{Name: "price", Type: storage.TypeDouble, Nullable: true},
			{Name: "freight_value", Type: storage.TypeDouble, Nullable: true},
			{Name: "customer_unique_id", Type: storage.TypeText, Nullable: true},
			{Name: "customer_zip_code_prefix", Type: storage.TypeBigint, Nullable: true},
			{Name: "customer_city", Type: storage.TypeText, Nullable: true},
			{Name: "customer_state", Type: storage.TypeText, Nullable: true},
			{Name: "product_category_name", Type: storage.TypeText, Nullable: true},
			{Name: "seller_zip_code_prefix", Type: storage.TypeBigint, Nullable: true},
			{Name: "seller_city", Type: storage.TypeText, Nullable: true},
			{Name: "seller_state", Type: storage.TypeText, Nullable: true},
			{Name: "product_category_name_english", Type: storage.TypeText, Nullable: true},
		},
	}
}

// TopSellers is the top-seller aggregate table, replaced wholesale on every
// rebuild.
func TopSellers() storage.TableSpec {
	return storage.TableSpec{
		Name:       "top_sellers",
		PrimaryKey: "id",
		Columns: []storage.ColumnSpec{
			{Name: "id", Type: storage.TypeBigint},
			{Name: "seller_id", Type: storage.TypeText},
			{Name: "total_sales", Type: storage.TypeDouble},
		},
	}
}

// AllTables returns every persisted table spec, for DDL at startup.
func AllTables() []storage.TableSpec {
	out := make([]storage.TableSpec, 0, 9)
	for _, e := range Dimensions() {
		out = append(out, e.Table)
	}
	out = append(out, Fact(), TopSellers())
	return out
}
