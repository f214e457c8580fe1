package fixture

import (
	"context"

	"github.com/syssam/dao/dialect"
	"github.com/syssam/dao/dialect/sql"
	"github.com/syssam/dao/dialect/sql/schema"
	"github.com/syssam/dao/entity"
	"github.com/syssam/dao/statement"
)

// CustomerDDL and OrderDDL create the CUSTOMER and ORDERS tables on SQLite.
const (
	CustomerDDL = `CREATE TABLE "CUSTOMER" ("_id" INTEGER PRIMARY KEY, "NAME" TEXT NOT NULL)`
	OrderDDL    = `CREATE TABLE "ORDERS" ("_id" INTEGER PRIMARY KEY, "CUSTOMER_ID" INTEGER, "AMOUNT" REAL NOT NULL)`
)

// CustomerTable describes the CUSTOMER table.
var CustomerTable = schema.NewTable("CUSTOMER",
	&schema.Column{Name: "_id", Type: schema.TypeInt64, PrimaryKey: true},
	&schema.Column{Name: "NAME", Type: schema.TypeString},
)

// OrderTable describes the ORDERS table.
var OrderTable = schema.NewTable("ORDERS",
	&schema.Column{Name: "_id", Type: schema.TypeInt64, PrimaryKey: true},
	&schema.Column{Name: "CUSTOMER_ID", Type: schema.TypeInt64, Nullable: true},
	&schema.Column{Name: "AMOUNT", Type: schema.TypeFloat64},
)

// Customer places orders.
type Customer struct {
	ID   int64
	Name string
}

// Order belongs to an optional customer, loaded with LoadOrdersDeep.
type Order struct {
	ID         int64
	CustomerID *int64
	Amount     float64
	Customer   *Customer
}

// CustomerAdapter maps Customer to CUSTOMER.
type CustomerAdapter struct{}

// ReadEntity implements entity.Adapter.
func (a CustomerAdapter) ReadEntity(row sql.Row, offset int) *Customer {
	c := &Customer{}
	a.ReadEntityInto(row, c, offset)
	return c
}

// ReadEntityInto implements entity.Adapter.
func (CustomerAdapter) ReadEntityInto(row sql.Row, c *Customer, offset int) {
	c.ID = row.Int64(offset)
	c.Name = row.String(offset + 1)
}

// ReadKey implements entity.Adapter.
func (CustomerAdapter) ReadKey(row sql.Row, offset int) (int64, bool) {
	return row.Int64(offset), !row.IsNull(offset)
}

// BindValues implements entity.Adapter.
func (CustomerAdapter) BindValues(stmt *sql.Statement, c *Customer) {
	if c.ID != 0 {
		stmt.BindInt64(1, c.ID)
	}
	stmt.BindString(2, c.Name)
}

// UpdateKeyAfterInsert implements entity.Adapter.
func (CustomerAdapter) UpdateKeyAfterInsert(c *Customer, rowID int64) (int64, bool) {
	c.ID = rowID
	return rowID, true
}

// GetKey implements entity.Adapter.
func (CustomerAdapter) GetKey(c *Customer) (int64, bool) { return c.ID, c.ID != 0 }

// IsUpdateable implements entity.Adapter.
func (CustomerAdapter) IsUpdateable() bool { return true }

// OrderAdapter maps Order to ORDERS.
type OrderAdapter struct{}

// ReadEntity implements entity.Adapter.
func (a OrderAdapter) ReadEntity(row sql.Row, offset int) *Order {
	o := &Order{}
	a.ReadEntityInto(row, o, offset)
	return o
}

// ReadEntityInto implements entity.Adapter.
func (OrderAdapter) ReadEntityInto(row sql.Row, o *Order, offset int) {
	o.ID = row.Int64(offset)
	o.CustomerID = nil
	if !row.IsNull(offset + 1) {
		id := row.Int64(offset + 1)
		o.CustomerID = &id
	}
	o.Amount = row.Float64(offset + 2)
}

// ReadKey implements entity.Adapter.
func (OrderAdapter) ReadKey(row sql.Row, offset int) (int64, bool) {
	return row.Int64(offset), !row.IsNull(offset)
}

// BindValues implements entity.Adapter.
func (OrderAdapter) BindValues(stmt *sql.Statement, o *Order) {
	if o.ID != 0 {
		stmt.BindInt64(1, o.ID)
	}
	if o.CustomerID != nil {
		stmt.BindInt64(2, *o.CustomerID)
	}
	stmt.BindFloat64(3, o.Amount)
}

// UpdateKeyAfterInsert implements entity.Adapter.
func (OrderAdapter) UpdateKeyAfterInsert(o *Order, rowID int64) (int64, bool) {
	o.ID = rowID
	return rowID, true
}

// GetKey implements entity.Adapter.
func (OrderAdapter) GetKey(o *Order) (int64, bool) { return o.ID, o.ID != 0 }

// IsUpdateable implements entity.Adapter.
func (OrderAdapter) IsUpdateable() bool { return true }

// LoadOrdersDeep reads orders together with their customer in one LEFT
// JOIN. The where tail may reference the order as T and the customer as
// T0. Orders without a customer get a nil Customer.
func LoadOrdersDeep(ctx context.Context, orders *entity.Dao[Order, int64], customers *entity.Dao[Customer, int64], where string, args ...any) ([]*Order, error) {
	d := orders.Statements().Dialect()
	b := statement.NewBuilder(d)
	b.WriteString("SELECT ")
	b.Columns(statement.Alias, orders.AllColumns()).WriteByte(',')
	b.Columns("T0", customers.AllColumns())
	b.WriteString(" FROM ")
	b.Ident(orders.TableName()).WriteString(" " + statement.Alias + " LEFT JOIN ")
	b.Ident(customers.TableName()).WriteString(" T0 ON ")
	b.Column(statement.Alias, "CUSTOMER_ID").WriteByte('=')
	b.Column("T0", "_id")
	if where != "" {
		b.WriteByte(' ')
		b.WriteString(where)
	}
	c, err := sql.QueryCursor(ctx, dialect.Querier(ctx, orders.Driver()), dialect.Rebind(d, b.String()), args)
	if err != nil {
		return nil, err
	}
	rows, err := c.All()
	if err != nil {
		return nil, err
	}
	offset := len(orders.AllColumns())
	list := make([]*Order, 0, len(rows))
	for _, row := range rows {
		o := orders.LoadCurrent(ctx, row, 0, true)
		o.Customer = customers.LoadCurrent(ctx, row, offset, true)
		list = append(list, o)
	}
	return list, nil
}
