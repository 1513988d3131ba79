package db

const (
	driverMySQL    = "mysql"
	driverPostgres = "postgres"
	driverSQLite   = "sqlite3"
)

// dialect holds the few statements that differ between the supported drivers.
type dialect struct {
	name string
	// lockClause is appended to the order lookup that opens a ledger
	// transaction. SQLite has no row locks; its single writer connection
	// serialises those transactions instead.
	lockClause  string
	returningID bool
}

func newDialect(driverName string) dialect {
	switch driverName {
	case driverPostgres:
		return dialect{name: driverPostgres, lockClause: " FOR UPDATE", returningID: true}
	case driverSQLite:
		return dialect{name: driverSQLite}
	default:
		return dialect{name: driverMySQL, lockClause: " FOR UPDATE"}
	}
}
