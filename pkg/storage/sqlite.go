package storage

import (
	"database/sql"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// sqliteDriver is go-sqlite3 with Unicode case folding. The built-in lower()
// and upper() only fold ASCII, so "CAFÉ" would never match "café".
const sqliteDriver = "sqlite3_unicode"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("lower", foldText(strings.ToLower), true); err != nil {
				return err
			}
			return conn.RegisterFunc("upper", foldText(strings.ToUpper), true)
		},
	})
}

// foldText applies fold to TEXT and BLOB values and passes NULL and numbers
// through unchanged, like the built-ins
func foldText(fold func(string) string) func(interface{}) interface{} {
	return func(v interface{}) interface{} {
		switch s := v.(type) {
		case string:
			return fold(s)
		case []byte:
			return fold(string(s))
		}
		return v
	}
}

// SQLDriverName returns the database/sql driver to open for driver
func SQLDriverName(driver string) string {
	if driver == DriverSQLite {
		return sqliteDriver
	}
	return driver
}
