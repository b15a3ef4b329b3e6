package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ErrorDump is the log-friendly breakdown of an error chain, including the
// driver-level diagnostics when the root cause came from the database.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`

	SQLiteCode         int `json:"sqlite_code,omitempty"`
	SQLiteExtendedCode int `json:"sqlite_extended_code,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var liteErr sqlite3.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
	case errors.As(err, &liteErr):
		d.SQLiteCode = int(liteErr.Code)
		d.SQLiteExtendedCode = int(liteErr.ExtendedCode)
	}
	return d
}

// LogFields flattens the dump into logger fields, skipping empty values.
func (d ErrorDump) LogFields() map[string]any {
	fields := map[string]any{"error_message": d.TopMessage}
	add := func(key string, value any, empty bool) {
		if !empty {
			fields[key] = value
		}
	}
	add("error_code", d.Code, d.Code == "")
	add("error_chain", d.Chain, len(d.Chain) == 0)
	add("pg_code", d.PGCode, d.PGCode == "")
	add("pg_constraint", d.PGConstraint, d.PGConstraint == "")
	add("pg_table", d.PGTable, d.PGTable == "")
	add("pg_column", d.PGColumn, d.PGColumn == "")
	add("pg_detail", d.PGDetail, d.PGDetail == "")
	add("pg_message", d.PGMessage, d.PGMessage == "")
	add("sqlite_code", d.SQLiteCode, d.SQLiteCode == 0)
	add("sqlite_extended_code", d.SQLiteExtendedCode, d.SQLiteExtendedCode == 0)
	return fields
}
