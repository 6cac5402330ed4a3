// Package sql compiles untrusted catalog filters into parameterized PostgreSQL.
package sql

import (
	"regexp"

	"github.com/jackc/pgx/v5"

	"github.com/wubenqing/console/pkg/apperrors"
	"github.com/wubenqing/console/pkg/models"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier accepts only names matching ^[A-Za-z_][A-Za-z0-9_]*$.
// label names the value in the returned error ("schema", "table").
func ValidateIdentifier(name, label string) error {
	if !identifierPattern.MatchString(name) {
		return apperrors.InvalidIdentifier(label, name)
	}
	return nil
}

// ValidateTable checks both halves of a table identity.
func ValidateTable(table models.TableIdentity) error {
	if err := ValidateIdentifier(table.Schema, "schema"); err != nil {
		return err
	}
	return ValidateIdentifier(table.Table, "table")
}

// QuoteIdentifier renders a single name with PostgreSQL double quotes.
func QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// QualifiedTableName returns "schema"."table".
func QualifiedTableName(table models.TableIdentity) string {
	return pgx.Identifier{table.Schema, table.Table}.Sanitize()
}
