package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsAccessDenied(t *testing.T) {
	assert.True(t, IsAccessDenied(&pgconn.PgError{Code: "42501"}))
	assert.True(t, IsAccessDenied(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1142})))
	assert.True(t, IsAccessDenied(errors.New(`new row violates row-level security policy for table "tasks"`)))
	assert.False(t, IsAccessDenied(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsAccessDenied(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1062}))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(driver.ErrBadConn))
	assert.True(t, IsTransient(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.False(t, IsTransient(&pgconn.PgError{Code: "42501"}))
	assert.False(t, IsTransient(nil))
}
