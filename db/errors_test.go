package db

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait", pkgerrors.Wrap(&mysql.MySQLError{Number: 1205}, "failed"), true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, false},
		{"postgres serialization", &pq.Error{Code: "40001"}, true},
		{"postgres deadlock", pkgerrors.Wrap(&pq.Error{Code: "40P01"}, "failed"), true},
		{"postgres unique", &pq.Error{Code: "23505"}, false},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConflict(tt.err))
		})
	}
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, IsDuplicate(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsDuplicate(pkgerrors.Wrap(&pq.Error{Code: "23505"}, "failed")))
	assert.True(t, IsDuplicate(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.False(t, IsDuplicate(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck}))
	assert.False(t, IsDuplicate(errors.New("boom")))
	assert.False(t, IsDuplicate(nil))
}
