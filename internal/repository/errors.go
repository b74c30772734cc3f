// Package repository implements MySQL persistence for availability
// windows, the read side of bookings, and the account tables used by
// authentication.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned by UserRepo.Create on a duplicate email.
var ErrEmailExists = errors.New("email already exists")

// MySQL server error numbers the repositories react to.
const (
	mysqlDuplicateEntry   = 1062
	mysqlNoReferencedRow  = 1452
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlockDetected = 1213
)

// isContention reports whether err is a lock wait timeout or a deadlock,
// both of which succeed when the transaction is simply run again.
func isContention(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlLockWaitTimeout || me.Number == mysqlDeadlockDetected
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func isMissingParent(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlNoReferencedRow
}
