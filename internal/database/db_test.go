package database

import (
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/marketplace-availability/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.Config{DBUser: "app", DBPass: "p@ss", DBHost: "db", DBPort: "3306", DBName: "market"})
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("parse %q: %v", dsn, err)
	}
	if mc.User != "app" || mc.Passwd != "p@ss" || mc.Addr != "db:3306" || mc.DBName != "market" {
		t.Fatalf("unexpected config %+v", mc)
	}
	if !mc.ParseTime || mc.Loc.String() != "UTC" {
		t.Fatal("parseTime and UTC location are required for DATE scanning")
	}
	if !strings.Contains(dsn, "innodb_lock_wait_timeout=5") {
		t.Fatalf("lock wait timeout missing from %q", dsn)
	}
}
