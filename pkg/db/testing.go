package db

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// NewTest opens an isolated in-memory sqlite database. Each call gets its
// own named memory database so parallel tests never share state.
func NewTest() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// sqlite has no row locks; strip the clause so production SQL runs
	// unchanged. Its single-writer model serializes writers anyway.
	if err := conn.Callback().Query().Before("gorm:query").Register("sqlite_strip_for_update", stripForUpdate); err != nil {
		return nil, err
	}
	if err := conn.Callback().Row().Before("gorm:row").Register("sqlite_strip_for_update_row", stripForUpdate); err != nil {
		return nil, err
	}

	// Keep the single connection alive, otherwise the memory database is
	// dropped as soon as the pool recycles it.
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return conn, nil
}

func stripForUpdate(d *gorm.DB) {
	sql := d.Statement.SQL.String()
	if !strings.Contains(sql, "FOR UPDATE") {
		return
	}
	sql = strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
	sql = strings.ReplaceAll(sql, "FOR UPDATE", "")
	d.Statement.SQL.Reset()
	d.Statement.SQL.WriteString(sql)
}
