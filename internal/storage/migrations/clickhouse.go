package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strings"

	chstore "tof-pid-lab/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the target database if needed and
// applies the embedded schema files in lexical order. The returned
// connection is bound to the target database so callers can hand it
// straight to their stores.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		admin.Close()
		return nil, fmt.Errorf("create database %s: %w", dbName, err)
	}
	if err := admin.Close(); err != nil {
		return nil, fmt.Errorf("close admin connection: %w", err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	names, err := fs.Glob(ClickhouseFS, "clickhouse/*.sql")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("list clickhouse migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		ddl, err := fs.ReadFile(ClickhouseFS, name)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		// The driver rejects multi-statement Exec, so each file is
		// split into single statements first.
		for _, stmt := range splitStatements(string(ddl)) {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply %s: %w", name, err)
			}
		}
	}

	return conn, nil
}

// splitStatements cuts a schema file into single statements on
// semicolons outside single-quoted literals. Line comments and blank
// lines are dropped; '' escapes inside literals are honored.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "--") {
			continue
		}
		kept = append(kept, line)
	}
	src := strings.Join(kept, "\n")

	var stmts []string
	var b strings.Builder
	inLiteral := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\'':
			if inLiteral && i+1 < len(src) && src[i+1] == '\'' {
				b.WriteByte(c)
				b.WriteByte(src[i+1])
				i++
				continue
			}
			inLiteral = !inLiteral
			b.WriteByte(c)
		case c == ';' && !inLiteral:
			if s := strings.TrimSpace(b.String()); s != "" {
				stmts = append(stmts, s)
			}
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
