package pgx

import (
	"context"
	"fmt"

	"github.com/arloliu/sqltrace"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgx command execution the setup routine needs.
// *pgx.Conn and *pgxpool.Pool both satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SetupAutoExplain configures the server's auto_explain module for use
// with sqltrace: plans for statements slower than cfg.MinDuration are
// logged as JSON at NOTICE level, so the connection's notice handler
// receives them. A nil cfg applies the defaults (100ms threshold, full
// instrumentation).
//
// The settings are written with ALTER SYSTEM and therefore require
// superuser or equivalent privileges. The configuration is reloaded
// in-place; no server restart is needed for sessions opened afterwards.
func SetupAutoExplain(ctx context.Context, q Execer, cfg *sqltrace.AutoExplainConfig) error {
	minDuration := 100
	if cfg != nil {
		minDuration = cfg.MinDuration
	}

	commands := []string{
		"LOAD 'auto_explain';",
		"SELECT pg_reload_conf();",
		"ALTER SYSTEM SET session_preload_libraries = auto_explain;",
		fmt.Sprintf("ALTER SYSTEM SET auto_explain.log_min_duration = %d;", minDuration),
		fmt.Sprintf("ALTER SYSTEM SET auto_explain.log_analyze = %t;", cfg.IsAnalyze()),
		fmt.Sprintf("ALTER SYSTEM SET auto_explain.log_buffers = %t;", cfg.IsBuffers()),
		fmt.Sprintf("ALTER SYSTEM SET auto_explain.log_timing = %t;", cfg.IsTiming()),
		fmt.Sprintf("ALTER SYSTEM SET auto_explain.log_triggers = %t;", cfg.IsTriggers()),
		fmt.Sprintf("ALTER SYSTEM SET auto_explain.log_nested_statements = %t;", cfg.IsNestedStatements()),
		fmt.Sprintf("ALTER SYSTEM SET auto_explain.log_settings = %t;", cfg.IsSettings()),
		fmt.Sprintf("ALTER SYSTEM SET auto_explain.log_wal = %t;", cfg.IsWAL()),
		fmt.Sprintf("ALTER SYSTEM SET auto_explain.log_verbose = %t;", cfg.IsVerbose()),
		fmt.Sprintf("ALTER SYSTEM SET auto_explain.sample_rate = %g;", cfg.GetSampleRate()),
		"ALTER SYSTEM SET auto_explain.log_format = JSON;",
		"ALTER SYSTEM SET auto_explain.log_level = notice;",
		"SELECT pg_reload_conf();",
	}

	for _, cmd := range commands {
		if _, err := q.Exec(ctx, cmd); err != nil {
			return fmt.Errorf("sqltrace/pgx: setup auto_explain: %q: %w", cmd, err)
		}
	}

	return nil
}
