// Package pgx integrates sqltrace with the jackc/pgx/v5 driver.
//
// It covers the three integration points the core library needs:
//   - [Wrap] returns a querier that annotates every statement, batched
//     ones included, with the active trace context before delegating to
//     pgx.
//   - [NoticeHandler] and [RegisterNoticeHandler] route server notices into
//     sqltrace's auto_explain handler so query-plan spans are emitted as
//     notices arrive.
//   - [SetupAutoExplain] issues the ALTER SYSTEM commands that enable
//     auto_explain with JSON-formatted plans delivered at NOTICE level.
//
// Typical wiring:
//
//	connCfg, err := pgx.ParseConfig(dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sqltracepgx.RegisterNoticeHandler(connCfg)
//
//	conn, err := pgx.ConnectConfig(ctx, connCfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sqltracepgx.SetupAutoExplain(ctx, conn, cfg.AutoExplain); err != nil {
//	    log.Fatal(err)
//	}
//
//	db := sqltracepgx.Wrap(conn)
//	rows, err := db.Query(ctx, "SELECT * FROM orders;")
//
// SetupAutoExplain requires permission to alter the server configuration,
// which managed database services may not grant. In that case set the
// auto_explain parameters from the provider's console and only register the
// notice handler.
package pgx
