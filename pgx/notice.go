package pgx

import (
	"github.com/arloliu/sqltrace"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// NoticeHandler returns a pgconn notice handler that feeds auto_explain
// notices into [sqltrace.HandleAutoExplain]. Notices from other server
// modules are ignored.
//
// The handler is invoked synchronously from the connection's read path, so
// it inherits sqltrace's guarantees: it never blocks on I/O and never
// fails.
func NoticeHandler(opts ...sqltrace.Option) pgconn.NoticeHandler {
	return func(_ *pgconn.PgConn, n *pgconn.Notice) {
		if n == nil {
			return
		}

		sqltrace.HandleAutoExplain(sqltrace.Diagnostic{
			SourceFile: n.File,
			Message:    n.Message,
		}, opts...)
	}
}

// RegisterNoticeHandler installs the sqltrace notice handler on a
// connection config, chaining any handler already present so existing
// notice processing keeps working.
func RegisterNoticeHandler(cfg *pgx.ConnConfig, opts ...sqltrace.Option) {
	prev := cfg.OnNotice
	handler := NoticeHandler(opts...)

	cfg.OnNotice = func(pc *pgconn.PgConn, n *pgconn.Notice) {
		if prev != nil {
			prev(pc, n)
		}
		handler(pc, n)
	}
}
